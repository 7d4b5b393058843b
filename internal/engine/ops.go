package engine

import "math"

// Operation describes one catalogued stack operation.
//
// Pop is the arity in and Push the arity out. Check runs against the peeked
// operands (bottom-to-top) before Exec is called; Exec is pure.
type Operation struct {
	Name  string
	Pop   int
	Push  int
	Check func(args []float64) error
	Exec  func(args []float64) []float64
}

func binary(name string, f func(a, b float64) float64) Operation {
	return Operation{
		Name: name,
		Pop:  2,
		Push: 1,
		Exec: func(args []float64) []float64 {
			return []float64{f(args[0], args[1])}
		},
	}
}

// catalog holds the operations in declaration order.
var catalog = []Operation{
	binary("add", func(a, b float64) float64 { return a + b }),
	binary("sub", func(a, b float64) float64 { return a - b }),
	binary("mul", func(a, b float64) float64 { return a * b }),
	{
		Name: "div",
		Pop:  2,
		Push: 1,
		Check: func(args []float64) error {
			if args[1] == 0 {
				return NewDivisionByZeroError()
			}
			return nil
		},
		Exec: func(args []float64) []float64 {
			return []float64{args[0] / args[1]}
		},
	},
	{
		Name: "sqrt",
		Pop:  1,
		Push: 1,
		Check: func(args []float64) error {
			if args[0] < 0 {
				return NewNegativeSqrtError(args[0])
			}
			return nil
		},
		Exec: func(args []float64) []float64 {
			return []float64{math.Sqrt(args[0])}
		},
	},
	binary("pow", math.Pow),
	{
		Name: "swap",
		Pop:  2,
		Push: 2,
		Exec: func(args []float64) []float64 {
			return []float64{args[1], args[0]}
		},
	},
	{
		Name: "dup",
		Pop:  1,
		Push: 2,
		Exec: func(args []float64) []float64 {
			return []float64{args[0], args[0]}
		},
	},
	{
		Name: "drop",
		Pop:  1,
		Push: 0,
		Exec: func(args []float64) []float64 {
			return nil
		},
	},
}

var byName = func() map[string]Operation {
	m := make(map[string]Operation, len(catalog))
	for _, op := range catalog {
		m[op.Name] = op
	}
	return m
}()

// Operations returns the canonical operation names in catalog order.
func Operations() []string {
	names := make([]string, len(catalog))
	for i, op := range catalog {
		names[i] = op.Name
	}
	return names
}

// Catalog returns a copy of the operation table.
func Catalog() []Operation {
	out := make([]Operation, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves a (possibly aliased) operation name.
func Lookup(name string) (Operation, error) {
	canonical, ok := Normalize(name)
	if !ok {
		return Operation{}, NewUnknownOperationError(name)
	}
	return byName[canonical], nil
}
