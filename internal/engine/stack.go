package engine

import "math"

// Snapshot is a read-only projection of a Stack.
// Stack is ordered bottom-to-top and is never shared with the live stack.
type Snapshot struct {
	Stack []float64 `json:"stack"`
	Size  int       `json:"size"`
}

// Top returns the top value, if any.
func (s Snapshot) Top() (float64, bool) {
	if len(s.Stack) == 0 {
		return 0, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Equal reports whether both snapshots hold the same values in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.Size != other.Size || len(s.Stack) != len(other.Stack) {
		return false
	}
	for i := range s.Stack {
		if math.Float64bits(s.Stack[i]) != math.Float64bits(other.Stack[i]) {
			return false
		}
	}
	return true
}

// Stack is the ordered operand store. The zero value is an empty stack.
//
// Stack is not safe for concurrent use.
type Stack struct {
	values []float64
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Restore rebuilds a stack from persisted values, bottom-to-top.
// Returns InvalidOperand if any value is not finite.
func Restore(values []float64) (*Stack, error) {
	for _, v := range values {
		if !isFinite(v) {
			return nil, NewInvalidOperandError(v)
		}
	}
	s := &Stack{values: make([]float64, len(values))}
	copy(s.values, values)
	return s, nil
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return len(s.values)
}

// Push appends v to the top of the stack.
func (s *Stack) Push(v float64) error {
	if !isFinite(v) {
		return NewInvalidOperandError(v)
	}
	s.values = append(s.values, v)
	return nil
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (float64, error) {
	if len(s.values) == 0 {
		return 0, NewUnderflowError("pop", 1, 0)
	}
	last := len(s.values) - 1
	v := s.values[last]
	s.values = s.values[:last]
	return v, nil
}

// Peek returns a copy of the top n values ordered bottom-to-top without
// removing them.
func (s *Stack) Peek(n int) ([]float64, error) {
	if n < 0 || n > len(s.values) {
		return nil, NewUnderflowError("peek", n, len(s.values))
	}
	out := make([]float64, n)
	copy(out, s.values[len(s.values)-n:])
	return out, nil
}

// Clear empties the stack.
func (s *Stack) Clear() {
	s.values = s.values[:0]
}

// Snapshot returns the current values and count.
func (s *Stack) Snapshot() Snapshot {
	values := make([]float64, len(s.values))
	copy(values, s.values)
	return Snapshot{Stack: values, Size: len(values)}
}

// replaceTop drops n values and pushes results as one step.
// Callers must have validated n <= Len() and that every result is finite.
func (s *Stack) replaceTop(n int, results []float64) {
	s.values = append(s.values[:len(s.values)-n], results...)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
