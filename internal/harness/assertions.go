package harness

import (
	"fmt"
	"math"
	"strings"
)

// floatTolerance is the relative tolerance used when comparing stack values.
const floatTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Action)
		if len(event.Args) > 0 {
			fmt.Fprintf(&buf, " %v", event.Args)
		}
		fmt.Fprintf(&buf, " -> %s %v\n", event.Outcome, event.Stack)
	}

	return buf.String()
}

func assertFinalStack(result *Result, a Assertion) error {
	if stacksEqual(*a.Stack, result.Final.Stack) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalStack,
		Expected: fmt.Sprintf("stack %v", *a.Stack),
		Actual:   fmt.Sprintf("stack %v", result.Final.Stack),
		Trace:    result.Trace,
	}
}

func assertFinalSize(result *Result, a Assertion) error {
	if result.Final.Size == *a.Size {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalSize,
		Expected: fmt.Sprintf("size %d", *a.Size),
		Actual:   fmt.Sprintf("size %d", result.Final.Size),
		Trace:    result.Trace,
	}
}

func assertErrorCount(result *Result, a Assertion) error {
	count := 0
	for _, event := range result.Trace {
		if !event.Failed() {
			continue
		}
		if a.Kind == "" || event.Outcome == a.Kind {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}

	what := "failed steps"
	if a.Kind != "" {
		what = a.Kind + " errors"
	}
	return &AssertionError{
		Type:     AssertErrorCount,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalStack:
			err = assertFinalStack(result, a)
		case AssertFinalSize:
			err = assertFinalSize(result, a)
		case AssertErrorCount:
			err = assertErrorCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

// stacksEqual compares stacks element-wise with a relative tolerance.
func stacksEqual(expected, actual []float64) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !floatsEqual(expected[i], actual[i]) {
			return false
		}
	}
	return true
}

func floatsEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= floatTolerance*scale
}
