package harness

import "github.com/roach88/rpn/internal/engine"

// OutcomeOK marks a step that succeeded. Failed steps carry their error kind.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Action  string         `json:"action"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Stack   []float64      `json:"stack"`
}

// Failed reports whether the step ended in a calculation error.
func (e TraceEvent) Failed() bool {
	return e.Outcome != OutcomeOK
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the snapshot after the last step.
	Final engine.Snapshot `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  engine.Snapshot{Stack: []float64{}},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace event with the next sequence number.
func (r *Result) AddTrace(action string, args map[string]any, outcome string, stack []float64) {
	if stack == nil {
		stack = []float64{}
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace) + 1,
		Action:  action,
		Args:    args,
		Outcome: outcome,
		Stack:   stack,
	})
}
