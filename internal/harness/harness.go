package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/session"
)

// Harness executes scenario steps through a session.
type Harness struct {
	session *session.Session
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a test scenario against backend and returns the result.
//
// The backend should start empty; it is not closed. Calculation errors are
// part of the result. Any other error (transport, storage, busy) aborts the
// run and is returned.
//
// Execution flow:
//  1. Push setup values
//  2. Execute steps, checking expect clauses
//  3. Evaluate assertions against the trace and final state
func Run(ctx context.Context, scenario *Scenario, backend session.Backend, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.session = session.New(backend,
		session.WithID(scenario.Name),
		session.WithLogger(h.logger),
	)

	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	final, err := h.session.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = final

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished", "scenario", scenario.Name, "pass", result.Pass, "steps", len(result.Trace))
	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, values []float64, result *Result) error {
	for i, v := range values {
		snap, err := h.session.Push(ctx, v)
		if err != nil {
			return fmt.Errorf("setup[%d]: push %v: %w", i, v, err)
		}
		result.AddTrace(ActionPush, map[string]any{"value": traceValue(v)}, OutcomeOK, snap.Stack)
	}
	return nil
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		outcome, snap, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.AddTrace(step.Action(), stepArgs(step), outcome, snap.Stack)

		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, outcome, snap) {
				result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, describeStep(step), msg))
			}
		}
	}
	return nil
}

// executeStep runs one step and returns its outcome and the stack after it.
// Only non-calculation errors are returned as err.
func (h *Harness) executeStep(ctx context.Context, step Step) (string, engine.Snapshot, error) {
	var (
		snap engine.Snapshot
		err  error
	)
	switch step.Action() {
	case ActionPush:
		snap, err = h.session.Push(ctx, *step.Push)
	case ActionOp:
		snap, err = h.session.Apply(ctx, step.Op)
	case ActionClear:
		if _, err = h.session.Clear(ctx); err == nil {
			snap, err = h.session.State(ctx)
		}
	case ActionState:
		snap, err = h.session.State(ctx)
	default:
		return "", engine.Snapshot{}, fmt.Errorf("step has no action")
	}

	if err == nil {
		return OutcomeOK, snap, nil
	}

	kind, ok := engine.KindOf(err)
	if !ok {
		return "", engine.Snapshot{}, err
	}

	// The stack after a rejected step is read back so the trace shows it
	// untouched.
	snap, stateErr := h.session.State(ctx)
	if stateErr != nil {
		return "", engine.Snapshot{}, stateErr
	}
	return string(kind), snap, nil
}

func stepArgs(step Step) map[string]any {
	switch step.Action() {
	case ActionPush:
		return map[string]any{"value": traceValue(*step.Push)}
	case ActionOp:
		return map[string]any{"name": step.Op}
	default:
		return nil
	}
}

// traceValue keeps non-finite values representable in JSON traces.
func traceValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

func describeStep(step Step) string {
	switch step.Action() {
	case ActionPush:
		return fmt.Sprintf("push %v", *step.Push)
	case ActionOp:
		return "op " + step.Op
	default:
		return step.Action()
	}
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(exp *Expect, outcome string, snap engine.Snapshot) []string {
	var msgs []string
	switch {
	case exp.Error == "" && outcome != OutcomeOK:
		msgs = append(msgs, fmt.Sprintf("expected success, got %s", outcome))
	case exp.Error != "" && outcome != exp.Error:
		msgs = append(msgs, fmt.Sprintf("expected error %s, got %s", exp.Error, outcome))
	}
	if exp.Stack != nil && !stacksEqual(*exp.Stack, snap.Stack) {
		msgs = append(msgs, fmt.Sprintf("expected stack %v, got %v", *exp.Stack, snap.Stack))
	}
	if exp.Size != nil && *exp.Size != snap.Size {
		msgs = append(msgs, fmt.Sprintf("expected size %d, got %d", *exp.Size, snap.Size))
	}
	return msgs
}
