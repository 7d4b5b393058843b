package harness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/session"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Passing(t *testing.T) {
	scenario := mustParse(t, `
name: expression
description: "5 3 + 2 * evaluates to 16"
setup: [5, 3]
steps:
  - op: add
  - push: 2
  - op: mul
    expect: { stack: [16], size: 1 }
assertions:
  - type: final_stack
    stack: [16]
  - type: error_count
    count: 0
`)

	result, err := Run(context.Background(), scenario, session.NewMemory(nil))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 5)

	last := result.Trace[4]
	assert.Equal(t, 5, last.Seq)
	assert.Equal(t, ActionOp, last.Action)
	assert.Equal(t, map[string]any{"name": "mul"}, last.Args)
	assert.Equal(t, OutcomeOK, last.Outcome)
	assert.Equal(t, []float64{16}, last.Stack)
	assert.Equal(t, []float64{16}, result.Final.Stack)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := mustParse(t, `
name: mismatch
description: "wrong expectations are reported, not fatal"
setup: [10, 0]
steps:
  - op: div
  - op: sub
    expect: { error: DivisionByZero }
  - op: add
    expect: { stack: [11], size: 2 }
`)

	result, err := Run(context.Background(), scenario, session.NewMemory(nil))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "steps[1] (op sub): expected error DivisionByZero, got ok")
	assert.Contains(t, result.Errors[1], "steps[2] (op add): expected success, got StackUnderflow")
	assert.Contains(t, result.Errors[2], "expected stack [11], got [10]")
	assert.Contains(t, result.Errors[3], "expected size 2, got 1")

	assert.Equal(t, string(engine.KindDivisionByZero), result.Trace[2].Outcome)
	assert.Equal(t, []float64{10, 0}, result.Trace[2].Stack)
}

func TestRun_UnexpectedFailure(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
description: "a step expected to succeed fails"
steps:
  - op: sqrt
    expect: { size: 0 }
`)

	result, err := Run(context.Background(), scenario, session.NewMemory(nil))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected success, got StackUnderflow")
}

func TestRun_AssertionFailures(t *testing.T) {
	scenario := mustParse(t, `
name: assertions
description: "assertion failures carry the trace"
setup: [2]
steps:
  - op: add
assertions:
  - type: final_stack
    stack: [3]
  - type: final_size
    size: 0
  - type: error_count
    kind: DivisionByZero
    count: 1
  - type: error_count
    count: 1
`)

	result, err := Run(context.Background(), scenario, session.NewMemory(nil))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: final_stack")
	assert.Contains(t, result.Errors[0], "Expected: stack [3]")
	assert.Contains(t, result.Errors[0], "[2] op map[name:add] -> StackUnderflow [2]")
	assert.Contains(t, result.Errors[1], "Expected: size 0")
	assert.Contains(t, result.Errors[2], "Expected: 1 DivisionByZero errors")
	assert.Contains(t, result.Errors[2], "Actual: 0 DivisionByZero errors")
}

// brokenBackend fails every push with a storage error.
type brokenBackend struct{ *session.Memory }

func (b brokenBackend) Push(context.Context, float64) (engine.Snapshot, error) {
	return engine.Snapshot{}, errors.New("disk I/O error")
}

func TestRun_InfrastructureErrorAborts(t *testing.T) {
	scenario := mustParse(t, `
name: broken
description: "storage errors abort the run"
steps:
  - push: 1
`)

	_, err := Run(context.Background(), scenario, brokenBackend{session.NewMemory(nil)})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "steps[0]"))
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestFloatsEqual(t *testing.T) {
	assert.True(t, floatsEqual(0.1+0.2, 0.3))
	assert.True(t, floatsEqual(1e20, 1e20+1))
	assert.False(t, floatsEqual(1, 1.001))
	assert.False(t, stacksEqual([]float64{1}, []float64{1, 2}))
	assert.True(t, stacksEqual([]float64{}, nil))
}
