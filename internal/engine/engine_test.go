package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stackOf builds a stack from values, bottom-to-top.
func stackOf(t *testing.T, values ...float64) *Stack {
	t.Helper()
	s, err := Restore(values)
	require.NoError(t, err)
	return s
}

func TestApply_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   string
		in   []float64
		want []float64
	}{
		{"add", "add", []float64{3, 4}, []float64{7}},
		{"sub keeps operand order", "sub", []float64{10, 3}, []float64{7}},
		{"sub negative", "sub", []float64{3, 10}, []float64{-7}},
		{"mul", "mul", []float64{5, 3}, []float64{15}},
		{"mul by zero", "mul", []float64{42, 0}, []float64{0}},
		{"div", "div", []float64{10, 2}, []float64{5}},
		{"div fraction", "div", []float64{7, 2}, []float64{3.5}},
		{"pow base then exponent", "pow", []float64{2, 3}, []float64{8}},
		{"power alias", "power", []float64{2, 10}, []float64{1024}},
		{"sqrt", "sqrt", []float64{9}, []float64{3}},
		{"sqrt zero", "sqrt", []float64{0}, []float64{0}},
		{"only top operands consumed", "add", []float64{1, 2, 3}, []float64{1, 5}},
	}

	eng := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stackOf(t, tt.in...)
			snap, err := eng.Apply(tt.op, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Stack)
			assert.Equal(t, len(tt.want), snap.Size)
			assert.Equal(t, snap, s.Snapshot())
		})
	}
}

func TestApply_SqrtOfSeven(t *testing.T) {
	s := stackOf(t, 7)
	snap, err := New().Apply("sqrt", s)
	require.NoError(t, err)
	require.Len(t, snap.Stack, 1)
	assert.InDelta(t, 2.6457513, snap.Stack[0], 1e-7)
	assert.InDelta(t, 7, snap.Stack[0]*snap.Stack[0], 1e-12)
}

func TestApply_StackManipulation(t *testing.T) {
	eng := New()

	t.Run("swap preserves size and exchanges top two", func(t *testing.T) {
		s := stackOf(t, 1, 2, 3)
		snap, err := eng.Apply("swap", s)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 3, 2}, snap.Stack)
		assert.Equal(t, 3, snap.Size)
	})

	t.Run("dup grows by one with equal top values", func(t *testing.T) {
		s := stackOf(t, 4, 5)
		snap, err := eng.Apply("dup", s)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Size)
		assert.Equal(t, snap.Stack[1], snap.Stack[2])
	})

	t.Run("drop shrinks by one", func(t *testing.T) {
		s := stackOf(t, 4, 5)
		snap, err := eng.Apply("drop", s)
		require.NoError(t, err)
		assert.Equal(t, []float64{4}, snap.Stack)
	})

	t.Run("drop last value leaves empty stack", func(t *testing.T) {
		s := stackOf(t, 4)
		snap, err := eng.Apply("drop", s)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Size)
		assert.Empty(t, snap.Stack)
	})
}

func TestApply_Failures(t *testing.T) {
	tests := []struct {
		name string
		op   string
		in   []float64
		kind Kind
	}{
		{"add empty", "add", nil, KindStackUnderflow},
		{"add one operand", "add", []float64{5}, KindStackUnderflow},
		{"sub one operand", "sub", []float64{5}, KindStackUnderflow},
		{"mul empty", "mul", nil, KindStackUnderflow},
		{"div one operand", "div", []float64{5}, KindStackUnderflow},
		{"swap one operand", "swap", []float64{1}, KindStackUnderflow},
		{"dup empty", "dup", nil, KindStackUnderflow},
		{"drop empty", "drop", nil, KindStackUnderflow},
		{"sqrt empty", "sqrt", nil, KindStackUnderflow},
		{"pow one operand", "pow", []float64{2}, KindStackUnderflow},
		{"div by zero", "div", []float64{5, 0}, KindDivisionByZero},
		{"div by negative zero", "div", []float64{5, math.Copysign(0, -1)}, KindDivisionByZero},
		{"zero by zero", "div", []float64{0, 0}, KindDivisionByZero},
		{"sqrt negative", "sqrt", []float64{-4}, KindNegativeSqrt},
		{"add overflow", "add", []float64{math.MaxFloat64, math.MaxFloat64}, KindComputationOverflow},
		{"mul overflow", "mul", []float64{1e200, 1e200}, KindComputationOverflow},
		{"div overflow", "div", []float64{1e300, 1e-300}, KindComputationOverflow},
		{"pow overflow", "pow", []float64{10, 400}, KindComputationOverflow},
		{"pow nan", "pow", []float64{-8, 1.0 / 3.0}, KindComputationOverflow},
		{"unknown", "mod", []float64{1, 2}, KindUnknownOperation},
		{"undo is not an operation", "undo", []float64{1}, KindUnknownOperation},
	}

	eng := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stackOf(t, tt.in...)
			before := s.Snapshot()

			_, err := eng.Apply(tt.op, s)
			require.Error(t, err)

			kind, ok := KindOf(err)
			require.True(t, ok, "expected calculation error, got %T", err)
			assert.Equal(t, tt.kind, kind)
			assert.True(t, before.Equal(s.Snapshot()), "stack mutated by failed %s: %v -> %v", tt.op, before, s.Snapshot())
		})
	}
}

func TestApply_UnderflowDetails(t *testing.T) {
	_, err := New().Apply("add", stackOf(t, 5))
	require.Error(t, err)

	var calcErr *Error
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, "add", calcErr.Op)
	assert.Equal(t, "2", calcErr.Details["required"])
	assert.Equal(t, "1", calcErr.Details["available"])
	assert.Contains(t, calcErr.Message, "operands")
}

func TestApply_ReusableAfterError(t *testing.T) {
	eng := New()
	s := stackOf(t, 5, 0)

	_, err := eng.Apply("div", s)
	require.True(t, errors.Is(err, ErrDivisionByZero))

	snap, err := eng.Apply("add", s)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, snap.Stack)
}

func TestApply_ExpressionSequence(t *testing.T) {
	// 5 3 + 2 * = 16
	eng := New()
	s := NewStack()

	_, err := eng.Push(s, 5)
	require.NoError(t, err)
	_, err = eng.Push(s, 3)
	require.NoError(t, err)
	_, err = eng.Apply("+", s)
	require.NoError(t, err)
	_, err = eng.Push(s, 2)
	require.NoError(t, err)
	snap, err := eng.Apply("*", s)
	require.NoError(t, err)

	assert.Equal(t, []float64{16}, snap.Stack)
}

func TestPush_RejectsNonFinite(t *testing.T) {
	s := stackOf(t, 1)
	_, err := New().Push(s, math.Inf(1))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidOperand))
	assert.Equal(t, []float64{1}, s.Snapshot().Stack)
}
