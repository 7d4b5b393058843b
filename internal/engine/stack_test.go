package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_PushPopRoundTrip(t *testing.T) {
	values := []float64{0, -0.5, 42, 1e308, -1e-308, math.MaxFloat64, math.SmallestNonzeroFloat64}

	for _, v := range values {
		s := NewStack()
		require.NoError(t, s.Push(1))
		before := s.Len()

		require.NoError(t, s.Push(v))
		got, err := s.Pop()
		require.NoError(t, err)

		assert.Equal(t, v, got)
		assert.Equal(t, before, s.Len())
	}
}

func TestStack_PushRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := NewStack()
		require.NoError(t, s.Push(3))

		err := s.Push(v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOperand))
		assert.Equal(t, []float64{3}, s.Snapshot().Stack, "failed push must not mutate")
	}
}

func TestStack_PopEmpty(t *testing.T) {
	s := NewStack()
	_, err := s.Pop()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStackUnderflow))
	assert.Equal(t, 0, s.Len())
}

func TestStack_PeekOrderAndUnderflow(t *testing.T) {
	s := NewStack()
	for _, v := range []float64{1, 2, 3} {
		require.NoError(t, s.Push(v))
	}

	top2, err := s.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, top2)

	// Peek returns a copy
	top2[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, s.Snapshot().Stack)

	_, err = s.Peek(4)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStackUnderflow))
	assert.Equal(t, 3, s.Len())
}

func TestStack_Clear(t *testing.T) {
	s := NewStack()
	s.Clear()
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Push(5))
	require.NoError(t, s.Push(6))
	s.Clear()

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Size)
	assert.NotNil(t, snap.Stack)
	assert.Empty(t, snap.Stack)
}

func TestStack_SnapshotIsIndependent(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(1))
	snap := s.Snapshot()

	require.NoError(t, s.Push(2))
	snap.Stack[0] = 7

	assert.Equal(t, []float64{1, 2}, s.Snapshot().Stack)
	assert.Equal(t, 1, snap.Size)
}

func TestRestore(t *testing.T) {
	s, err := Restore([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Stack: []float64{1, 2, 3}, Size: 3}, s.Snapshot())

	_, err = Restore([]float64{1, math.NaN()})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidOperand))
}

func TestSnapshot_TopAndEqual(t *testing.T) {
	empty := NewStack().Snapshot()
	_, ok := empty.Top()
	assert.False(t, ok)

	a := Snapshot{Stack: []float64{1, 2}, Size: 2}
	top, ok := a.Top()
	require.True(t, ok)
	assert.Equal(t, 2.0, top)

	assert.True(t, a.Equal(Snapshot{Stack: []float64{1, 2}, Size: 2}))
	assert.False(t, a.Equal(Snapshot{Stack: []float64{2, 1}, Size: 2}))
	assert.False(t, Snapshot{Stack: []float64{0}, Size: 1}.Equal(Snapshot{Stack: []float64{math.Copysign(0, -1)}, Size: 1}))
}
