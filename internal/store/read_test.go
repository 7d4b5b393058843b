package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/testutil"
)

func TestLoadStack_UnknownSessionIsEmpty(t *testing.T) {
	s := createTestStore(t)

	stack, err := s.LoadStack(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadStack() failed: %v", err)
	}
	if stack.Len() != 0 {
		t.Errorf("Len() = %d, want 0", stack.Len())
	}
}

func TestSessionInfo(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SessionInfo(ctx, "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("SessionInfo(missing) error = %v, want ErrSessionNotFound", err)
	}

	if _, err := s.Mutate(ctx, "s1", Push(2.5), pushAll(2.5)); err != nil {
		t.Fatalf("Mutate() failed: %v", err)
	}

	info, err := s.SessionInfo(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionInfo() failed: %v", err)
	}
	if info.OperationCount != 1 {
		t.Errorf("operation_count = %d, want 1", info.OperationCount)
	}
	if info.LastOperation != "push(2.5)" {
		t.Errorf("last_operation = %q, want push(2.5)", info.LastOperation)
	}
	if info.Size != 1 {
		t.Errorf("size = %d, want 1", info.Size)
	}
	if !info.CreatedAt.Equal(fixedClock()) {
		t.Errorf("created_at = %v, want %v", info.CreatedAt, fixedClock())
	}
}

func TestSessionInfo_UpdatedAtAdvances(t *testing.T) {
	clock := testutil.NewStepClock(time.Second)
	s := createTestStoreWithClock(t, clock)
	ctx := context.Background()

	for _, v := range []float64{1, 2} {
		if _, err := s.Mutate(ctx, "s1", Push(v), pushAll(v)); err != nil {
			t.Fatalf("Mutate() failed: %v", err)
		}
	}

	info, err := s.SessionInfo(ctx, "s1")
	if err != nil {
		t.Fatalf("SessionInfo() failed: %v", err)
	}
	if !info.CreatedAt.Equal(testutil.Epoch) {
		t.Errorf("created_at = %v, want %v", info.CreatedAt, testutil.Epoch)
	}
	if want := testutil.Epoch.Add(time.Second); !info.UpdatedAt.Equal(want) {
		t.Errorf("updated_at = %v, want %v", info.UpdatedAt, want)
	}
	if clock.Ticks() != 2 {
		t.Errorf("clock ticks = %d, want 2", clock.Ticks())
	}
}

func TestOperations_OrderAndLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	eng := engine.New()

	for _, v := range []float64{1, 2, 3} {
		if _, err := s.Mutate(ctx, "s1", Push(v), pushAll(v)); err != nil {
			t.Fatalf("Mutate() failed: %v", err)
		}
	}
	if _, err := s.Mutate(ctx, "s1", Apply("mul"), func(st *engine.Stack) error {
		_, err := eng.Apply("mul", st)
		return err
	}); err != nil {
		t.Fatalf("Mutate(mul) failed: %v", err)
	}

	all, err := s.Operations(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("Operations() failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Seq <= all[i-1].Seq {
			t.Errorf("seq not increasing at %d: %d <= %d", i, all[i].Seq, all[i-1].Seq)
		}
	}
	if all[0].Kind != KindPush || all[0].Value == nil || *all[0].Value != 1 {
		t.Errorf("first record = %+v", all[0])
	}
	if all[3].Kind != KindApply || all[3].Name != "mul" || all[3].SizeAfter != 2 {
		t.Errorf("last record = %+v", all[3])
	}

	recent, err := s.Operations(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Operations(limit) failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != all[2].Seq || recent[1].Seq != all[3].Seq {
		t.Errorf("recent = %+v", recent)
	}
}

func TestOperations_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	ops, err := s.Operations(context.Background(), "nobody", 0)
	if err != nil {
		t.Fatalf("Operations() failed: %v", err)
	}
	if ops == nil {
		t.Error("Operations() returned nil, want empty slice")
	}
}
