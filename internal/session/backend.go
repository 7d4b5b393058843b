package session

import (
	"context"
	"sync"

	"github.com/roach88/rpn/internal/engine"
)

// ClearedMessage is the acknowledgement returned by Clear.
const ClearedMessage = "Stack cleared successfully"

// Ack acknowledges a Clear.
type Ack struct {
	Message string `json:"message"`
}

// Backend holds one logical stack and exposes the session primitives.
type Backend interface {
	// State returns the current snapshot without mutating anything.
	State(ctx context.Context) (engine.Snapshot, error)

	// Push pushes a value and returns the resulting snapshot.
	Push(ctx context.Context, value float64) (engine.Snapshot, error)

	// Apply runs the named operation and returns the resulting snapshot.
	Apply(ctx context.Context, name string) (engine.Snapshot, error)

	// Clear empties the stack. Always succeeds on a reachable backend.
	Clear(ctx context.Context) (Ack, error)

	// Close releases resources held by the backend.
	Close() error
}

// Memory is an in-process Backend.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Memory struct {
	mu    sync.Mutex
	eng   *engine.Engine
	stack *engine.Stack
}

// NewMemory creates an empty in-process backend.
func NewMemory(eng *engine.Engine) *Memory {
	if eng == nil {
		eng = engine.New()
	}
	return &Memory{eng: eng, stack: engine.NewStack()}
}

// State implements Backend.
func (m *Memory) State(ctx context.Context) (engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stack.Snapshot(), nil
}

// Push implements Backend.
func (m *Memory) Push(ctx context.Context, value float64) (engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eng.Push(m.stack, value)
}

// Apply implements Backend.
func (m *Memory) Apply(ctx context.Context, name string) (engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eng.Apply(name, m.stack)
}

// Clear implements Backend.
func (m *Memory) Clear(ctx context.Context) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stack.Clear()
	return Ack{Message: ClearedMessage}, nil
}

// Close implements Backend. The stack is discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stack.Clear()
	return nil
}
