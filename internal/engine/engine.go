package engine

import (
	"io"
	"log/slog"
)

// Engine applies catalogued operations to a Stack.
//
// Thread-safety: Engine holds no mutable state and may be shared. The Stack
// passed to Apply must not be used concurrently.
type Engine struct {
	logger *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger used for debug tracing of applied operations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine. Logging is discarded unless WithLogger is given.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the named operation against s and returns the resulting
// snapshot.
//
// Execution order:
//  1. Normalize and resolve the name (UnknownOperation)
//  2. Peek the operands (StackUnderflow)
//  3. Check domain preconditions (DivisionByZero, NegativeSqrt)
//  4. Compute and validate every result is finite (ComputationOverflow)
//  5. Replace the operands with the results
//
// Nothing is popped until step 5, so on any error s is left exactly as it
// was and the operands keep their original position and order.
func (e *Engine) Apply(name string, s *Stack) (Snapshot, error) {
	op, err := Lookup(name)
	if err != nil {
		e.logger.Debug("operation rejected", "op", name, "error", err)
		return Snapshot{}, err
	}

	args, err := s.Peek(op.Pop)
	if err != nil {
		err = NewUnderflowError(op.Name, op.Pop, s.Len())
		e.logger.Debug("operation rejected", "op", op.Name, "error", err)
		return Snapshot{}, err
	}

	if op.Check != nil {
		if err := op.Check(args); err != nil {
			e.logger.Debug("operation rejected", "op", op.Name, "error", err)
			return Snapshot{}, err
		}
	}

	results := op.Exec(args)
	for _, r := range results {
		if !isFinite(r) {
			err := NewOverflowError(op.Name)
			e.logger.Debug("operation rejected", "op", op.Name, "error", err)
			return Snapshot{}, err
		}
	}

	s.replaceTop(op.Pop, results)
	e.logger.Debug("operation applied", "op", op.Name, "size", s.Len())
	return s.Snapshot(), nil
}

// Push pushes v onto s and returns the resulting snapshot.
func (e *Engine) Push(s *Stack, v float64) (Snapshot, error) {
	if err := s.Push(v); err != nil {
		e.logger.Debug("push rejected", "value", v, "error", err)
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}
