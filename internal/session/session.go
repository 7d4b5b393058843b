package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/rpn/internal/engine"
)

// Session is the single client-facing handle on one logical stack.
//
// At most one mutating call (Push, Apply, Clear) is outstanding at a time;
// a second one started meanwhile fails fast with ErrBusy. State is never
// blocked by an in-flight mutation.
type Session struct {
	id       string
	backend  Backend
	logger   *slog.Logger
	inflight *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	id     string
	gen    IDGenerator
	logger *slog.Logger
}

// WithID sets the session id. Without it an id is generated.
func WithID(id string) Option {
	return func(c *sessionConfig) {
		c.id = id
	}
}

// WithIDGenerator sets the generator used when no id is given.
// Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *sessionConfig) {
		c.gen = gen
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// New wraps backend in a Session. The session owns the backend and closes
// it on Close.
func New(backend Backend, opts ...Option) *Session {
	cfg := &sessionConfig{gen: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = cfg.gen.Generate()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Session{
		id:       cfg.id,
		backend:  backend,
		logger:   cfg.logger.With("session", cfg.id),
		inflight: semaphore.NewWeighted(1),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Backend returns the wrapped backend.
func (s *Session) Backend() Backend {
	return s.backend
}

// State returns the current snapshot.
func (s *Session) State(ctx context.Context) (engine.Snapshot, error) {
	if s.isClosed() {
		return engine.Snapshot{}, ErrClosed
	}
	return s.backend.State(ctx)
}

// Push pushes value onto the stack.
func (s *Session) Push(ctx context.Context, value float64) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := s.mutate("push", func() error {
		var err error
		snap, err = s.backend.Push(ctx, value)
		return err
	})
	return snap, err
}

// Apply runs the named operation.
func (s *Session) Apply(ctx context.Context, name string) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := s.mutate(name, func() error {
		var err error
		snap, err = s.backend.Apply(ctx, name)
		return err
	})
	return snap, err
}

// Clear empties the stack.
func (s *Session) Clear(ctx context.Context) (Ack, error) {
	var ack Ack
	err := s.mutate("clear", func() error {
		var err error
		ack, err = s.backend.Clear(ctx)
		return err
	})
	return ack, err
}

// Close closes the backend. Further calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.backend.Close()
}

func (s *Session) mutate(label string, call func() error) error {
	if s.isClosed() {
		return ErrClosed
	}
	if !s.inflight.TryAcquire(1) {
		s.logger.Debug("mutation rejected", "op", label, "reason", "busy")
		return ErrBusy
	}
	defer s.inflight.Release(1)

	if err := call(); err != nil {
		s.logFailure(label, err)
		return err
	}

	s.logger.Debug("mutation applied", "op", label)
	return nil
}

func (s *Session) logFailure(label string, err error) {
	if kind, ok := engine.KindOf(err); ok {
		s.logger.Debug("mutation rejected", "op", label, "kind", string(kind), "error", err)
		return
	}
	s.logger.Warn("mutation failed", "op", label, "error", err)
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
