package session

import (
	"context"
	"fmt"

	"github.com/roach88/rpn/internal/engine"
	"github.com/roach88/rpn/internal/store"
)

// Durable is the local durable fallback Backend over a SQLite store.
//
// Every primitive loads and saves the full ordered stack inside one store
// transaction, so a crash between calls never exposes a partial operation.
type Durable struct {
	store     *store.Store
	id        string
	eng       *engine.Engine
	ownsStore bool
}

// NewDurable creates a backend for session id on an open store.
// The caller keeps ownership of st.
func NewDurable(st *store.Store, id string, eng *engine.Engine) *Durable {
	if eng == nil {
		eng = engine.New()
	}
	return &Durable{store: st, id: id, eng: eng}
}

// OpenDurable opens the SQLite database at path and returns a backend for
// session id that closes the database on Close.
func OpenDurable(path, id string, eng *engine.Engine) (*Durable, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open durable session: %w", err)
	}
	d := NewDurable(st, id, eng)
	d.ownsStore = true
	return d, nil
}

// ID returns the session id.
func (d *Durable) ID() string {
	return d.id
}

// Store returns the underlying store.
func (d *Durable) Store() *store.Store {
	return d.store
}

// State implements Backend.
func (d *Durable) State(ctx context.Context) (engine.Snapshot, error) {
	return d.store.Snapshot(ctx, d.id)
}

// Push implements Backend.
func (d *Durable) Push(ctx context.Context, value float64) (engine.Snapshot, error) {
	return d.store.Mutate(ctx, d.id, store.Push(value), func(s *engine.Stack) error {
		_, err := d.eng.Push(s, value)
		return err
	})
}

// Apply implements Backend.
func (d *Durable) Apply(ctx context.Context, name string) (engine.Snapshot, error) {
	label := name
	if canonical, ok := engine.Normalize(name); ok {
		label = canonical
	}
	return d.store.Mutate(ctx, d.id, store.Apply(label), func(s *engine.Stack) error {
		_, err := d.eng.Apply(name, s)
		return err
	})
}

// Clear implements Backend.
func (d *Durable) Clear(ctx context.Context) (Ack, error) {
	_, err := d.store.Mutate(ctx, d.id, store.Clear(), func(s *engine.Stack) error {
		s.Clear()
		return nil
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Message: ClearedMessage}, nil
}

// Close implements Backend. The store is closed only if OpenDurable opened it.
func (d *Durable) Close() error {
	if !d.ownsStore {
		return nil
	}
	return d.store.Close()
}
