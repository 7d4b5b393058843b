package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/roach88/rpn/internal/engine"
)

// Mutation kinds recorded in the operations log.
const (
	KindPush  = "push"
	KindApply = "apply"
	KindClear = "clear"
)

// Operation outcomes recorded in the operations log.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// Mutation describes a mutation for the operations log.
type Mutation struct {
	Kind  string   // KindPush, KindApply or KindClear
	Name  string   // operation name for KindApply
	Value *float64 // pushed value for KindPush
}

// Push describes pushing v.
func Push(v float64) Mutation {
	return Mutation{Kind: KindPush, Value: &v}
}

// Apply describes applying the named operation.
func Apply(name string) Mutation {
	return Mutation{Kind: KindApply, Name: name}
}

// Clear describes clearing the stack.
func Clear() Mutation {
	return Mutation{Kind: KindClear}
}

// Label renders the mutation the way it appears as last_operation,
// e.g. "push(3.5)", "add", "clear".
func (m Mutation) Label() string {
	switch m.Kind {
	case KindPush:
		if m.Value == nil {
			return "push"
		}
		return "push(" + strconv.FormatFloat(*m.Value, 'g', -1, 64) + ")"
	case KindApply:
		return m.Name
	default:
		return m.Kind
	}
}

// EnsureSession creates the session row if it does not exist.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) EnsureSession(ctx context.Context, id string) error {
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, ts, ts)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// Mutate loads the session's full ordered stack, runs fn against it and
// persists the result, all inside one transaction.
//
// If fn returns an error the transaction is rolled back, so the stored stack
// is unchanged. Calculation errors (engine.Error) are additionally recorded
// in the operations log as rejected; other errors are returned as-is.
//
// The session is created on first use.
func (s *Store) Mutate(ctx context.Context, id string, m Mutation, fn func(*engine.Stack) error) (engine.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	ts := s.timestamp()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, ts, ts); err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: ensure session: %w", err)
	}

	stack, err := loadStack(ctx, tx, id)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: %w", err)
	}

	if fnErr := fn(stack); fnErr != nil {
		// Release the connection before logging the rejection.
		_ = tx.Rollback()
		if kind, ok := engine.KindOf(fnErr); ok {
			if err := s.recordRejection(ctx, id, m, string(kind)); err != nil {
				return engine.Snapshot{}, err
			}
		}
		return engine.Snapshot{}, fnErr
	}

	snap := stack.Snapshot()
	if err := writeStack(ctx, tx, id, snap.Stack); err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET updated_at = ?, operation_count = operation_count + 1, last_operation = ?
		WHERE id = ?
	`, ts, m.Label(), id); err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: update session: %w", err)
	}

	if err := insertOperation(ctx, tx, id, m, OutcomeOK, "", snap.Size, ts); err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return engine.Snapshot{}, fmt.Errorf("mutate: commit: %w", err)
	}

	return snap, nil
}

// DeleteSession removes a session with its stack and log.
// Returns false if the session did not exist.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: rows affected: %w", err)
	}
	return n > 0, nil
}

// recordRejection appends a rejected entry with the current stack size.
func (s *Store) recordRejection(ctx context.Context, id string, m Mutation, detail string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record rejection: begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := s.timestamp()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, ts, ts); err != nil {
		return fmt.Errorf("record rejection: ensure session: %w", err)
	}

	var size int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM stack_values WHERE session_id = ?
	`, id).Scan(&size); err != nil {
		return fmt.Errorf("record rejection: count: %w", err)
	}

	if err := insertOperation(ctx, tx, id, m, OutcomeRejected, detail, size, ts); err != nil {
		return fmt.Errorf("record rejection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record rejection: commit: %w", err)
	}
	return nil
}

// writeStack replaces all stored values of a session.
func writeStack(ctx context.Context, tx *sql.Tx, id string, values []float64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM stack_values WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear stack values: %w", err)
	}
	if len(values) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stack_values (session_id, pos, bits) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stack insert: %w", err)
	}
	defer stmt.Close()

	for pos, v := range values {
		if _, err := stmt.ExecContext(ctx, id, pos, encodeValue(v)); err != nil {
			return fmt.Errorf("insert stack value %d: %w", pos, err)
		}
	}
	return nil
}

func insertOperation(ctx context.Context, tx *sql.Tx, id string, m Mutation, outcome, detail string, sizeAfter int, ts string) error {
	var value sql.NullFloat64
	if m.Value != nil {
		value = sql.NullFloat64{Float64: *m.Value, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operations
		(session_id, kind, name, value, outcome, detail, size_after, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, m.Kind, m.Name, value, outcome, detail, sizeAfter, ts)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}
