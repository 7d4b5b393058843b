package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/rpn/internal/engine"
)

// SessionInfo is the stored metadata of a session.
type SessionInfo struct {
	ID             string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OperationCount int64     `json:"operation_count"`
	LastOperation  string    `json:"last_operation,omitempty"`
	Size           int       `json:"size"`
}

// OperationRecord is one entry of the operations log.
type OperationRecord struct {
	Seq        int64     `json:"seq"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name,omitempty"`
	Value      *float64  `json:"value,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	SizeAfter  int       `json:"size_after"`
	RecordedAt time.Time `json:"recorded_at"`
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadStack returns the session's stack. An unknown session yields an empty
// stack, matching a freshly created session.
func (s *Store) LoadStack(ctx context.Context, id string) (*engine.Stack, error) {
	stack, err := loadStack(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("load stack: %w", err)
	}
	return stack, nil
}

// Snapshot returns the session's stack as a snapshot.
func (s *Store) Snapshot(ctx context.Context, id string) (engine.Snapshot, error) {
	stack, err := s.LoadStack(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return stack.Snapshot(), nil
}

func loadStack(ctx context.Context, q queryer, id string) (*engine.Stack, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT bits FROM stack_values
		WHERE session_id = ?
		ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query stack values: %w", err)
	}
	defer rows.Close()

	values := []float64{}
	for rows.Next() {
		var bits int64
		if err := rows.Scan(&bits); err != nil {
			return nil, fmt.Errorf("scan stack value: %w", err)
		}
		values = append(values, decodeValue(bits))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stack values: %w", err)
	}

	// A non-finite stored value means the database was edited by hand.
	return engine.Restore(values)
}

// SessionInfo returns the metadata of a session.
// Returns ErrSessionNotFound if the session has never been written.
func (s *Store) SessionInfo(ctx context.Context, id string) (SessionInfo, error) {
	var (
		info             SessionInfo
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, s.operation_count, s.last_operation,
		       (SELECT COUNT(*) FROM stack_values v WHERE v.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id).Scan(&info.ID, &created, &updated, &info.OperationCount, &info.LastOperation, &info.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("query session: %w", err)
	}

	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return SessionInfo{}, fmt.Errorf("parse created_at: %w", err)
	}
	if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return SessionInfo{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return info, nil
}

// Sessions lists all stored sessions ordered by id.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	// Rows are closed before the per-session queries: the pool has one connection.
	infos := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.SessionInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Operations returns the operations log of a session ordered by seq.
// A limit <= 0 returns every entry; otherwise the most recent limit entries.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) Operations(ctx context.Context, id string, limit int) ([]OperationRecord, error) {
	query := `
		SELECT seq, session_id, kind, name, value, outcome, detail, size_after, recorded_at
		FROM operations
		WHERE session_id = ?
		ORDER BY seq ASC
	`
	args := []any{id}
	if limit > 0 {
		query = `
			SELECT * FROM (
				SELECT seq, session_id, kind, name, value, outcome, detail, size_after, recorded_at
				FROM operations
				WHERE session_id = ?
				ORDER BY seq DESC
				LIMIT ?
			) ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	records := []OperationRecord{}
	for rows.Next() {
		var (
			rec      OperationRecord
			value    sql.NullFloat64
			recorded string
		)
		if err := rows.Scan(&rec.Seq, &rec.SessionID, &rec.Kind, &rec.Name, &value,
			&rec.Outcome, &rec.Detail, &rec.SizeAfter, &recorded); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if value.Valid {
			v := value.Float64
			rec.Value = &v
		}
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}

	return records, nil
}
