package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added (session_id, seq) index on operations
// 2 - stack_values stores bit patterns (bits INTEGER) instead of value REAL
const currentSchemaVersion = 2

// ErrSessionNotFound is returned when a session id has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// Store provides durable storage for calculator sessions.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for created_at/updated_at and
// recorded_at columns. Timestamps are informational only.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// This also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the per-session log index for databases created before
// it was part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_session_seq
		ON operations(session_id, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 rebuilds a stack_values table that still has the REAL value
// column. Databases created at v2 already have bits and are left alone.
func migrateToV2(db *sql.DB) error {
	var legacy int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('stack_values') WHERE name = 'value'
	`).Scan(&legacy); err != nil {
		return fmt.Errorf("migrate to v2: inspect stack_values: %w", err)
	}
	if legacy == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v2: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		CREATE TABLE stack_values_v2 (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			pos        INTEGER NOT NULL,
			bits       INTEGER NOT NULL,
			PRIMARY KEY (session_id, pos)
		)
	`); err != nil {
		return fmt.Errorf("migrate to v2: create table: %w", err)
	}

	type row struct {
		session string
		pos     int
		value   float64
	}
	rows, err := tx.Query(`SELECT session_id, pos, value FROM stack_values`)
	if err != nil {
		return fmt.Errorf("migrate to v2: read values: %w", err)
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.session, &r.pos, &r.value); err != nil {
			rows.Close()
			return fmt.Errorf("migrate to v2: scan value: %w", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("migrate to v2: iterate values: %w", err)
	}

	for _, r := range all {
		if _, err := tx.Exec(`INSERT INTO stack_values_v2 (session_id, pos, bits) VALUES (?, ?, ?)`,
			r.session, r.pos, encodeValue(r.value)); err != nil {
			return fmt.Errorf("migrate to v2: copy value: %w", err)
		}
	}

	if _, err := tx.Exec(`DROP TABLE stack_values`); err != nil {
		return fmt.Errorf("migrate to v2: drop table: %w", err)
	}
	if _, err := tx.Exec(`ALTER TABLE stack_values_v2 RENAME TO stack_values`); err != nil {
		return fmt.Errorf("migrate to v2: rename table: %w", err)
	}
	return tx.Commit()
}

// encodeValue stores v as its bit pattern so the sign of zero survives.
func encodeValue(v float64) int64 {
	return int64(math.Float64bits(v))
}

func decodeValue(bits int64) float64 {
	return math.Float64frombits(uint64(bits))
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// schemaVersion reports PRAGMA user_version. Used for testing.
func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}
