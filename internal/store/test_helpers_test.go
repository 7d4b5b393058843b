package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rpn/internal/testutil"
)

// createTestStore creates a new on-disk store in a temp dir with a frozen clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreWithClock(t, testutil.NewStepClock(0))
}

// createTestStoreWithClock creates a store stamping rows from clock.
func createTestStoreWithClock(t *testing.T, clock *testutil.StepClock) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock() time.Time {
	return testutil.Epoch
}

// getTableColumns returns the column names of a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column failed: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
