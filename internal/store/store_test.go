package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vonheldenundgestalten/tokenlogin/internal/database"
)

// openTestDB opens a file-backed database in a per-test temp dir. A file
// is used instead of :memory: because the concurrency tests fan out over
// multiple pooled connections, and each in-memory connection would see
// its own empty database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
