package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/attendrix/server/internal/db"
)

// openTestDB opens a file-backed database in a per-test temp directory
// through the production open path, so tests run with the same PRAGMAs,
// pool limits and migrations as a real deployment.  Cleanup is automatic.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.Config{
		Path: filepath.Join(t.TempDir(), "attendrix-test.db"),
		Env:  "dev",
	})
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed automatically
// when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}
