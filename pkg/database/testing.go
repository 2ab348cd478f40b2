package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// OpenTest returns an in-memory database with the full schema applied.
// Closed automatically when the test finishes.
func OpenTest(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		tb.Fatalf("enable foreign keys: %v", err)
	}

	// locate docs/schema.sql relative to this source file so tests work from
	// any package directory
	_, file, _, _ := runtime.Caller(0)
	schemaPath := filepath.Join(filepath.Dir(file), "..", "..", "docs", "schema.sql")
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		tb.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		tb.Fatalf("apply schema: %v", err)
	}
	return db
}
