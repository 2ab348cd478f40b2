package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql. The schema is written to be idempotent,
// so this runs unconditionally on every startup.
func Migrate(db *sql.DB) error {
	path := os.Getenv("BOOKHUB_SCHEMA_PATH")
	if path == "" {
		path = "docs/schema.sql"
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
