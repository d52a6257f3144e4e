package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const resultsDDL = `CREATE TABLE IF NOT EXISTS site_results (
	run_id TEXT NOT NULL,
	site_id TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	plot_years INTEGER NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (run_id, site_id)
)`

// NewSQLite opens a sqlite-backed result store at path, creating the file and
// schema as needed.
func NewSQLite(path string) (*SQLStore, error) {
	if path == "" {
		path = "vegcensus.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(resultsDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &SQLStore{db: db, driver: DriverSQLite, rebind: func(q string) string { return q }}, nil
}
