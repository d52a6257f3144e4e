package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/vegcensus?sslmode=disable"

const postgresResultsDDL = `CREATE TABLE IF NOT EXISTS site_results (
	run_id TEXT NOT NULL,
	site_id TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	plot_years INTEGER NOT NULL,
	payload BYTEA NOT NULL,
	PRIMARY KEY (run_id, site_id)
)`

// NewPostgres opens a postgres-backed result store using the provided DSN
// (falls back to a localhost default) and ensures the schema exists.
func NewPostgres(dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresResultsDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &SQLStore{db: db, driver: DriverPostgres, rebind: rebindPositional}, nil
}
