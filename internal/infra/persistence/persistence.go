// Package persistence stores processed site results so runs can be audited
// and re-exported without recomputing. Results are kept as JSON snapshots
// keyed by run and site, with sqlite, postgres, and in-memory backends.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vegcensus/internal/pipeline"
)

// Driver identifies a concrete result-store backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// ErrNoResult reports a run/site pair with no stored result.
var ErrNoResult = errors.New("no stored result")

// RunRecord summarizes one stored site result.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	SiteID      string    `json:"site_id"`
	GeneratedAt time.Time `json:"generated_at"`
	PlotYears   int       `json:"plot_years"`
}

// Store is the result persistence contract.
type Store interface {
	// SaveResult stores one site result. Saving the same run/site pair again
	// replaces the earlier snapshot.
	SaveResult(ctx context.Context, res *pipeline.SiteResult) error
	LoadResult(ctx context.Context, runID, siteID string) (*pipeline.SiteResult, error)
	// ListResults returns stored results ordered by run then site.
	ListResults(ctx context.Context) ([]RunRecord, error)
	Close() error
}

// Open selects a backend by driver name. The path argument is the sqlite file
// path; dsn is the postgres connection string.
func Open(driver Driver, path, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		return NewSQLite(path)
	case DriverPostgres:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
