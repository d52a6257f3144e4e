package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vegcensus/internal/pipeline"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store over database/sql. The sqlite and postgres
// constructors differ only in driver registration, DDL, and placeholder
// syntax.
type SQLStore struct {
	db     *sql.DB
	driver Driver
	rebind func(string) string
}

// Driver reports the backing driver.
func (s *SQLStore) Driver() Driver { return s.driver }

// DB exposes the underlying handle for integration test hooks.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) SaveResult(ctx context.Context, res *pipeline.SiteResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	query := s.rebind(`INSERT INTO site_results (run_id, site_id, generated_at, plot_years, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, site_id) DO UPDATE SET
			generated_at = excluded.generated_at,
			plot_years = excluded.plot_years,
			payload = excluded.payload`)
	_, err = s.db.ExecContext(ctx, query,
		res.RunID, res.SiteID, res.GeneratedAt.UTC().Format(time.RFC3339Nano),
		len(res.PlotSummary), payload)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadResult(ctx context.Context, runID, siteID string) (*pipeline.SiteResult, error) {
	query := s.rebind(`SELECT payload FROM site_results WHERE run_id = ? AND site_id = ?`)
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, runID, siteID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s site %s: %w", runID, siteID, ErrNoResult)
	}
	if err != nil {
		return nil, fmt.Errorf("select result: %w", err)
	}
	var res pipeline.SiteResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (s *SQLStore) ListResults(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, site_id, generated_at, plot_years FROM site_results ORDER BY run_id, site_id`)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var generated string
		if err := rows.Scan(&rec.RunID, &rec.SiteID, &generated, &rec.PlotYears); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		if rec.GeneratedAt, err = time.Parse(time.RFC3339Nano, generated); err != nil {
			return nil, fmt.Errorf("parse generated_at: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }

// rebindPositional rewrites ? placeholders as $1..$n for postgres.
func rebindPositional(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
