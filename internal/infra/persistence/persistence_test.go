package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vegcensus/internal/pipeline"
	"vegcensus/pkg/domain"
)

func resultFixture(runID, siteID string) *pipeline.SiteResult {
	summary := domain.PlotYearSummary{
		SiteID:     siteID,
		PlotID:     siteID + "_001",
		Year:       2015,
		PlotAreaM2: domain.Q(1600),
	}
	summary.Tree.Set(domain.EstimatorJenkins, domain.Q(5))
	return &pipeline.SiteResult{
		SiteID:      siteID,
		RunID:       runID,
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		PlotSummary: []domain.PlotYearSummary{summary},
		Unaccounted: []domain.UnaccountedIndividual{{
			SiteID:       siteID,
			IndividualID: "NEON.U1",
			Status:       domain.UnaccountedUnmeasured,
		}},
	}
}

func testResultStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.LoadResult(ctx, "run-1", "SJER"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("load before save: %v, want ErrNoResult", err)
	}

	if err := store.SaveResult(ctx, resultFixture("run-1", "SJER")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveResult(ctx, resultFixture("run-1", "BART")); err != nil {
		t.Fatalf("save second site: %v", err)
	}

	res, err := store.LoadResult(ctx, "run-1", "SJER")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.SiteID != "SJER" || res.RunID != "run-1" {
		t.Fatalf("loaded identity %s/%s", res.RunID, res.SiteID)
	}
	if len(res.PlotSummary) != 1 {
		t.Fatalf("got %d summary rows, want 1", len(res.PlotSummary))
	}
	got := res.PlotSummary[0].Tree.Get(domain.EstimatorJenkins)
	if !got.Valid || got.Value != 5 {
		t.Fatalf("tree density round-trip = %v", got)
	}
	if missing := res.PlotSummary[0].Tree.Get(domain.EstimatorChojnacky); missing.Valid {
		t.Fatalf("missing density became %v after round-trip", missing)
	}
	if len(res.Unaccounted) != 1 || res.Unaccounted[0].Status != domain.UnaccountedUnmeasured {
		t.Fatalf("unaccounted round-trip = %+v", res.Unaccounted)
	}

	// Re-saving the same run/site replaces the snapshot.
	updated := resultFixture("run-1", "SJER")
	updated.PlotSummary = append(updated.PlotSummary, updated.PlotSummary[0])
	if err := store.SaveResult(ctx, updated); err != nil {
		t.Fatalf("resave: %v", err)
	}

	records, err := store.ListResults(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].SiteID != "BART" || records[1].SiteID != "SJER" {
		t.Fatalf("records out of order: %+v", records)
	}
	if records[1].PlotYears != 2 {
		t.Fatalf("plot years = %d, want 2 after resave", records[1].PlotYears)
	}
	if !records[1].GeneratedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("generated_at round-trip = %v", records[1].GeneratedAt)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	defer func() { _ = store.Close() }()
	testResultStore(t, store)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = store.Close() }()
	testResultStore(t, store)
}

func TestSQLiteStoreReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.SaveResult(context.Background(), resultFixture("run-9", "SJER")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	res, err := reopened.LoadResult(context.Background(), "run-9", "SJER")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if res.SiteID != "SJER" {
		t.Fatalf("site = %q", res.SiteID)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("VEGCENSUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VEGCENSUS_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.DB().Exec(`DELETE FROM site_results`); err != nil {
		t.Fatalf("reset table: %v", err)
	}
	testResultStore(t, store)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRebindPositional(t *testing.T) {
	got := rebindPositional("INSERT INTO t (a, b) VALUES (?, ?) ON CONFLICT DO UPDATE SET a = ?")
	want := "INSERT INTO t (a, b) VALUES ($1, $2) ON CONFLICT DO UPDATE SET a = $3"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
}
