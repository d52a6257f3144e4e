package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vegcensus/internal/blob"
	"vegcensus/internal/pipeline"
	"vegcensus/pkg/domain"
)

func summaryFixture() domain.PlotYearSummary {
	s := domain.PlotYearSummary{
		SiteID:     "SJER",
		PlotID:     "SJER_001",
		Year:       2015,
		PlotAreaM2: domain.Q(1600),
		TreeAreaM2: domain.Q(800),
		NTrees:     3,
		NFilled:    1,
	}
	s.Tree.Set(domain.EstimatorJenkins, domain.Q(5))
	s.Total.Set(domain.EstimatorJenkins, domain.Q(5))
	return s
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}

func column(t *testing.T, records [][]string, name string, row int) string {
	t.Helper()
	for i, col := range records[0] {
		if col == name {
			return records[row][i]
		}
	}
	t.Fatalf("column %q not in header %v", name, records[0])
	return ""
}

func TestPlotSummaryTableCSV(t *testing.T) {
	table := PlotSummaryTable([]domain.PlotYearSummary{summaryFixture()})
	data, err := table.CSV()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	records := parseCSV(t, data)
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus one row", len(records))
	}
	if got := column(t, records, "tree_AGBJenkins", 1); got != "5" {
		t.Fatalf("tree_AGBJenkins = %q, want 5", got)
	}
	if got := column(t, records, "tree_AGBChojnacky", 1); got != "NA" {
		t.Fatalf("missing density = %q, want NA", got)
	}
	if got := column(t, records, "small_woody_AGBJenkins", 1); got != "NA" {
		t.Fatalf("small_woody_AGBJenkins = %q, want NA", got)
	}
	if got := column(t, records, "n_filled", 1); got != "1" {
		t.Fatalf("n_filled = %q, want 1", got)
	}
	if got := column(t, records, "totalSampledAreaTrees_m2", 1); got != "800" {
		t.Fatalf("totalSampledAreaTrees_m2 = %q, want 800", got)
	}
}

func TestSeriesTableWideSharesSiteSpan(t *testing.T) {
	series := domain.SeriesTable{
		Estimator: domain.EstimatorJenkins,
		MinYear:   2015,
		MaxYear:   2017,
		Rows: []domain.SeriesRow{
			{
				SiteID: "SJER", PlotID: "SJER_001", PlotAreaM2: domain.Q(1600),
				FirstYear: 2015, LastYear: 2017,
				Values: map[int]domain.Quantity{2015: domain.Q(10), 2016: domain.Q(12), 2017: domain.Q(14)},
				Change: map[int]domain.Quantity{2016: domain.Q(2), 2017: domain.Q(2)},
			},
			{
				SiteID: "SJER", PlotID: "SJER_002", PlotAreaM2: domain.Q(1600),
				FirstYear: 2016, LastYear: 2017,
				Values: map[int]domain.Quantity{2016: domain.Q(3), 2017: domain.Q(4)},
				Change: map[int]domain.Quantity{2017: domain.Q(1)},
			},
		},
	}
	table := SeriesTableWide(series)
	if table.Name != "series_AGBJenkins" {
		t.Fatalf("table name = %q", table.Name)
	}
	data, err := table.CSV()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	records := parseCSV(t, data)
	if got := column(t, records, "agb_2016", 1); got != "12" {
		t.Fatalf("agb_2016 plot 1 = %q, want 12", got)
	}
	// Plot 2 was not surveyed in 2015: outside its span the value is NA.
	if got := column(t, records, "agb_2015", 2); got != "NA" {
		t.Fatalf("agb_2015 plot 2 = %q, want NA", got)
	}
	if got := column(t, records, "change_2017", 2); got != "1" {
		t.Fatalf("change_2017 plot 2 = %q, want 1", got)
	}
	if got := column(t, records, "change_2015", 1); got != "NA" {
		t.Fatalf("change_2015 plot 1 = %q, want NA", got)
	}
}

func TestTableJSONKeysByColumn(t *testing.T) {
	table := UnaccountedTable([]domain.UnaccountedIndividual{{
		SiteID:       "SJER",
		PlotID:       "SJER_001",
		IndividualID: "NEON.T2",
		Status:       domain.UnaccountedNoAllometry,
		Reason:       "has diameter measurements but no mass estimates",
	}})
	data, err := table.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var objs []map[string]string
	if err := json.Unmarshal(data, &objs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("got %d objects, want 1", len(objs))
	}
	if objs[0]["status"] != "NO_ALLOMETRY" {
		t.Fatalf("status = %q", objs[0]["status"])
	}
	if objs[0]["individualID"] != "NEON.T2" {
		t.Fatalf("individualID = %q", objs[0]["individualID"])
	}
}

func resultFixture() *pipeline.SiteResult {
	return &pipeline.SiteResult{
		SiteID:      "SJER",
		RunID:       "run-1234",
		PlotSummary: []domain.PlotYearSummary{summaryFixture()},
		Series: []domain.SeriesTable{
			{Estimator: domain.EstimatorJenkins},
			{Estimator: domain.EstimatorChojnacky},
			{Estimator: domain.EstimatorAnnighofer},
		},
	}
}

func TestDirWriterWritesOneFilePerTable(t *testing.T) {
	root := t.TempDir()
	w := DirWriter{Root: root}
	paths, err := w.WriteSite(resultFixture())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	// plot_summary, unaccounted, individuals, and three series tables.
	if len(paths) != 6 {
		t.Fatalf("got %d files, want 6: %v", len(paths), paths)
	}
	want := filepath.Join(root, "SJER", "plot_summary.csv")
	if paths[0] != want {
		t.Fatalf("first path = %q, want %q", paths[0], want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "total_AGBAnnighofer") {
		t.Fatalf("plot summary header missing estimator column:\n%s", data)
	}
}

func TestArtifactWriterStoresKeyedByRun(t *testing.T) {
	store := blob.NewMemory()
	w := ArtifactWriter{Store: store, Format: FormatJSON}
	keys, err := w.WriteSite(context.Background(), resultFixture())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(keys) != 6 {
		t.Fatalf("got %d keys, want 6: %v", len(keys), keys)
	}
	if keys[0] != "runs/run-1234/SJER/plot_summary.json" {
		t.Fatalf("first key = %q", keys[0])
	}
	info, err := store.Head(context.Background(), keys[0])
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("content type = %q", info.ContentType)
	}
	if info.Metadata["rows"] != "1" {
		t.Fatalf("rows metadata = %q, want 1", info.Metadata["rows"])
	}
	infos, err := store.List(context.Background(), "runs/run-1234/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 6 {
		t.Fatalf("listed %d artifacts, want 6", len(infos))
	}
}
