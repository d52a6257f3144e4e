package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"vegcensus/internal/blob"
	"vegcensus/internal/pipeline"
)

// Format selects a table encoding.
type Format string

// Supported encodings.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Encode renders the table in the given format.
func Encode(t Table, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return t.CSV()
	case FormatJSON:
		return t.JSON()
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func contentType(format Format) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Tables renders every output table of one processed site.
func Tables(res *pipeline.SiteResult) []Table {
	tables := []Table{
		PlotSummaryTable(res.PlotSummary),
		UnaccountedTable(res.Unaccounted),
		IndividualsTable(res.Individuals),
	}
	for _, series := range res.Series {
		tables = append(tables, SeriesTableWide(series))
	}
	return tables
}

// DirWriter writes site tables as flat files under a local output directory.
type DirWriter struct {
	Root   string
	Format Format
	Logger *zap.Logger
}

// WriteSite writes one file per table under <root>/<siteID>/ and returns the
// written paths.
func (w DirWriter) WriteSite(res *pipeline.SiteResult) ([]string, error) {
	format := w.Format
	if format == "" {
		format = FormatCSV
	}
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Join(w.Root, res.SiteID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, table := range Tables(res) {
		data, err := Encode(table, format)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", table.Name, err)
		}
		path := filepath.Join(dir, table.Name+"."+string(format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", table.Name, err)
		}
		logger.Debug("wrote table",
			zap.String("site", res.SiteID),
			zap.String("table", table.Name),
			zap.String("path", path),
			zap.Int("rows", len(table.Rows)))
		paths = append(paths, path)
	}
	return paths, nil
}

// ArtifactWriter stores rendered site tables in a blob store, keyed by run.
type ArtifactWriter struct {
	Store  blob.Store
	Format Format
	Logger *zap.Logger
}

// WriteSite stores one artifact per table under runs/<runID>/<siteID>/ and
// returns the stored keys.
func (w ArtifactWriter) WriteSite(ctx context.Context, res *pipeline.SiteResult) ([]string, error) {
	format := w.Format
	if format == "" {
		format = FormatCSV
	}
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var keys []string
	for _, table := range Tables(res) {
		data, err := Encode(table, format)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", table.Name, err)
		}
		key := fmt.Sprintf("runs/%s/%s/%s.%s", res.RunID, res.SiteID, table.Name, format)
		_, err = w.Store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: contentType(format),
			Metadata: map[string]string{
				"site":   res.SiteID,
				"table":  table.Name,
				"format": string(format),
				"rows":   strconv.Itoa(len(table.Rows)),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", table.Name, err)
		}
		logger.Debug("stored artifact",
			zap.String("site", res.SiteID),
			zap.String("key", key),
			zap.Int("rows", len(table.Rows)))
		keys = append(keys, key)
	}
	return keys, nil
}
