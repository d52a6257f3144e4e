// Package export renders the pipeline outputs as CSV and JSON documents and
// stores them as run artifacts.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"vegcensus/pkg/domain"
)

// Table is a fully rendered tabular document with a fixed column order.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// CSV encodes the table with a header row.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON encodes the table as an array of column-keyed objects.
func (t Table) JSON() ([]byte, error) {
	objs := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		objs = append(objs, obj)
	}
	return json.MarshalIndent(objs, "", "  ")
}

func itoa(v int) string { return strconv.Itoa(v) }

// PlotSummaryTable renders the plot-year summary rows.
func PlotSummaryTable(rows []domain.PlotYearSummary) Table {
	header := []string{"siteID", "plotID", "year", "plotArea_m2",
		"totalSampledAreaTrees_m2", "totalSampledAreaShrubSapling_m2"}
	for _, est := range domain.Estimators {
		header = append(header, "tree_"+string(est))
	}
	for _, est := range domain.Estimators {
		header = append(header, "small_woody_"+string(est))
	}
	for _, est := range domain.Estimators {
		header = append(header, "total_"+string(est))
	}
	header = append(header, "n_trees", "n_filled", "n_removed", "n_not_qualified",
		"n_small_woody_total", "n_small_woody_measured", "n_unaccounted_trees")
	for _, est := range domain.Estimators {
		header = append(header, "growth_"+string(est))
	}
	for _, est := range domain.Estimators {
		header = append(header, "growth_trend_"+string(est))
	}

	table := Table{Name: "plot_summary", Header: header}
	for _, r := range rows {
		row := []string{r.SiteID, r.PlotID, itoa(r.Year), r.PlotAreaM2.String(),
			r.TreeAreaM2.String(), r.SmallWoodyAreaM2.String()}
		for _, est := range domain.Estimators {
			row = append(row, r.Tree.Get(est).String())
		}
		for _, est := range domain.Estimators {
			row = append(row, r.SmallWoody.Get(est).String())
		}
		for _, est := range domain.Estimators {
			row = append(row, r.Total.Get(est).String())
		}
		row = append(row, itoa(r.NTrees), itoa(r.NFilled), itoa(r.NRemoved), itoa(r.NNotQualified),
			itoa(r.NSmallWoodyTotal), itoa(r.NSmallWoodyMeasured), itoa(r.NUnaccounted))
		for _, est := range domain.Estimators {
			row = append(row, r.AnnualGrowth.Get(est).String())
		}
		for _, est := range domain.Estimators {
			row = append(row, r.TrendGrowth.Get(est).String())
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// UnaccountedTable renders the unaccounted-individuals report.
func UnaccountedTable(rows []domain.UnaccountedIndividual) Table {
	table := Table{
		Name:   "unaccounted",
		Header: []string{"siteID", "plotID", "individualID", "scientificName", "taxonID", "status", "reason"},
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			r.SiteID, r.PlotID, r.IndividualID, r.ScientificName, r.TaxonID, string(r.Status), r.Reason,
		})
	}
	return table
}

// IndividualsTable renders the long-form individual rows.
func IndividualsTable(rows []domain.IndividualRow) Table {
	header := []string{"siteID", "plotID", "individualID", "year"}
	for _, est := range domain.Estimators {
		header = append(header, string(est))
	}
	for _, est := range domain.Estimators {
		header = append(header, "growth_"+string(est))
	}
	for _, est := range domain.Estimators {
		header = append(header, "growth_cumu_"+string(est))
	}
	header = append(header, "stemDiameter", "height", "plantStatus", "gapFilling",
		"corrected_is_dead", "scientificName", "taxonID", "genus", "family",
		"taxonRank", "pointID", "stemDistance", "stemAzimuth")

	table := Table{Name: "individuals", Header: header}
	for _, r := range rows {
		row := []string{r.SiteID, r.PlotID, r.IndividualID, itoa(r.Year)}
		for _, est := range domain.Estimators {
			row = append(row, r.Mass.Get(est).String())
		}
		for _, est := range domain.Estimators {
			row = append(row, r.Growth.Get(est).String())
		}
		for _, est := range domain.Estimators {
			row = append(row, r.CumulativeGrowth.Get(est).String())
		}
		row = append(row, r.StemDiameter.String(), r.Height.String(), r.Status,
			string(r.Provenance), strconv.FormatBool(r.CorrectedDead),
			r.ScientificName, r.TaxonID, r.Genus, r.Family,
			r.TaxonRank, r.PointID, r.StemDistance.String(), r.StemAzimuth.String())
		table.Rows = append(table.Rows, row)
	}
	return table
}

// SeriesTableWide renders one interpolated series table: one row per plot,
// one agb and one change column per year of the site-wide span. Years outside
// a plot's own span render as NA.
func SeriesTableWide(series domain.SeriesTable) Table {
	header := []string{"siteID", "plotID", "plotArea_m2"}
	for year := series.MinYear; year <= series.MaxYear; year++ {
		header = append(header, fmt.Sprintf("agb_%d", year))
	}
	for year := series.MinYear; year <= series.MaxYear; year++ {
		header = append(header, fmt.Sprintf("change_%d", year))
	}

	table := Table{Name: "series_" + string(series.Estimator), Header: header}
	if series.MinYear == 0 && series.MaxYear == 0 && len(series.Rows) == 0 {
		return table
	}
	for _, r := range series.Rows {
		row := []string{r.SiteID, r.PlotID, r.PlotAreaM2.String()}
		for year := series.MinYear; year <= series.MaxYear; year++ {
			row = append(row, r.Values[year].String())
		}
		for year := series.MinYear; year <= series.MaxYear; year++ {
			row = append(row, r.Change[year].String())
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
