package timeseries

import (
	"sort"

	"vegcensus/pkg/domain"
)

// Interpolate builds the densely interpolated series for one estimator from
// the summary rows (totals must already be computed by AddGrowth). Each plot
// gets one row covering every integer year of its own survey span: survey
// years carry the true value, interior years the linear interpolation
// between the bracketing surveys (missing when either bracket is missing).
// No values are produced outside a plot's span.
func Interpolate(rows []domain.PlotYearSummary, est domain.Estimator) domain.SeriesTable {
	table := domain.SeriesTable{Estimator: est}
	if len(rows) == 0 {
		return table
	}

	byPlot := make(map[string][]domain.PlotYearSummary)
	plotIDs := make([]string, 0)
	for _, r := range rows {
		if _, ok := byPlot[r.PlotID]; !ok {
			plotIDs = append(plotIDs, r.PlotID)
		}
		byPlot[r.PlotID] = append(byPlot[r.PlotID], r)
		if table.MinYear == 0 || r.Year < table.MinYear {
			table.MinYear = r.Year
		}
		if r.Year > table.MaxYear {
			table.MaxYear = r.Year
		}
	}
	sort.Strings(plotIDs)

	for _, plotID := range plotIDs {
		plot := byPlot[plotID]
		sort.Slice(plot, func(i, j int) bool { return plot[i].Year < plot[j].Year })
		first, last := plot[0].Year, plot[len(plot)-1].Year

		row := domain.SeriesRow{
			SiteID:     plot[0].SiteID,
			PlotID:     plotID,
			PlotAreaM2: plot[0].PlotAreaM2,
			FirstYear:  first,
			LastYear:   last,
			Values:     make(map[int]domain.Quantity),
			Change:     make(map[int]domain.Quantity),
		}

		surveyed := make(map[int]domain.Quantity, len(plot))
		for _, r := range plot {
			surveyed[r.Year] = r.Total.Get(est)
		}
		for year := first; year <= last; year++ {
			if v, ok := surveyed[year]; ok {
				row.Values[year] = v
				continue
			}
			row.Values[year] = interpolateYear(plot, est, year)
		}
		prev := domain.Missing
		for year := first; year <= last; year++ {
			cur := row.Values[year]
			if year > first && prev.Valid && cur.Valid {
				row.Change[year] = domain.Q(cur.Value - prev.Value)
			} else {
				row.Change[year] = domain.Missing
			}
			prev = cur
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func interpolateYear(plot []domain.PlotYearSummary, est domain.Estimator, year int) domain.Quantity {
	var before, after *domain.PlotYearSummary
	for i := range plot {
		switch {
		case plot[i].Year < year:
			before = &plot[i]
		case plot[i].Year > year && after == nil:
			after = &plot[i]
		}
	}
	if before == nil || after == nil {
		return domain.Missing
	}
	lo := before.Total.Get(est)
	hi := after.Total.Get(est)
	if !lo.Valid || !hi.Valid {
		return domain.Missing
	}
	fraction := float64(year-before.Year) / float64(after.Year-before.Year)
	return domain.Q(lo.Value + fraction*(hi.Value-lo.Value))
}
