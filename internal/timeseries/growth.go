// Package timeseries computes growth metrics over plot summaries and expands
// them into densely interpolated per-plot series.
package timeseries

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"vegcensus/pkg/domain"
)

// RatePerYear is the change rate between two surveys: (current − previous)
// divided by the year gap. Missing when either endpoint is missing or the
// gap is non-positive.
func RatePerYear(current, previous domain.Quantity, currentYear, previousYear int) domain.Quantity {
	if !current.Valid || !previous.Valid {
		return domain.Missing
	}
	gap := currentYear - previousYear
	if gap <= 0 {
		return domain.Missing
	}
	return domain.Q((current.Value - previous.Value) / float64(gap))
}

// TrendSlope is the least-squares slope of value against year over the valid
// points. Missing with fewer than two valid points or without at least two
// distinct years.
func TrendSlope(years []int, values []domain.Quantity) domain.Quantity {
	var xs, ys []float64
	distinct := make(map[int]struct{})
	for i, q := range values {
		if !q.Valid {
			continue
		}
		xs = append(xs, float64(years[i]))
		ys = append(ys, q.Value)
		distinct[years[i]] = struct{}{}
	}
	if len(xs) < 2 || len(distinct) < 2 {
		return domain.Missing
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return domain.Q(slope)
}

// combinedTotal merges the two class densities. A missing component counts
// as zero as long as the other is present; only both-missing stays missing,
// preserving the zero-versus-unknown distinction.
func combinedTotal(tree, smallWoody domain.Quantity) domain.Quantity {
	if !tree.Valid && !smallWoody.Valid {
		return domain.Missing
	}
	return domain.Q(tree.OrZero() + smallWoody.OrZero())
}

// AddGrowth computes the combined total density, the year-over-year growth
// rate, and the long-run trend slope for every summary row, per estimator.
// Rows are reordered by plot then year.
func AddGrowth(rows []domain.PlotYearSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PlotID != rows[j].PlotID {
			return rows[i].PlotID < rows[j].PlotID
		}
		return rows[i].Year < rows[j].Year
	})
	for i := range rows {
		for _, est := range domain.Estimators {
			rows[i].Total.Set(est, combinedTotal(rows[i].Tree.Get(est), rows[i].SmallWoody.Get(est)))
		}
	}
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].PlotID == rows[start].PlotID {
			end++
		}
		plot := rows[start:end]
		for _, est := range domain.Estimators {
			years := make([]int, len(plot))
			totals := make([]domain.Quantity, len(plot))
			for i := range plot {
				years[i] = plot[i].Year
				totals[i] = plot[i].Total.Get(est)
			}
			for i := range plot {
				if i == 0 {
					plot[i].AnnualGrowth.Set(est, domain.Missing)
				} else {
					plot[i].AnnualGrowth.Set(est, RatePerYear(totals[i], totals[i-1], years[i], years[i-1]))
				}
			}
			slope := TrendSlope(years, totals)
			for i := range plot {
				plot[i].TrendGrowth.Set(est, slope)
			}
		}
		start = end
	}
}
