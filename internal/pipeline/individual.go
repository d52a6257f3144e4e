package pipeline

import (
	"sort"

	"vegcensus/internal/timeseries"
	"vegcensus/pkg/domain"
)

// IndividualTable builds the long-form per-individual output: one row per
// tree-class individual per year, stems collapsed by summing masses (an
// all-missing estimator stays missing) and taking the maximum diameter and
// height. Tagging attributes join on the individual's most recent tag record.
func IndividualTable(cells []domain.IndividualYear, tags []domain.TagRecord, siteID string) []domain.IndividualRow {
	type key struct {
		individualID string
		year         int
	}
	grouped := make(map[key]*domain.IndividualRow)
	var order []key
	for _, c := range cells {
		if c.Category != domain.CategoryTree {
			continue
		}
		k := key{individualID: c.IndividualID, year: c.Year}
		row, ok := grouped[k]
		if !ok {
			row = &domain.IndividualRow{
				SiteID:        siteID,
				PlotID:        c.PlotID,
				IndividualID:  c.IndividualID,
				Year:          c.Year,
				StemDiameter:  c.StemDiameter,
				Height:        c.Height,
				Status:        c.Status,
				Provenance:    c.Provenance,
				CorrectedDead: c.CorrectedDead,
				Mass:          c.Mass,
			}
			grouped[k] = row
			order = append(order, k)
			continue
		}
		for _, est := range domain.Estimators {
			row.Mass.Set(est, sumPreservingMissing(row.Mass.Get(est), c.Mass.Get(est)))
		}
		row.StemDiameter = maxQuantity(row.StemDiameter, c.StemDiameter)
		row.Height = maxQuantity(row.Height, c.Height)
	}

	tagByID := latestTagByIndividual(tags)
	rows := make([]domain.IndividualRow, 0, len(order))
	for _, k := range order {
		row := *grouped[k]
		if tag, ok := tagByID[k.individualID]; ok {
			row.ScientificName = tag.ScientificName
			row.TaxonID = tag.TaxonID
			row.Genus = tag.Genus
			row.Family = tag.Family
			row.TaxonRank = tag.TaxonRank
			row.PointID = tag.PointID
			row.StemDistance = tag.StemDistance
			row.StemAzimuth = tag.StemAzimuth
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IndividualID != rows[j].IndividualID {
			return rows[i].IndividualID < rows[j].IndividualID
		}
		return rows[i].Year < rows[j].Year
	})

	addIndividualGrowth(rows)
	return rows
}

// sumPreservingMissing adds two optional values; the sum is missing only when
// both are.
func sumPreservingMissing(a, b domain.Quantity) domain.Quantity {
	if !a.Valid && !b.Valid {
		return domain.Missing
	}
	return domain.Q(a.OrZero() + b.OrZero())
}

func maxQuantity(a, b domain.Quantity) domain.Quantity {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	case b.Value > a.Value:
		return b
	default:
		return a
	}
}

// latestTagByIndividual keeps the most recent tag record per individual.
// Dates are ISO strings so lexical order is chronological.
func latestTagByIndividual(tags []domain.TagRecord) map[string]domain.TagRecord {
	out := make(map[string]domain.TagRecord, len(tags))
	for _, tag := range tags {
		prev, ok := out[tag.IndividualID]
		if !ok || tag.Date > prev.Date {
			out[tag.IndividualID] = tag
		}
	}
	return out
}

// addIndividualGrowth fills the year-over-year and whole-record trend growth
// columns, per individual, per estimator. Rows must already be sorted by
// individual then year.
func addIndividualGrowth(rows []domain.IndividualRow) {
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].IndividualID == rows[start].IndividualID {
			end++
		}
		ind := rows[start:end]
		for _, est := range domain.Estimators {
			years := make([]int, len(ind))
			masses := make([]domain.Quantity, len(ind))
			for i := range ind {
				years[i] = ind[i].Year
				masses[i] = ind[i].Mass.Get(est)
			}
			for i := range ind {
				if i == 0 {
					ind[i].Growth.Set(est, domain.Missing)
				} else {
					ind[i].Growth.Set(est, timeseries.RatePerYear(masses[i], masses[i-1], years[i], years[i-1]))
				}
			}
			slope := timeseries.TrendSlope(years, masses)
			for i := range ind {
				ind[i].CumulativeGrowth.Set(est, slope)
			}
		}
		start = end
	}
}
