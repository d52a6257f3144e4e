package gapfill

import (
	"sort"

	"vegcensus/pkg/domain"
)

// Default spike thresholds in diameter units (cm) per year.
const (
	DefaultGrowthThreshold = 10.0
	DefaultShrinkThreshold = 5.0
)

// FilterSpikes nulls physically impossible diameter spikes. A measurement is
// a spike when the individual grew faster than growthThreshold from its
// previous real observation and shrank faster than shrinkThreshold toward its
// next one. Flagged years have every ORIGINAL cell rewritten to OUTLIER with
// all estimator values nulled.
//
// Only real observations participate: filled cells are interpolations and
// carry no evidence. Multi-stem individuals compare on the maximum stem
// diameter per year, at least three observed years are required, and the
// first and last observed years can never be flagged. Returns the number of
// cells flagged.
func FilterSpikes(cells []domain.IndividualYear, growthThreshold, shrinkThreshold float64) int {
	flagged := 0
	ids, groups := individualOrder(cells)
	for _, id := range ids {
		idx := groups[id]

		maxByYear := make(map[int]float64)
		for _, ci := range idx {
			c := cells[ci]
			if c.Provenance != domain.ProvenanceOriginal || !c.StemDiameter.Valid {
				continue
			}
			if d, ok := maxByYear[c.Year]; !ok || c.StemDiameter.Value > d {
				maxByYear[c.Year] = c.StemDiameter.Value
			}
		}
		if len(maxByYear) < 3 {
			continue
		}
		years := make([]int, 0, len(maxByYear))
		for y := range maxByYear {
			years = append(years, y)
		}
		sort.Ints(years)

		for i := 1; i < len(years)-1; i++ {
			prevGap := float64(years[i] - years[i-1])
			nextGap := float64(years[i+1] - years[i])
			if prevGap <= 0 || nextGap <= 0 {
				continue
			}
			growthRate := (maxByYear[years[i]] - maxByYear[years[i-1]]) / prevGap
			shrinkRate := (maxByYear[years[i]] - maxByYear[years[i+1]]) / nextGap
			if growthRate <= growthThreshold || shrinkRate <= shrinkThreshold {
				continue
			}
			for _, ci := range idx {
				if cells[ci].Year != years[i] || cells[ci].Provenance != domain.ProvenanceOriginal {
					continue
				}
				cells[ci].Provenance = domain.ProvenanceOutlier
				cells[ci].Mass = domain.MassSet{}
				flagged++
			}
		}
	}
	return flagged
}
