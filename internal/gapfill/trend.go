package gapfill

import (
	"gonum.org/v1/gonum/stat"

	"vegcensus/pkg/domain"
)

// FillMasses fills missing estimator values across the grid, independently
// per individual and per estimator. With two or more observations spanning
// distinct years the fill is an ordinary least-squares trend clamped to zero;
// observations confined to a single year fill with their mean; a single
// observation broadcasts; none leaves every year missing.
//
// This must run after status reconciliation is computed but before dead and
// removed years are zeroed: fitting against artificial zeros would drag the
// trend toward the dead year.
func FillMasses(cells []domain.IndividualYear) {
	ids, groups := individualOrder(cells)
	for _, id := range ids {
		idx := groups[id]
		for _, est := range domain.Estimators {
			fillEstimator(cells, idx, est)
		}
	}
}

func fillEstimator(cells []domain.IndividualYear, idx []int, est domain.Estimator) {
	var years, values []float64
	distinct := make(map[int]struct{})
	for _, ci := range idx {
		q := cells[ci].Mass.Get(est)
		if !q.Valid {
			continue
		}
		years = append(years, float64(cells[ci].Year))
		values = append(values, q.Value)
		distinct[cells[ci].Year] = struct{}{}
	}
	switch {
	case len(values) == 0:
		return
	case len(values) == 1:
		broadcast(cells, idx, est, values[0])
	case len(distinct) < 2:
		// No temporal signal to regress on.
		broadcast(cells, idx, est, stat.Mean(values, nil))
	default:
		intercept, slope := stat.LinearRegression(years, values, nil, false)
		for _, ci := range idx {
			if cells[ci].Mass.Get(est).Valid {
				continue
			}
			predicted := intercept + slope*float64(cells[ci].Year)
			if predicted < 0 {
				predicted = 0
			}
			cells[ci].Mass.Set(est, domain.Q(predicted))
		}
	}
}

func broadcast(cells []domain.IndividualYear, idx []int, est domain.Estimator, v float64) {
	for _, ci := range idx {
		if !cells[ci].Mass.Get(est).Valid {
			cells[ci].Mass.Set(est, domain.Q(v))
		}
	}
}
