// Package status derives a single internally consistent status trajectory for
// each tracked individual from its noisy per-stem survey labels.
package status

import (
	"sort"

	"vegcensus/pkg/domain"
)

// Rollup collapses one individual's grid cells into a per-year status
// sequence, sorted by year. For multi-stem individuals a year is dead only if
// at least one stem is dead-indicating and none is alive-indicating; removal
// takes precedence over disqualification when both appear.
func Rollup(vocab domain.Vocabulary, cells []domain.IndividualYear) []domain.YearlyStatus {
	byYear := make(map[int][]string)
	for _, c := range cells {
		byYear[c.Year] = append(byYear[c.Year], c.Status)
	}
	out := make([]domain.YearlyStatus, 0, len(byYear))
	for year, labels := range byYear {
		var hasLive, hasDead, hasRemoved, hasNotQualified, observed bool
		for _, label := range labels {
			if label == "" {
				continue
			}
			observed = true
			if vocab.AliveIndicating(label) {
				hasLive = true
			}
			if vocab.DeadIndicating(label) {
				hasDead = true
			}
			switch vocab.Classify(label) {
			case domain.StatusRemoved:
				hasRemoved = true
			case domain.StatusNotQualified:
				hasNotQualified = true
			}
		}
		out = append(out, domain.YearlyStatus{
			Year:         year,
			Dead:         hasDead && !hasLive,
			Removed:      hasRemoved,
			NotQualified: hasNotQualified && !hasRemoved,
			Observed:     observed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Reconcile applies the correction steps to a rolled-up sequence, in fixed
// order: sandwich correction, dead forward absorption, dead back absorption,
// then removed and not-qualified forward absorption. The input must be
// sorted by year; the corrected flags are written in place and the sequence
// is returned for convenience.
func Reconcile(seq []domain.YearlyStatus) []domain.YearlyStatus {
	for i := range seq {
		seq[i].CorrectedDead = seq[i].Dead
		seq[i].CorrectedRemoved = seq[i].Removed
		seq[i].CorrectedNotQualified = seq[i].NotQualified
	}
	correctSandwiched(seq)
	forwardFillDead(seq)
	backFillDead(seq)
	forwardFillRemoved(seq)
	forwardFillNotQualified(seq)
	return seq
}

// correctSandwiched reclassifies an interior dead year as alive when the
// nearest observed years on both sides are alive. Only observed years count
// as neighbors: a gap-filled year is no evidence the individual was alive,
// and an unobserved dead year is never itself corrected.
func correctSandwiched(seq []domain.YearlyStatus) {
	if len(seq) < 3 {
		return
	}
	for i := 1; i < len(seq)-1; i++ {
		if !seq[i].Dead || !seq[i].Observed {
			continue
		}
		prevAlive := false
		for j := i - 1; j >= 0; j-- {
			if !seq[j].Observed {
				continue
			}
			prevAlive = !seq[j].Dead
			break
		}
		nextAlive := false
		for j := i + 1; j < len(seq); j++ {
			if !seq[j].Observed {
				continue
			}
			nextAlive = !seq[j].Dead
			break
		}
		if prevAlive && nextAlive {
			seq[i].CorrectedDead = false
		}
	}
}

// forwardFillDead makes death absorbing: every year at or after the first
// corrected-dead year is dead.
func forwardFillDead(seq []domain.YearlyStatus) {
	for i := range seq {
		if seq[i].CorrectedDead {
			for j := i; j < len(seq); j++ {
				seq[j].CorrectedDead = true
			}
			return
		}
	}
}

// backFillDead marks all years before the first observed year as dead when
// that first observation is itself dead. The earlier years are necessarily
// gap-filled, and there is no evidence the individual was ever alive.
func backFillDead(seq []domain.YearlyStatus) {
	for i := range seq {
		if !seq[i].Observed {
			continue
		}
		if seq[i].CorrectedDead {
			for j := 0; j < i; j++ {
				seq[j].CorrectedDead = true
			}
		}
		return
	}
}

func forwardFillRemoved(seq []domain.YearlyStatus) {
	for i := range seq {
		if seq[i].CorrectedRemoved {
			for j := i; j < len(seq); j++ {
				seq[j].CorrectedRemoved = true
			}
			return
		}
	}
}

func forwardFillNotQualified(seq []domain.YearlyStatus) {
	for i := range seq {
		if seq[i].CorrectedNotQualified {
			for j := i; j < len(seq); j++ {
				seq[j].CorrectedNotQualified = true
			}
			return
		}
	}
}

// Correct runs rollup and reconciliation for one individual's cells and
// writes the corrected flags back onto every cell.
func Correct(vocab domain.Vocabulary, cells []domain.IndividualYear) []domain.IndividualYear {
	seq := Reconcile(Rollup(vocab, cells))
	byYear := make(map[int]domain.YearlyStatus, len(seq))
	for _, ys := range seq {
		byYear[ys.Year] = ys
	}
	for i := range cells {
		ys, ok := byYear[cells[i].Year]
		if !ok {
			continue
		}
		cells[i].CorrectedDead = ys.CorrectedDead
		cells[i].CorrectedRemoved = ys.CorrectedRemoved
		cells[i].CorrectedNotQualified = ys.CorrectedNotQualified
	}
	return cells
}
