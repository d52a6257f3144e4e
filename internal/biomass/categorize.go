// Package biomass sorts individual-year records into measurement classes and
// aggregates them into plot-year areal density summaries.
package biomass

import "vegcensus/pkg/domain"

// CategorizeCell classifies a single record. Trees need a tree growth form
// and a diameter at or above the threshold; small-woody needs a small-woody
// growth form and a diameter below it. A missing diameter still counts a
// small-woody-eligible form as small-woody (presence does not require a
// measurement), but a missing growth form is unclassifiable regardless.
func CategorizeCell(c domain.IndividualYear) domain.Category {
	if c.GrowthForm == "" {
		return domain.CategoryOther
	}
	_, isTreeForm := domain.TreeGrowthForms[c.GrowthForm]
	_, isSmallForm := domain.SmallWoodyGrowthForms[c.GrowthForm]
	if !c.StemDiameter.Valid {
		if isSmallForm {
			return domain.CategorySmallWoody
		}
		return domain.CategoryOther
	}
	switch {
	case isTreeForm && c.StemDiameter.Value >= domain.DiameterThresholdCm:
		return domain.CategoryTree
	case isSmallForm && c.StemDiameter.Value < domain.DiameterThresholdCm:
		return domain.CategorySmallWoody
	default:
		return domain.CategoryOther
	}
}

// Categorize assigns the category of every cell in place. It runs once after
// loading and again after grid expansion, since filled cells gain their
// carried attributes only then.
func Categorize(cells []domain.IndividualYear) {
	for i := range cells {
		cells[i].Category = CategorizeCell(cells[i])
	}
}
