// Package gapfill expands sparse per-individual survey records into a dense
// individual-by-year grid and fills the gaps by principled extrapolation.
// Filled values never overwrite real observations.
package gapfill

import (
	"sort"

	"vegcensus/pkg/domain"
)

// BuildGrid produces the full individual-by-year cross product for one plot.
// years is the authoritative surveyed-year list from the sampling metadata;
// observed cells outside it are dropped. Each (individual, year) pair keeps
// its observed stem cells tagged ORIGINAL, or gains a single FILLED cell.
// Output ordering is deterministic: individual ascending, year ascending,
// observed stems in input order.
func BuildGrid(plotID string, years []int, observed []domain.IndividualYear) []domain.IndividualYear {
	if len(observed) == 0 {
		return nil
	}
	yearSet := make(map[int]struct{}, len(years))
	for _, y := range years {
		yearSet[y] = struct{}{}
	}
	sortedYears := append([]int(nil), years...)
	sort.Ints(sortedYears)

	type key struct {
		id   string
		year int
	}
	byKey := make(map[key][]domain.IndividualYear)
	ids := make([]string, 0)
	seen := make(map[string]struct{})
	for _, c := range observed {
		if _, ok := yearSet[c.Year]; !ok {
			continue
		}
		c.Provenance = domain.ProvenanceOriginal
		k := key{c.IndividualID, c.Year}
		byKey[k] = append(byKey[k], c)
		if _, ok := seen[c.IndividualID]; !ok {
			seen[c.IndividualID] = struct{}{}
			ids = append(ids, c.IndividualID)
		}
	}
	sort.Strings(ids)

	grid := make([]domain.IndividualYear, 0, len(ids)*len(sortedYears))
	for _, id := range ids {
		for _, year := range sortedYears {
			if cells, ok := byKey[key{id, year}]; ok {
				grid = append(grid, cells...)
				continue
			}
			grid = append(grid, domain.IndividualYear{
				IndividualID: id,
				PlotID:       plotID,
				Year:         year,
				Provenance:   domain.ProvenanceFilled,
			})
		}
	}
	return grid
}

// individualOrder returns each individual's cell indices, keyed and ordered
// by individual id, preserving the grid's year ordering within each group.
func individualOrder(cells []domain.IndividualYear) ([]string, map[string][]int) {
	groups := make(map[string][]int)
	ids := make([]string, 0)
	for i, c := range cells {
		if _, ok := groups[c.IndividualID]; !ok {
			ids = append(ids, c.IndividualID)
		}
		groups[c.IndividualID] = append(groups[c.IndividualID], i)
	}
	sort.Strings(ids)
	return ids, groups
}

// CarryAttributes populates growth form and stem diameter on FILLED cells
// from the individual's nearest prior real value, falling back to the nearest
// later one. ORIGINAL cells are never touched, even when their own value is
// missing: an erroneous measurement must not propagate into other years.
func CarryAttributes(cells []domain.IndividualYear) {
	ids, groups := individualOrder(cells)
	for _, id := range ids {
		idx := groups[id]
		sort.SliceStable(idx, func(a, b int) bool { return cells[idx[a]].Year < cells[idx[b]].Year })

		carryString(cells, idx, func(c *domain.IndividualYear) *string { return &c.GrowthForm })
		carryQuantity(cells, idx, func(c *domain.IndividualYear) *domain.Quantity { return &c.StemDiameter })
	}
}

func carryString(cells []domain.IndividualYear, idx []int, field func(*domain.IndividualYear) *string) {
	filled := make([]string, len(idx))
	last := ""
	for i, ci := range idx {
		if v := *field(&cells[ci]); v != "" {
			last = v
		}
		filled[i] = last
	}
	next := ""
	for i := len(idx) - 1; i >= 0; i-- {
		if v := *field(&cells[idx[i]]); v != "" {
			next = v
		}
		if filled[i] == "" {
			filled[i] = next
		}
	}
	for i, ci := range idx {
		if cells[ci].Provenance == domain.ProvenanceFilled && *field(&cells[ci]) == "" {
			*field(&cells[ci]) = filled[i]
		}
	}
}

func carryQuantity(cells []domain.IndividualYear, idx []int, field func(*domain.IndividualYear) *domain.Quantity) {
	filled := make([]domain.Quantity, len(idx))
	last := domain.Quantity{}
	for i, ci := range idx {
		if v := *field(&cells[ci]); v.Valid {
			last = v
		}
		filled[i] = last
	}
	next := domain.Quantity{}
	for i := len(idx) - 1; i >= 0; i-- {
		if v := *field(&cells[idx[i]]); v.Valid {
			next = v
		}
		if !filled[i].Valid {
			filled[i] = next
		}
	}
	for i, ci := range idx {
		if cells[ci].Provenance == domain.ProvenanceFilled && !field(&cells[ci]).Valid {
			*field(&cells[ci]) = filled[i]
		}
	}
}
