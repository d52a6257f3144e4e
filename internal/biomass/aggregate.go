package biomass

import "vegcensus/pkg/domain"

// ZeroDeadMasses zeroes the mass of tree cells whose corrected status says
// the individual is dead, removed, or disqualified, and rewrites provenance
// for the latter two (removal wins over disqualification). Dead cells keep
// their ORIGINAL/FILLED marker. Must run after trend filling: the zeros are
// bookkeeping, not observations, and would corrupt a fit.
func ZeroDeadMasses(cells []domain.IndividualYear) {
	for i := range cells {
		c := &cells[i]
		if c.Category != domain.CategoryTree {
			continue
		}
		if c.CorrectedDead || c.CorrectedRemoved || c.CorrectedNotQualified {
			c.Mass = c.Mass.Zeroed()
		}
		switch {
		case c.CorrectedRemoved:
			c.Provenance = domain.ProvenanceRemoved
		case c.CorrectedNotQualified:
			c.Provenance = domain.ProvenanceNotQualified
		}
	}
}

// SummarizePlotYear aggregates one plot-year into its summary row. Densities
// are Mg/ha against the class's year-specific sampled area. A class with no
// qualifying individuals has density zero; a class whose individuals all lack
// a usable value has a missing density. The two are never conflated.
func SummarizePlotYear(cells []domain.IndividualYear, siteID, plotID string, year int, plotArea, treeArea, smallWoodyArea domain.Quantity) domain.PlotYearSummary {
	row := domain.PlotYearSummary{
		SiteID:           siteID,
		PlotID:           plotID,
		Year:             year,
		PlotAreaM2:       plotArea,
		TreeAreaM2:       treeArea,
		SmallWoodyAreaM2: smallWoodyArea,
	}

	var trees, smallWoody []domain.IndividualYear
	for _, c := range cells {
		if c.Year != year {
			continue
		}
		switch c.Category {
		case domain.CategoryTree:
			trees = append(trees, c)
		case domain.CategorySmallWoody:
			smallWoody = append(smallWoody, c)
		}
	}

	row.Tree = treeDensities(trees, treeArea)
	row.NTrees = len(trees)
	for _, c := range trees {
		switch c.Provenance {
		case domain.ProvenanceFilled:
			row.NFilled++
		case domain.ProvenanceRemoved:
			row.NRemoved++
		case domain.ProvenanceNotQualified:
			row.NNotQualified++
		}
	}

	row.SmallWoody = smallWoodyDensities(smallWoody, smallWoodyArea)
	row.NSmallWoodyTotal = len(smallWoody)
	for _, c := range smallWoody {
		if c.Mass.AnyValid() {
			row.NSmallWoodyMeasured++
		}
	}
	return row
}

func areaHectares(areaM2 domain.Quantity) (float64, bool) {
	if !areaM2.Valid || areaM2.Value <= 0 {
		return 0, false
	}
	return areaM2.Value / domain.M2PerHectare, true
}

func treeDensities(trees []domain.IndividualYear, areaM2 domain.Quantity) domain.MassSet {
	var out domain.MassSet
	areaHa, areaOK := areaHectares(areaM2)
	for _, est := range domain.Estimators {
		if len(trees) == 0 {
			out.Set(est, domain.Q(0))
			continue
		}
		// Dead individuals contribute their zeroed value; the cannot-estimate
		// check considers live individuals only.
		liveAllMissing := true
		anyLive := false
		for _, c := range trees {
			if c.CorrectedDead {
				continue
			}
			anyLive = true
			if c.Mass.Get(est).Valid {
				liveAllMissing = false
			}
		}
		if anyLive && liveAllMissing {
			out.Set(est, domain.Missing)
			continue
		}
		if !areaOK {
			out.Set(est, domain.Missing)
			continue
		}
		sumKg := 0.0
		for _, c := range trees {
			if q := c.Mass.Get(est); q.Valid {
				sumKg += q.Value
			}
		}
		out.Set(est, domain.Q(sumKg/areaHa*domain.KgToMg))
	}
	return out
}

func smallWoodyDensities(smallWoody []domain.IndividualYear, areaM2 domain.Quantity) domain.MassSet {
	var out domain.MassSet
	areaHa, areaOK := areaHectares(areaM2)
	for _, est := range domain.Estimators {
		sumKg := 0.0
		measured := 0
		for _, c := range smallWoody {
			if q := c.Mass.Get(est); q.Valid {
				sumKg += q.Value
				measured++
			}
		}
		switch {
		case measured == 0 && len(smallWoody) == 0:
			out.Set(est, domain.Q(0))
		case measured == 0:
			// Individuals present but none measured: unknown, not zero.
			out.Set(est, domain.Missing)
		case !areaOK:
			out.Set(est, domain.Missing)
		default:
			out.Set(est, domain.Q(sumKg/areaHa*domain.KgToMg))
		}
	}
	return out
}

// SyntheticPlotYear builds the placeholder row for a plot-year with no
// individuals in the merged data. Density is zero when no qualifying raw
// record ever existed, and missing when raw records exist but the site has no
// external mass estimates to match them against.
func SyntheticPlotYear(siteID, plotID string, year int, plotArea, treeArea, smallWoodyArea domain.Quantity, siteHasMassData, rawTreesPresent, rawSmallWoodyPresent bool) domain.PlotYearSummary {
	row := domain.PlotYearSummary{
		SiteID:           siteID,
		PlotID:           plotID,
		Year:             year,
		PlotAreaM2:       plotArea,
		TreeAreaM2:       treeArea,
		SmallWoodyAreaM2: smallWoodyArea,
	}
	treeValue := domain.Q(0)
	if rawTreesPresent && !siteHasMassData {
		treeValue = domain.Missing
	}
	swValue := domain.Q(0)
	if rawSmallWoodyPresent && !siteHasMassData {
		swValue = domain.Missing
	}
	for _, est := range domain.Estimators {
		row.Tree.Set(est, treeValue)
		row.SmallWoody.Set(est, swValue)
	}
	return row
}
