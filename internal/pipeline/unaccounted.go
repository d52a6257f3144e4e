package pipeline

import (
	"sort"

	"vegcensus/internal/source"
	"vegcensus/pkg/domain"
)

// identifyUnaccounted reports the individuals missing from the biomass
// calculations. Tagged individuals never seen in any survey are UNMEASURED;
// tree-class individuals with a diameter on record but no mass estimate under
// any estimator are NO_ALLOMETRY. Output ordering is deterministic.
func identifyUnaccounted(in source.Inputs, cells []domain.IndividualYear) []domain.UnaccountedIndividual {
	observed := make(map[string]bool, len(in.Observations))
	for _, obs := range in.Observations {
		observed[obs.IndividualID] = true
	}

	tagByID := make(map[string]domain.TagRecord, len(in.Tags))
	for _, tag := range in.Tags {
		if _, ok := tagByID[tag.IndividualID]; !ok {
			tagByID[tag.IndividualID] = tag
		}
	}

	var out []domain.UnaccountedIndividual
	for id, tag := range tagByID {
		if observed[id] {
			continue
		}
		out = append(out, domain.UnaccountedIndividual{
			SiteID:         in.SiteID,
			PlotID:         tag.PlotID,
			IndividualID:   id,
			ScientificName: tag.ScientificName,
			TaxonID:        tag.TaxonID,
			Status:         domain.UnaccountedUnmeasured,
			Reason:         "never measured in survey campaigns",
		})
	}

	// Tree individuals with at least one measured diameter but no usable mass
	// estimate anywhere in their record.
	hasDiameter := make(map[string]bool)
	hasMass := make(map[string]bool)
	plotByID := make(map[string]string)
	for _, c := range cells {
		if c.Category != domain.CategoryTree {
			continue
		}
		if _, ok := plotByID[c.IndividualID]; !ok {
			plotByID[c.IndividualID] = c.PlotID
		}
		if c.StemDiameter.Valid {
			hasDiameter[c.IndividualID] = true
		}
		if c.Mass.AnyValid() {
			hasMass[c.IndividualID] = true
		}
	}
	for id := range hasDiameter {
		if hasMass[id] {
			continue
		}
		tag := tagByID[id]
		out = append(out, domain.UnaccountedIndividual{
			SiteID:         in.SiteID,
			PlotID:         plotByID[id],
			IndividualID:   id,
			ScientificName: tag.ScientificName,
			TaxonID:        tag.TaxonID,
			Status:         domain.UnaccountedNoAllometry,
			Reason:         "has diameter measurements but no mass estimates",
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].IndividualID < out[j].IndividualID
	})
	return out
}
