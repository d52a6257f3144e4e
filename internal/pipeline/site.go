package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"vegcensus/internal/biomass"
	"vegcensus/internal/gapfill"
	"vegcensus/internal/source"
	"vegcensus/internal/status"
	"vegcensus/internal/timeseries"
	"vegcensus/pkg/domain"
)

// Site runs the full reconstruction for one site: merge mass estimates onto
// observations, reconcile statuses, expand and fill the year grid per plot,
// aggregate plot-year densities, and derive the growth and interpolation
// outputs. Sampling metadata, not the observations, decides which plot-years
// exist. The OUTLIER provenance is transient: cells flagged by the spike
// filter are refilled by the trend pass, so the label never reaches the
// exported tables, only the flag counters.
func Site(ctx context.Context, in source.Inputs, cfg Config) (*SiteResult, error) {
	log := cfg.logger().With(zap.String("site", in.SiteID))
	vocab := cfg.vocabulary()
	siteHasMassData := len(in.Masses) > 0

	cells := buildCells(in, log)
	biomass.Categorize(cells)
	if !cfg.SkipDeadCorrections {
		correctTrees(cells, vocab)
	}

	unaccounted := identifyUnaccounted(in, cells)
	unaccountedByPlot := make(map[string]int)
	for _, u := range unaccounted {
		unaccountedByPlot[u.PlotID]++
	}

	events := samplingByPlot(in.Sampling)
	plotIDs := make([]string, 0, len(events))
	for id := range events {
		plotIDs = append(plotIDs, id)
	}
	sort.Strings(plotIDs)

	stats := SiteStats{
		Plots:           len(plotIDs),
		SiteHasMassData: siteHasMassData,
		GapFilling:      !cfg.SkipGapFilling,
		DeadCorrections: !cfg.SkipDeadCorrections,
	}

	var rows []domain.PlotYearSummary
	var processed []domain.IndividualYear
	for _, plotID := range plotIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evs := events[plotID]
		plotArea := resolvePlotArea(in, plotID, evs)
		if !plotArea.Valid {
			log.Warn("no plot area available, skipping plot", zap.String("plot", plotID))
			stats.SkippedNoArea++
			continue
		}

		var plotCells []domain.IndividualYear
		for _, c := range cells {
			if c.PlotID == plotID {
				plotCells = append(plotCells, c)
			}
		}

		if len(plotCells) == 0 {
			for _, ev := range evs {
				hasTrees, hasSmall := rawPresence(in.Observations, plotID, ev.Year)
				rows = append(rows, biomass.SyntheticPlotYear(in.SiteID, plotID, ev.Year,
					plotArea, ev.TreeAreaM2, ev.SmallWoodyAreaM2,
					siteHasMassData, hasTrees, hasSmall))
			}
			continue
		}

		if !cfg.SkipGapFilling {
			years := make([]int, len(evs))
			for i, ev := range evs {
				years[i] = ev.Year
			}
			plotCells = gapfill.BuildGrid(plotID, years, plotCells)
			gapfill.CarryAttributes(plotCells)
			flagged := gapfill.FilterSpikes(plotCells, cfg.growthThreshold(), cfg.shrinkThreshold())
			if flagged > 0 {
				log.Info("flagged diameter spike outliers",
					zap.String("plot", plotID), zap.Int("cells", flagged))
			}
			stats.OutliersFlagged += flagged
			gapfill.FillMasses(plotCells)
			// Filled cells gained carried growth forms, so classify again and
			// rerun the status corrections over the dense grid.
			biomass.Categorize(plotCells)
			if !cfg.SkipDeadCorrections {
				correctTrees(plotCells, vocab)
			}
		}
		if !cfg.SkipDeadCorrections {
			biomass.ZeroDeadMasses(plotCells)
		}

		for _, ev := range evs {
			rows = append(rows, biomass.SummarizePlotYear(plotCells, in.SiteID, plotID, ev.Year,
				plotArea, ev.TreeAreaM2, ev.SmallWoodyAreaM2))
		}
		processed = append(processed, plotCells...)
	}

	for i := range rows {
		rows[i].NUnaccounted = unaccountedByPlot[rows[i].PlotID]
	}

	timeseries.AddGrowth(rows)
	series := make([]domain.SeriesTable, 0, domain.NumEstimators)
	for _, est := range domain.Estimators {
		series = append(series, timeseries.Interpolate(rows, est))
	}
	individuals := IndividualTable(processed, in.Tags, in.SiteID)

	stats.PlotYears = len(rows)
	stats.Unaccounted = len(unaccounted)
	stats.IndividualRows = len(individuals)
	cfg.Metrics.PlotYears(len(rows))
	cfg.Metrics.OutliersFlagged(stats.OutliersFlagged)

	log.Info("site processed",
		zap.Int("plot_years", stats.PlotYears),
		zap.Int("unaccounted", stats.Unaccounted),
		zap.Int("outliers_flagged", stats.OutliersFlagged),
		zap.Int("individual_rows", stats.IndividualRows))

	return &SiteResult{
		SiteID:      in.SiteID,
		RunID:       cfg.runID(),
		GeneratedAt: time.Now().UTC(),
		PlotSummary: rows,
		Unaccounted: unaccounted,
		Individuals: individuals,
		Series:      series,
		Stats:       stats,
	}, nil
}

// buildCells merges the external mass estimates onto the raw observations by
// individual and calendar date. Observations whose event id carries no year
// are dropped.
func buildCells(in source.Inputs, log *zap.Logger) []domain.IndividualYear {
	cells := make([]domain.IndividualYear, 0, len(in.Observations))
	for _, obs := range in.Observations {
		year, err := source.YearFromEventID(obs.EventID)
		if err != nil {
			log.Warn("dropping observation with malformed event id",
				zap.String("event", obs.EventID),
				zap.String("individual", obs.IndividualID))
			continue
		}
		cells = append(cells, domain.IndividualYear{
			IndividualID: obs.IndividualID,
			PlotID:       obs.PlotID,
			Year:         year,
			Provenance:   domain.ProvenanceOriginal,
			Status:       obs.Status,
			GrowthForm:   obs.GrowthForm,
			StemDiameter: obs.StemDiameter,
			Height:       obs.Height,
			Mass:         in.Masses[source.MassKey{IndividualID: obs.IndividualID, Date: obs.Date}],
		})
	}
	return cells
}

// correctTrees reconciles statuses per individual over the tree-class cells
// only. Other classes keep their raw labels.
func correctTrees(cells []domain.IndividualYear, vocab domain.Vocabulary) {
	groups := make(map[string][]int)
	var order []string
	for i, c := range cells {
		if c.Category != domain.CategoryTree {
			continue
		}
		if _, ok := groups[c.IndividualID]; !ok {
			order = append(order, c.IndividualID)
		}
		groups[c.IndividualID] = append(groups[c.IndividualID], i)
	}
	for _, id := range order {
		idx := groups[id]
		sub := make([]domain.IndividualYear, len(idx))
		for j, ci := range idx {
			sub[j] = cells[ci]
		}
		sub = status.Correct(vocab, sub)
		for j, ci := range idx {
			cells[ci].CorrectedDead = sub[j].CorrectedDead
			cells[ci].CorrectedRemoved = sub[j].CorrectedRemoved
			cells[ci].CorrectedNotQualified = sub[j].CorrectedNotQualified
		}
	}
}

// samplingByPlot groups the sampling events per plot, one per year, sorted by
// year. Duplicate plot-year records keep the first occurrence.
func samplingByPlot(events []domain.SamplingEvent) map[string][]domain.SamplingEvent {
	out := make(map[string][]domain.SamplingEvent)
	seen := make(map[string]map[int]bool)
	for _, ev := range events {
		if seen[ev.PlotID] == nil {
			seen[ev.PlotID] = make(map[int]bool)
		}
		if seen[ev.PlotID][ev.Year] {
			continue
		}
		seen[ev.PlotID][ev.Year] = true
		out[ev.PlotID] = append(out[ev.PlotID], ev)
	}
	for id := range out {
		evs := out[id]
		sort.Slice(evs, func(i, j int) bool { return evs[i].Year < evs[j].Year })
	}
	return out
}

// resolvePlotArea prefers the surveyed polygon area and falls back to the
// large-stem sampled area from the sampling metadata.
func resolvePlotArea(in source.Inputs, plotID string, evs []domain.SamplingEvent) domain.Quantity {
	if area, ok := in.PlotAreas[plotID]; ok && area.SizeM2.Valid {
		return area.SizeM2
	}
	for _, ev := range evs {
		if ev.TreeAreaM2.Valid {
			return ev.TreeAreaM2
		}
	}
	return domain.Missing
}

// rawPresence reports whether any raw observation for the plot-year carries a
// large-class or small-class diameter. Used only to decide zero versus
// missing on synthetic rows.
func rawPresence(observations []domain.Observation, plotID string, year int) (hasTrees, hasSmallWoody bool) {
	for _, obs := range observations {
		if obs.PlotID != plotID || !obs.StemDiameter.Valid {
			continue
		}
		y, err := source.YearFromEventID(obs.EventID)
		if err != nil || y != year {
			continue
		}
		if obs.StemDiameter.Value >= domain.DiameterThresholdCm {
			hasTrees = true
		} else {
			hasSmallWoody = true
		}
	}
	return hasTrees, hasSmallWoody
}
