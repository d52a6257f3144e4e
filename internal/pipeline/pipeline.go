// Package pipeline orchestrates the full biomass reconstruction for one site
// and batches sites with isolated failures.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vegcensus/internal/gapfill"
	"vegcensus/internal/metrics"
	"vegcensus/pkg/domain"
)

// Config carries the tunable pipeline parameters. The zero value runs the
// full pipeline with default thresholds and the standard status vocabulary.
type Config struct {
	// RunID labels the results of one invocation. Empty means a fresh UUID
	// per processed site.
	RunID string

	// GrowthThreshold and ShrinkThreshold parameterize the diameter spike
	// filter, in cm per year. Zero means the default.
	GrowthThreshold float64
	ShrinkThreshold float64

	// SkipGapFilling leaves the sparse observations as-is: no year grid, no
	// trend fill, no spike filter.
	SkipGapFilling bool
	// SkipDeadCorrections disables status reconciliation and dead-zeroing.
	SkipDeadCorrections bool

	Vocabulary *domain.Vocabulary
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
}

func (c Config) growthThreshold() float64 {
	if c.GrowthThreshold > 0 {
		return c.GrowthThreshold
	}
	return gapfill.DefaultGrowthThreshold
}

func (c Config) shrinkThreshold() float64 {
	if c.ShrinkThreshold > 0 {
		return c.ShrinkThreshold
	}
	return gapfill.DefaultShrinkThreshold
}

func (c Config) vocabulary() domain.Vocabulary {
	if c.Vocabulary != nil {
		return *c.Vocabulary
	}
	return domain.DefaultVocabulary()
}

func (c Config) runID() string {
	if c.RunID != "" {
		return c.RunID
	}
	return uuid.NewString()
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// SiteStats summarizes one site run for logging and the batch ledger.
type SiteStats struct {
	Plots            int  `json:"n_plots"`
	PlotYears        int  `json:"n_plot_years"`
	Unaccounted      int  `json:"n_unaccounted"`
	OutliersFlagged  int  `json:"n_outliers_flagged"`
	SiteHasMassData  bool `json:"site_has_mass_data"`
	SkippedNoArea    int  `json:"n_plots_skipped_no_area"`
	IndividualRows   int  `json:"n_individual_rows"`
	GapFilling       bool `json:"gap_filling"`
	DeadCorrections  bool `json:"dead_corrections"`
}

// SiteResult is the complete output of one site run.
type SiteResult struct {
	SiteID      string    `json:"siteID"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	PlotSummary []domain.PlotYearSummary       `json:"plot_summary"`
	Unaccounted []domain.UnaccountedIndividual `json:"unaccounted"`
	Individuals []domain.IndividualRow         `json:"individuals"`
	// Series holds one interpolated table per estimator, in canonical
	// estimator order.
	Series []domain.SeriesTable `json:"series"`

	Stats SiteStats `json:"stats"`
}
