package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vegcensus/internal/source"
)

// SiteOutcome is one line of the batch ledger.
type SiteOutcome struct {
	SiteID   string        `json:"siteID"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Stats    SiteStats     `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// BatchResult is the outcome of a multi-site run: the successful site results
// plus a per-site success/failure ledger covering every requested site.
type BatchResult struct {
	Results []*SiteResult `json:"results"`
	Ledger  []SiteOutcome `json:"ledger"`
}

// Failed lists the sites that did not produce a result.
func (b *BatchResult) Failed() []string {
	var out []string
	for _, o := range b.Ledger {
		if o.Err != nil {
			out = append(out, o.SiteID)
		}
	}
	return out
}

// InputLoader resolves one site's input snapshot. source.Loader is the
// on-disk implementation.
type InputLoader interface {
	Load(siteID string) (source.Inputs, error)
}

// Runner processes sites with a bounded worker pool. One site's failure is
// isolated and logged; the remaining sites continue.
type Runner struct {
	Loader InputLoader
	Config Config
	// Workers bounds concurrent sites; zero or negative means one at a time.
	Workers int
}

// Run processes every requested site and returns the merged batch result.
// The returned error reflects cancellation only; per-site failures live in
// the ledger.
func (r Runner) Run(ctx context.Context, sites []string) (*BatchResult, error) {
	log := r.Config.logger()
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	// All sites of one invocation share a run ID.
	cfg := r.Config
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	log = log.With(zap.String("run_id", cfg.RunID))

	outcomes := make([]SiteOutcome, len(sites))
	results := make([]*SiteResult, len(sites))

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, siteID := range sites {
		i, siteID := i, siteID
		g.Go(func() error {
			start := time.Now()
			result, err := r.runSite(runCtx, cfg, siteID)
			outcome := SiteOutcome{SiteID: siteID, Duration: time.Since(start)}
			if err != nil {
				outcome.Err = err
				outcome.Error = err.Error()
				log.Error("site failed", zap.String("site", siteID), zap.Error(err))
				cfg.Metrics.SiteFailed()
			} else {
				outcome.Stats = result.Stats
				results[i] = result
				cfg.Metrics.SiteSucceeded(outcome.Duration)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &BatchResult{Ledger: outcomes}
	for _, result := range results {
		if result != nil {
			batch.Results = append(batch.Results, result)
		}
	}
	return batch, nil
}

func (r Runner) runSite(ctx context.Context, cfg Config, siteID string) (*SiteResult, error) {
	in, err := r.Loader.Load(siteID)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	result, err := Site(ctx, in, cfg)
	if err != nil {
		return nil, fmt.Errorf("process site: %w", err)
	}
	return result, nil
}
