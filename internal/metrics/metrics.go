// Package metrics exposes pipeline counters and timings on a Prometheus
// registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the pipeline's Prometheus collectors. A nil Recorder is
// valid and records nothing, so library callers can pass one through without
// wiring a registry.
type Recorder struct {
	registry *prometheus.Registry

	mu     sync.Mutex
	totals Snapshot

	sitesProcessed *prometheus.CounterVec
	plotYears      prometheus.Counter
	outliers       prometheus.Counter
	siteDuration   prometheus.Histogram
}

// New builds a Recorder backed by a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.sitesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vegcensus",
		Name:      "sites_processed_total",
		Help:      "Sites processed, labelled by outcome.",
	}, []string{"outcome"})
	r.plotYears = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vegcensus",
		Name:      "plot_years_emitted_total",
		Help:      "Plot-year summary rows emitted.",
	})
	r.outliers = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vegcensus",
		Name:      "diameter_outliers_flagged_total",
		Help:      "Stem records rejected by the spike filter.",
	})
	r.siteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vegcensus",
		Name:      "site_duration_seconds",
		Help:      "Wall time to process one site.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	r.registry.MustRegister(r.sitesProcessed, r.plotYears, r.outliers, r.siteDuration)
	return r
}

// Registry exposes the backing registry for an HTTP handler or test scrape.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SiteSucceeded records one completed site and its processing time.
func (r *Recorder) SiteSucceeded(d time.Duration) {
	if r == nil {
		return
	}
	r.sitesProcessed.WithLabelValues("success").Inc()
	r.siteDuration.Observe(d.Seconds())
	r.mu.Lock()
	r.totals.SitesSucceeded++
	r.totals.SiteSecondsTotal += d.Seconds()
	r.mu.Unlock()
}

// SiteFailed records one failed site.
func (r *Recorder) SiteFailed() {
	if r == nil {
		return
	}
	r.sitesProcessed.WithLabelValues("failure").Inc()
	r.mu.Lock()
	r.totals.SitesFailed++
	r.mu.Unlock()
}

// PlotYears records emitted summary rows.
func (r *Recorder) PlotYears(n int) {
	if r == nil {
		return
	}
	r.plotYears.Add(float64(n))
	r.mu.Lock()
	r.totals.PlotYears += int64(n)
	r.mu.Unlock()
}

// OutliersFlagged records stems rejected by the spike filter.
func (r *Recorder) OutliersFlagged(n int) {
	if r == nil || n == 0 {
		return
	}
	r.outliers.Add(float64(n))
	r.mu.Lock()
	r.totals.OutliersFlagged += int64(n)
	r.mu.Unlock()
}
