package metrics

import (
	"expvar"
	"fmt"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// Snapshot is a point-in-time view of the recorder's counters for
// process-local inspection without a Prometheus scrape.
type Snapshot struct {
	SitesSucceeded   int64     `json:"sites_succeeded_total"`
	SitesFailed      int64     `json:"sites_failed_total"`
	PlotYears        int64     `json:"plot_years_emitted_total"`
	OutliersFlagged  int64     `json:"diameter_outliers_flagged_total"`
	SiteSecondsTotal float64   `json:"site_seconds_total"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Snapshot returns the current counter values. A nil Recorder yields a zero
// snapshot.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{RecordedAt: time.Now().UTC()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.totals
	snap.RecordedAt = time.Now().UTC()
	return snap
}

// PublishExpvar exposes the recorder's snapshot under the given expvar name
// and returns the name used. When name is empty a unique one is generated,
// since expvar panics on duplicate registration.
func (r *Recorder) PublishExpvar(name string) string {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("vegcensus_metrics_%d", id)
	}
	expvar.Publish(name, expvar.Func(func() any {
		return r.Snapshot()
	}))
	return name
}
