// Package metrics records the outcome of a dedup run and writes it as a node_exporter
// textfile so cron-driven runs can be scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/snapetech/playlist-dedup/internal/dedup"
)

const namespace = "playlist_dedup"

// Run holds the metrics of a single invocation on its own registry.
type Run struct {
	reg *prometheus.Registry

	records       prometheus.Gauge
	groups        prometheus.Gauge
	removed       prometheus.Gauge
	kept          prometheus.Gauge
	removedByTier *prometheus.GaugeVec
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
	success       prometheus.Gauge
	dryRun        prometheus.Gauge
}

// NewRun creates the metrics of one run.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Run{
		reg: reg,
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Entries in the playlist when it was loaded",
		}),
		groups: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_groups",
			Help:      "Channels found at two or more quality tiers",
		}),
		removed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "removed_entries",
			Help:      "Entries removed (or that would be removed on a dry run)",
		}),
		kept: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kept_entries",
			Help:      "Entries left in the playlist",
		}),
		removedByTier: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "removed_entries_by_tier",
			Help:      "Removed entries per quality tier",
		}, []string{"tier"}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 if it failed",
		}),
		dryRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_dry_run",
			Help:      "1 if the last run did not write the playlist",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

// Observe records a dedup result.
func (r *Run) Observe(res dedup.Result, dryRun bool) {
	r.records.Set(float64(res.Summary.Records))
	r.groups.Set(float64(res.Summary.Groups))
	r.removed.Set(float64(res.Summary.Removed))
	r.kept.Set(float64(res.Summary.Kept))
	for _, m := range res.Removals {
		r.removedByTier.WithLabelValues(string(m.Tier)).Inc()
	}
	r.dryRun.Set(boolGauge(dryRun))
}

// Finish stamps the run as done at now after starting at start.
func (r *Run) Finish(start, now time.Time, ok bool) {
	r.duration.Set(now.Sub(start).Seconds())
	r.lastRun.Set(float64(now.Unix()))
	r.success.Set(boolGauge(ok))
}

// WriteFile writes all metrics to path in the text exposition format. The file is
// replaced atomically.
func (r *Run) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
