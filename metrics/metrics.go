// Package metrics exposes the Prometheus counters/histograms named in
// SPEC_FULL.md's domain stack: run counts, duration, timeouts, memory
// kills, and session lifecycle, registered against the default registry the
// way client_golang's promhttp.Handler expects.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_runs_total",
		Help: "Total number of orchestrator Run calls.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_run_duration_seconds",
		Help:    "Wall-clock duration of orchestrator Run calls.",
		Buckets: prometheus.DefBuckets,
	})

	TimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_timeouts_total",
		Help: "Total number of runs that hit the soft or hard timeout.",
	})

	MemoryKillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_memory_kills_total",
		Help: "Total number of runs forcibly disposed for exceeding the memory limit.",
	})

	ReportSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_report_size",
		Help: "Number of events held by the report store of the most recent successful run.",
	})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_sessions_created_total",
		Help: "Total number of orchestrators the server created, for sessions and stateless runs.",
	})
)

// Handler returns the promhttp handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
