// Package metrics exposes prometheus counters for orchestration runs and
// notification outcomes. Served on /metrics by the ops API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engage_runs_total",
			Help: "Total orchestration runs labeled by outcome (completed or skipped)",
		},
		[]string{"status"},
	)
	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engage_run_duration_seconds",
			Help:    "Duration of orchestration runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engage_notifications_total",
			Help: "Per-segment notification outcomes",
		},
		[]string{"segment", "status"},
	)
)

// RecordRun tracks one completed orchestration run.
func RecordRun(skipped bool, duration time.Duration) {
	status := "completed"
	if skipped {
		status = "skipped"
	}
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// RecordSegment tracks one segment's send outcomes within a run.
func RecordSegment(segment string, sent, failed, skipped int) {
	if segment == "" {
		segment = "unknown"
	}
	notificationsTotal.WithLabelValues(segment, "sent").Add(float64(sent))
	notificationsTotal.WithLabelValues(segment, "failed").Add(float64(failed))
	notificationsTotal.WithLabelValues(segment, "skipped").Add(float64(skipped))
}
