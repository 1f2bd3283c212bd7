// Package metrics defines the Prometheus collectors exported by the
// service. All collectors are registered with the default registry via
// promauto and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcessingRuns counts occurrence-processing invocations by trigger
	// ("cron" or "manual").
	ProcessingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickler_occurrence_runs_total",
			Help: "Total number of occurrence processing runs",
		},
		[]string{"trigger"},
	)

	// NotificationsProcessed counts notifications whose fan-out fully
	// succeeded and was committed to the ledger.
	NotificationsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickler_notifications_processed_total",
			Help: "Total number of notifications fully processed",
		},
	)

	// TodosCreated counts todos fanned out to users.
	TodosCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickler_todos_created_total",
			Help: "Total number of todos created from notification occurrences",
		},
	)

	// ProcessingErrors counts per-notification failures by stage
	// ("fan_out", "ledger_write", "targets").
	ProcessingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickler_processing_errors_total",
			Help: "Total number of per-notification processing failures",
		},
		[]string{"stage"},
	)

	// ProcessingDuration tracks the wall time of a full processing run.
	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickler_processing_duration_seconds",
			Help:    "Occurrence processing run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
