package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// dispatchTotal counts per-reminder dispatch outcomes. The result label
	// is one of success, failed, skipped, lost_claim; cardinality is fixed.
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_dispatch_total",
			Help: "Total number of reminder dispatch attempts by result.",
		},
		[]string{"result"},
	)

	// scanDuration records how long a full dispatch cycle takes, including
	// the due query and all worker fan-out.
	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_dispatch_scan_duration_seconds",
			Help:    "Duration of reminder dispatch scan cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// dueBacklog gauges the number of due reminders seen by the most recent
	// scan, capped by the configured batch limit.
	dueBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_dispatch_due_backlog",
			Help: "Due reminders observed by the most recent dispatch scan.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, scanDuration, dueBacklog)
}
