// Package observability exposes prometheus metrics for the tend engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	completionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tend",
		Subsystem: "ledger",
		Name:      "completions_recorded_total",
		Help:      "Number of completion records durably appended.",
	})

	remindersCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tend",
		Subsystem: "scheduler",
		Name:      "reschedules_total",
		Help:      "Reschedule outcomes, labeled by result (armed, past_due, archived, failed).",
	}, []string{"result"})

	outstandingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tend",
		Subsystem: "scheduler",
		Name:      "outstanding_reminders",
		Help:      "Reminder requests currently armed at the notification gateway.",
	})

	reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tend",
		Subsystem: "scheduler",
		Name:      "reconcile_duration_seconds",
		Help:      "Time spent re-deriving every reminder from the ledgers.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	lastReconcileGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tend",
		Subsystem: "scheduler",
		Name:      "last_reconcile_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed reconciliation.",
	})
)

func init() {
	prometheus.MustRegister(completionsCounter, remindersCounter, outstandingGauge, reconcileDuration, lastReconcileGauge)
}

// Reschedule results.
const (
	ResultArmed    = "armed"
	ResultPastDue  = "past_due"
	ResultArchived = "archived"
	ResultFailed   = "failed"
)

// RecordCompletion counts a durably appended completion.
func RecordCompletion() {
	completionsCounter.Inc()
}

// RecordReschedule counts one reschedule outcome.
func RecordReschedule(result string) {
	remindersCounter.WithLabelValues(result).Inc()
}

// SetOutstanding publishes the size of the scheduler's table.
func SetOutstanding(n int) {
	outstandingGauge.Set(float64(n))
}

// RecordReconcile observes a finished reconciliation pass.
func RecordReconcile(started, finished time.Time) {
	reconcileDuration.Observe(finished.Sub(started).Seconds())
	lastReconcileGauge.Set(float64(finished.Unix()))
}
