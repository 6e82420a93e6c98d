// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shelfkeeper"

var (
	LoanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_transitions_total",
		Help:      "Loan lifecycle operations by operation and outcome.",
	}, []string{"op", "outcome"})

	AvailabilityWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_warnings_total",
		Help:      "Non-fatal availability anomalies (overflow clamp, missing book).",
	}, []string{"kind"})

	ReconcileCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_corrections_total",
		Help:      "Books whose available copies were rewritten by reconciliation.",
	})

	ChangeEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "change_events_dropped_total",
		Help:      "Change events dropped because a subscriber was not keeping up.",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by job and outcome.",
	}, []string{"job", "outcome"})
)

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
