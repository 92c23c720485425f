package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Workflow state transitions by target state.",
		},
		[]string{"state"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Analysis service call latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op", "outcome"},
	)

	exportsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "requests_total",
			Help:      "Result export requests by outcome.",
		},
		[]string{"outcome"},
	)
)

// RecordTransition counts a workflow entering state.
func RecordTransition(state string) {
	workflowTransitions.WithLabelValues(state).Inc()
}

// ObserveUpstream records one call to the analysis service.
func ObserveUpstream(op, outcome string, elapsed time.Duration) {
	upstreamDuration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

// RecordExport counts an export request by outcome (enqueued, rejected, failed).
func RecordExport(outcome string) {
	exportsRequested.WithLabelValues(outcome).Inc()
}
