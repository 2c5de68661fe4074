package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safai_setu"

var (
	once sync.Once

	// TransitionsTotal counts lifecycle transition requests by outcome.
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of report status transition requests, labeled by from, to and outcome.",
	}, []string{"from", "to", "outcome"})

	// EvidenceFetchTotal counts image slot loads by outcome (ok, not_available, unavailable).
	EvidenceFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evidence_fetch_total",
		Help:      "Total number of evidence image loads, labeled by slot and outcome.",
	}, []string{"slot", "outcome"})

	ReportsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_created_total",
		Help:      "Total number of reports created.",
	})

	// AggregationMarkers is the number of markers per computed map view.
	AggregationMarkers = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "aggregation_markers",
		Help:      "Number of markers in each aggregated map view.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// EventPublishErrorTotal counts events that could not be handed to the broker.
	EventPublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_error_total",
		Help:      "Total number of lifecycle events that failed to publish.",
	})
)

// Register registers the service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			TransitionsTotal,
			EvidenceFetchTotal,
			ReportsCreatedTotal,
			AggregationMarkers,
			EventPublishErrorTotal,
		)
	})
}
