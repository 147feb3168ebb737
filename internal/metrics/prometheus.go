// Package metrics tracks per-arm and global request outcomes for one
// dispatcher run, both as in-memory counters exposed via a JSON
// snapshot and as Prometheus series for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lbbandit"

// LatencyBuckets covers the millisecond range the stub downstream fleet
// actually produces: sub-millisecond successes up to multi-second
// timeouts.
var LatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.5, 5.0,
}

var (
	// RequestsTotal counts every completed request, labelled by final
	// outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total completed requests by final outcome",
		},
		[]string{"strategy", "tier", "success"},
	)

	// RetriesTotal counts attempts beyond the first for a request.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total attempts beyond the first per request",
		},
		[]string{"strategy", "tier"},
	)

	// AttemptLatencySeconds observes the latency of every downstream
	// attempt, labelled by server port and outcome kind.
	AttemptLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_latency_seconds",
			Help:      "Downstream attempt latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"strategy", "tier", "port", "outcome"},
	)
)
