// Package metrics provides Prometheus metrics for the compliance gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "compliance"

// Outcome label values for RPC requests
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// DefaultLatencyBuckets cover a validation-only request (sub-millisecond) up
// to a publish that waits out the confirm timeout.
var DefaultLatencyBuckets = []float64{
	0.0005, // 0.5ms
	0.001,  // 1ms
	0.005,  // 5ms
	0.01,   // 10ms
	0.025,  // 25ms
	0.05,   // 50ms
	0.1,    // 100ms
	0.25,   // 250ms
	0.5,    // 500ms
	1.0,    // 1s
	2.5,    // 2.5s
	5.0,    // 5s
	10.0,   // 10s
}

// RequestMetrics holds metrics for ComplianceRpc requests.
type RequestMetrics struct {
	// Latency tracks request latencies.
	// Labels: method, region, outcome
	Latency *prometheus.HistogramVec

	// RequestsTotal counts requests.
	// Labels: method, region, outcome
	RequestsTotal *prometheus.CounterVec
}

// NewRequestMetricsWithRegistry creates request metrics registered with reg.
func NewRequestMetricsWithRegistry(reg prometheus.Registerer) *RequestMetrics {
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "latency_seconds",
			Help:      "ComplianceRpc request latency in seconds.",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"method", "region", "outcome"},
	)

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of ComplianceRpc requests, by outcome.",
		},
		[]string{"method", "region", "outcome"},
	)

	reg.MustRegister(latency, requestsTotal)

	return &RequestMetrics{
		Latency:       latency,
		RequestsTotal: requestsTotal,
	}
}

// RecordRequest records one finished request. A nil receiver is a no-op.
func (m *RequestMetrics) RecordRequest(method, region, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues(method, region, outcome).Observe(d.Seconds())
	m.RequestsTotal.WithLabelValues(method, region, outcome).Inc()
}
