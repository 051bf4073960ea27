package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glimte/svc-compliance/internal/rabbitmq"
)

// StatusSuccess and StatusFailure label broker operations.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// BrokerMetrics holds metrics for the connection pool and the publisher.
type BrokerMetrics struct {
	// AcquireWait tracks how long Acquire waited for a lease.
	// Labels: status
	AcquireWait *prometheus.HistogramVec

	// PublishLatency tracks publish to confirm latency.
	// Labels: exchange, status
	PublishLatency *prometheus.HistogramVec

	// PublishTotal counts publishes.
	// Labels: exchange, status
	PublishTotal *prometheus.CounterVec
}

// NewBrokerMetricsWithRegistry creates broker metrics registered with reg.
func NewBrokerMetricsWithRegistry(reg prometheus.Registerer) *BrokerMetrics {
	acquireWait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "amqp_pool",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting for a pooled connection lease.",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"status"},
	)

	publishLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "publish_latency_seconds",
			Help:      "Publish latency in seconds including the broker confirm.",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"exchange", "status"},
	)

	publishTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "publish_total",
			Help:      "Total number of publishes, by exchange and status.",
		},
		[]string{"exchange", "status"},
	)

	reg.MustRegister(acquireWait, publishLatency, publishTotal)

	return &BrokerMetrics{
		AcquireWait:    acquireWait,
		PublishLatency: publishLatency,
		PublishTotal:   publishTotal,
	}
}

// ObserveAcquire matches rabbitmq.WithAcquireObserver.
func (m *BrokerMetrics) ObserveAcquire(wait time.Duration, err error) {
	m.AcquireWait.WithLabelValues(status(err)).Observe(wait.Seconds())
}

// ObservePublish matches rabbitmq.WithPublishObserver.
func (m *BrokerMetrics) ObservePublish(exchange string, d time.Duration, err error) {
	s := status(err)
	m.PublishLatency.WithLabelValues(exchange, s).Observe(d.Seconds())
	m.PublishTotal.WithLabelValues(exchange, s).Inc()
}

// RegisterPoolStats exports pool accounting as gauges read on every scrape.
func RegisterPoolStats(reg prometheus.Registerer, stats func() rabbitmq.PoolStats) {
	gauge := func(name, help string, read func(rabbitmq.PoolStats) int) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "amqp_pool",
				Name:      name,
				Help:      help,
			},
			func() float64 { return float64(read(stats())) },
		)
	}

	reg.MustRegister(
		gauge("max_size", "Maximum number of pooled connections.",
			func(s rabbitmq.PoolStats) int { return s.MaxSize }),
		gauge("in_use", "Connections currently leased.",
			func(s rabbitmq.PoolStats) int { return s.InUse }),
		gauge("idle", "Connections waiting to be leased.",
			func(s rabbitmq.PoolStats) int { return s.Idle }),
	)
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
