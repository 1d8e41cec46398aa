package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	withheld   prometheus.Counter
}

func newMetrics() *metrics {
	const (
		namespace = "obacore"
		subsystem = "operations"
	)

	return &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total",
			Help:      "Number of processed operations by type and result",
		}, []string{"type", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time from the start of processing to the end of post-response plugins",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"type"}),
		withheld: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "responses_suppressed_total",
			Help:      "Count of canceled operations whose response was not sent",
		}),
	}
}

func (m *metrics) observe(op operation.Operation) {
	typ := op.Type().String()
	m.operations.WithLabelValues(typ, op.ResultCode().String()).Inc()
	m.duration.WithLabelValues(typ).Observe(op.ProcessingDuration().Seconds())
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operations,
		m.duration,
		m.withheld,
	}
}
