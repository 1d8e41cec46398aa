package psearch

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	active           prometheus.Gauge
	notifications    *prometheus.CounterVec
	deliveryFailures prometheus.Counter
}

func newMetrics() *metrics {
	const (
		namespace = "obacore"
		subsystem = "psearch"
	)

	return &metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active",
			Help:      "Number of active persistent searches",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Count of entries returned to persistent searches by change type",
		}, []string{"change_type"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivery_failures_total",
			Help:      "Count of persistent searches terminated by a failed delivery",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.active,
		m.notifications,
		m.deliveryFailures,
	}
}
