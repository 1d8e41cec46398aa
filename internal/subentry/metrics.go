package subentry

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	subentries      *prometheus.GaugeVec
	fastPathDeletes prometheus.Counter
}

func newMetrics() *metrics {
	const (
		namespace = "obacore"
		subsystem = "subentry"
	)

	return &metrics{
		subentries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "subentries",
			Help:      "Number of indexed subentries by index",
		}, []string{"index"}),
		fastPathDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fast_path_deletes_total",
			Help:      "Count of deletes that found no subentries without taking the write lock",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.subentries,
		m.fastPathDeletes,
	}
}
