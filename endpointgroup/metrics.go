package endpointgroup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsVecs are registered once per process; individual groups get
// their own curried metrics via newMetrics, mirroring
// endpointsMetricsVecs in the watcher package this is grounded on.
var metricsVecs = struct {
	size           *prometheus.GaugeVec
	publications   *prometheus.CounterVec
	listenerPanics *prometheus.CounterVec
}{
	size: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "endpointkit_group_endpoints",
		Help: "Current number of endpoints in an endpoint group's published snapshot.",
	}, []string{"group"}),
	publications: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_group_publications_total",
		Help: "Number of distinct snapshot publications for an endpoint group.",
	}, []string{"group"}),
	listenerPanics: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_group_listener_panics_total",
		Help: "Number of listener invocations that panicked for an endpoint group.",
	}, []string{"group"}),
}

type metrics struct {
	size           prometheus.Gauge
	publications   prometheus.Counter
	listenerPanics prometheus.Counter
}

func newMetrics(group string) metrics {
	labels := prometheus.Labels{"group": group}
	return metrics{
		size:           metricsVecs.size.With(labels),
		publications:   metricsVecs.publications.With(labels),
		listenerPanics: metricsVecs.listenerPanics.With(labels),
	}
}

func (m metrics) setSize(n int)      { m.size.Set(float64(n)) }
func (m metrics) incPublications()   { m.publications.Inc() }
func (m metrics) incListenerPanics() { m.listenerPanics.Inc() }
