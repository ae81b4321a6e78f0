package selector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsVecs = struct {
	pending  *prometheus.GaugeVec
	served   *prometheus.CounterVec
	parked   *prometheus.CounterVec
	timedOut *prometheus.CounterVec
}{
	pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "endpointkit_selector_pending",
		Help: "Current number of parked selections awaiting a group update or timeout.",
	}, []string{"strategy"}),
	served: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_selector_served_total",
		Help: "Number of selections resolved with an endpoint.",
	}, []string{"strategy"}),
	parked: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_selector_parked_total",
		Help: "Number of selections that had to park awaiting a group update.",
	}, []string{"strategy"}),
	timedOut: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_selector_timed_out_total",
		Help: "Number of parked selections that resolved via timeout.",
	}, []string{"strategy"}),
}

type metrics struct {
	pending  prometheus.Gauge
	served   prometheus.Counter
	parked   prometheus.Counter
	timedOut prometheus.Counter
}

func newMetrics(strategyName string) metrics {
	labels := prometheus.Labels{"strategy": strategyName}
	return metrics{
		pending:  metricsVecs.pending.With(labels),
		served:   metricsVecs.served.With(labels),
		parked:   metricsVecs.parked.With(labels),
		timedOut: metricsVecs.timedOut.With(labels),
	}
}

func (m metrics) setPending(n int) { m.pending.Set(float64(n)) }
func (m metrics) incServed()       { m.served.Inc() }
func (m metrics) incParked()       { m.parked.Inc() }
func (m metrics) incTimedOut()     { m.timedOut.Inc() }
