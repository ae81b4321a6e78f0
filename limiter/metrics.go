package limiter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsVecs = struct {
	inFlight *prometheus.GaugeVec
	queued   *prometheus.GaugeVec
	granted  *prometheus.CounterVec
	timedOut *prometheus.CounterVec
	rejected *prometheus.CounterVec
}{
	inFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "endpointkit_limiter_in_flight",
		Help: "Current number of acquired permits.",
	}, []string{"limiter"}),
	queued: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "endpointkit_limiter_queued",
		Help: "Current number of waiters parked awaiting a permit.",
	}, []string{"limiter"}),
	granted: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_limiter_granted_total",
		Help: "Number of permits granted, immediately or after waiting.",
	}, []string{"limiter"}),
	timedOut: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_limiter_timed_out_total",
		Help: "Number of waiters that timed out before a permit freed up.",
	}, []string{"limiter"}),
	rejected: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_limiter_rejected_total",
		Help: "Number of acquisitions rejected for a full pending queue.",
	}, []string{"limiter"}),
}

type metrics struct {
	inFlight prometheus.Gauge
	queued   prometheus.Gauge
	granted  prometheus.Counter
	timedOut prometheus.Counter
	rejected prometheus.Counter
}

func newMetrics(name string) metrics {
	labels := prometheus.Labels{"limiter": name}
	return metrics{
		inFlight: metricsVecs.inFlight.With(labels),
		queued:   metricsVecs.queued.With(labels),
		granted:  metricsVecs.granted.With(labels),
		timedOut: metricsVecs.timedOut.With(labels),
		rejected: metricsVecs.rejected.With(labels),
	}
}

func (m metrics) setInFlight(n int) { m.inFlight.Set(float64(n)) }
func (m metrics) setQueued(n int)   { m.queued.Set(float64(n)) }
func (m metrics) incGranted()       { m.granted.Inc() }
func (m metrics) incTimedOut()      { m.timedOut.Inc() }
func (m metrics) incRejected()      { m.rejected.Inc() }
