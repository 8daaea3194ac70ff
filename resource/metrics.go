package resource

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks table occupancy and fast-path effectiveness.
// It implements Observer.
type Metrics struct {
	live    prometheus.Gauge
	created *prometheus.CounterVec
	dropped *prometheus.CounterVec
	eager   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil. Registering twice with the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostres_resources_live",
			Help: "Number of entries currently in the resource table.",
		}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostres_resources_created_total",
			Help: "Resources inserted, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostres_resources_dropped_total",
			Help: "Resources removed, by kind.",
		}, []string{"kind"}),
		eager: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostres_eager_attempts_total",
			Help: "Eager fast-path attempts, by operation and result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.live, m.created, m.dropped, m.eager)
	}
	return m
}

func (m *Metrics) OnResourceEvent(e Event) {
	switch e.Type {
	case EventCreated:
		m.live.Inc()
		m.created.WithLabelValues(e.Kind.String()).Inc()
	case EventDropped:
		m.live.Dec()
		m.dropped.WithLabelValues(e.Kind.String()).Inc()
	}
}

func (m *Metrics) eagerAttempt(op string, hit bool) {
	result := "fallback"
	if hit {
		result = "hit"
	}
	m.eager.WithLabelValues(op, result).Inc()
}
