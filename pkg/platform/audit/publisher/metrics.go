package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for event publishing.
type Metrics struct {
	Published           *prometheus.CounterVec
	Sampled             prometheus.Counter
	BufferDropped       prometheus.Counter
	CircuitDropped      prometheus.Counter
	PersistFailures     prometheus.Counter
	CircuitBreakerState prometheus.Gauge
}

// NewMetrics registers publisher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeline_audit_events_published_total",
			Help: "Audit events handed to the sink, by category",
		}, []string{"category"}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_audit_events_sampled_total",
			Help: "Operations events dropped by sampling",
		}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_audit_buffer_dropped_total",
			Help: "Events evicted from a full async buffer",
		}),
		CircuitDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_audit_circuit_dropped_total",
			Help: "Events dropped while the sink circuit was open",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_audit_persist_failures_total",
			Help: "Sink write failures",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "lifeline_audit_circuit_breaker_state",
			Help: "Sink circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incPublished(category string) {
	if m != nil {
		m.Published.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) incSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

func (m *Metrics) incBufferDropped() {
	if m != nil {
		m.BufferDropped.Inc()
	}
}

func (m *Metrics) incCircuitDropped() {
	if m != nil {
		m.CircuitDropped.Inc()
	}
}

func (m *Metrics) incPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
