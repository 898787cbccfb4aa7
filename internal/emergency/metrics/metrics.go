package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for emergency access verification.
type Metrics struct {
	// Decisions by outcome, reason, and method
	Decisions *prometheus.CounterVec

	// Locks started by repeated invalid credentials
	LockoutsTriggered prometheus.Counter

	// Approved accesses by disclosed level
	Disclosures *prometheus.CounterVec

	// Verify latency including persistence
	VerifyLatency prometheus.Histogram

	// Method registrations and rotations by kind
	MethodRotations *prometheus.CounterVec
}

// New registers emergency metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeline_emergency_decisions_total",
			Help: "Emergency access decisions by outcome, reason, and method",
		}, []string{"outcome", "reason", "method"}),

		LockoutsTriggered: f.NewCounter(prometheus.CounterOpts{
			Name: "lifeline_emergency_lockouts_triggered_total",
			Help: "Profiles locked after repeated invalid credentials",
		}),

		Disclosures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeline_emergency_disclosures_total",
			Help: "Approved emergency accesses by disclosed level",
		}, []string{"level"}),

		VerifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifeline_emergency_verify_duration_seconds",
			Help:    "Duration of emergency access verification including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		MethodRotations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifeline_emergency_method_rotations_total",
			Help: "Access method registrations and rotations by kind",
		}, []string{"kind"}),
	}
}

// IncrementDecision records a verification decision.
func (m *Metrics) IncrementDecision(outcome, reason, method string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome, reason, method).Inc()
	}
}

func (m *Metrics) IncrementLockouts() {
	if m != nil {
		m.LockoutsTriggered.Inc()
	}
}

func (m *Metrics) IncrementDisclosure(level string) {
	if m != nil {
		m.Disclosures.WithLabelValues(level).Inc()
	}
}

func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRotation(kind string) {
	if m != nil {
		m.MethodRotations.WithLabelValues(kind).Inc()
	}
}
