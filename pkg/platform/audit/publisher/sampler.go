package publisher

import (
	"math/rand/v2"
	"sync"

	audit "lifeline/pkg/platform/audit"
)

// Sampler thins out operations-category events. Compliance and security
// events are never sampled.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[audit.AuditEvent]float64
}

// NewSampler creates a sampler keeping roughly defaultRate of events.
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[audit.AuditEvent]float64),
	}
}

// Keep reports whether the event should be published.
func (s *Sampler) Keep(event audit.Event) bool {
	if event.Category != audit.CategoryOperations {
		return true
	}
	return rand.Float64() < s.rateFor(event.Action) //nolint:gosec // sampling doesn't need crypto rand
}

// SetRate overrides the rate for one action.
func (s *Sampler) SetRate(action audit.AuditEvent, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action audit.AuditEvent) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}
