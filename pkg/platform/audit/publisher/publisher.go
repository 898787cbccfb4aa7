// Package publisher fans audit events out to a sink, either synchronously or
// through a bounded async buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/audit/worker"
)

// ErrCircuitOpen is returned by synchronous Emit while the sink is unhealthy.
var ErrCircuitOpen = errors.New("audit sink circuit open")

// Lister is implemented by sinks that can read events back.
type Lister interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
}

// Publisher emits audit events to a Store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	breaker *CircuitBreaker
	sampler *Sampler
	now     func() time.Time

	buffer *RingBuffer
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking, buffering up to size events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithCircuitBreaker guards the sink with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

// WithSampler thins operations events.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

// NewPublisher creates a publisher. In async mode a background worker is
// started and Close must be called to drain it.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.buffer != nil {
		p.wake = make(chan struct{}, 1)
		p.done = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(p.buffer, p.persist, p.wake, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
			// final drain with a fresh context so shutdown does not lose events
			w.Drain(context.Background())
		}()
	}
	return p
}

// Emit publishes an event. Synchronous publishers return sink errors;
// async publishers only fail on a cancelled context.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = event.Normalize(p.now())
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if p.sampler != nil && !p.sampler.Keep(event) {
		p.metrics.incSampled()
		return nil
	}

	if p.buffer == nil {
		return p.persist(ctx, event)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.buffer.Enqueue(event) {
		p.metrics.incBufferDropped()
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if p.breaker != nil && !p.breaker.Allow() {
		p.metrics.incCircuitDropped()
		return ErrCircuitOpen
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incPersistFailures()
		if p.breaker != nil && p.breaker.RecordFailure() {
			p.metrics.setCircuitOpen(true)
			p.logger.ErrorContext(ctx, "audit sink circuit opened", "error", err)
		}
		return fmt.Errorf("append audit event: %w", err)
	}

	if p.breaker != nil {
		p.breaker.RecordSuccess()
		p.metrics.setCircuitOpen(false)
	}
	p.metrics.incPublished(string(event.Category))
	return nil
}

// List reads back events for a subject when the store supports it.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	l, ok := p.store.(Lister)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return l.ListBySubject(ctx, subject)
}

// Close stops the async worker after draining buffered events.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
	})
	return nil
}
