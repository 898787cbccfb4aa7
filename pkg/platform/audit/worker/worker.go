package worker

import (
	"context"
	"log/slog"
	"time"

	audit "lifeline/pkg/platform/audit"
)

// Source yields buffered events in FIFO batches.
type Source interface {
	DequeueBatch(n int) []audit.Event
}

// HandleFunc delivers a single event.
type HandleFunc func(ctx context.Context, event audit.Event) error

// Worker drains a Source in batches whenever it is woken or its ticker
// fires. Delivery errors are logged and do not stop the loop.
type Worker struct {
	source    Source
	handle    HandleFunc
	wake      <-chan struct{}
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

// NewWorker creates a worker. wake may be nil, in which case only the ticker drives it.
func NewWorker(source Source, handle HandleFunc, wake <-chan struct{}, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		source:    source,
		handle:    handle,
		wake:      wake,
		batchSize: 100,
		interval:  time.Second,
		logger:    logger,
	}
}

// Run drains until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.wake:
			w.Drain(ctx)
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain delivers everything currently buffered and returns the number of
// events handed to the handler.
func (w *Worker) Drain(ctx context.Context) int {
	total := 0
	for {
		batch := w.source.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return total
		}
		for _, event := range batch {
			if err := w.handle(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit event delivery failed",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
			total++
		}
	}
}
