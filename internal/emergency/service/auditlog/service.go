// Package auditlog is the append-only record of emergency access attempts.
// Counters used by quota and lockout are range queries over it.
package auditlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/requestcontext"
)

// Service wraps an AttemptStore with ID assignment, day boundaries, and paging.
// It exposes no update or delete.
type Service struct {
	store  ports.AttemptStore
	logger *slog.Logger
	config *config.Config
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func New(store ports.AttemptStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
		config: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Append records an attempt. It assigns the ID and server timestamp when the
// caller left them unset; the store assigns the sequence.
func (s *Service) Append(ctx context.Context, attempt *models.AccessAttempt) (models.AttemptID, error) {
	if attempt.ID.IsNil() {
		attempt.ID = models.NewAttemptID()
	}
	if attempt.Context.Timestamp.IsZero() {
		attempt.Context.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.store.Append(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to append access attempt",
			"profile_id", attempt.ProfileID.String(),
			"error", err,
		)
		return models.AttemptID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record access attempt")
	}
	return attempt.ID, nil
}

// CountToday counts every attempt from local midnight in loc up to now, inclusive.
func (s *Service) CountToday(ctx context.Context, profileID models.ProfileID, loc *time.Location) (int, error) {
	now := requestcontext.Now(ctx)
	n, err := s.store.CountBetween(ctx, profileID, StartOfDay(now, loc), now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count attempts")
	}
	return n, nil
}

// RecentFailures counts invalid-credential denials from since up to now, inclusive.
func (s *Service) RecentFailures(ctx context.Context, profileID models.ProfileID, since time.Time) (int, error) {
	n, err := s.store.CountFailuresBetween(ctx, profileID, since, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count failures")
	}
	return n, nil
}

// LastLock returns the LockedUntil of the most recent lock-triggering entry.
func (s *Service) LastLock(ctx context.Context, profileID models.ProfileID) (*time.Time, error) {
	until, err := s.store.LastLock(ctx, profileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lock state")
	}
	return until, nil
}

// History returns one newest-first page. Pages start at 1.
func (s *Service) History(ctx context.Context, profileID models.ProfileID, page, limit int) (*models.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	limit = s.config.ClampHistoryLimit(limit)
	attempts, total, err := s.store.ListRecent(ctx, profileID, (page-1)*limit, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access history")
	}
	if attempts == nil {
		attempts = []models.AccessAttempt{}
	}
	return &models.HistoryPage{Attempts: attempts, Total: total, Page: page, Limit: limit}, nil
}

// StartOfDay returns local midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
