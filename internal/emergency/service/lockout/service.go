// Package lockout derives and caches the lock state of emergency profiles.
// The audit log is authoritative; the cache only saves a range query.
package lockout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports"
	"lifeline/pkg/requestcontext"
)

// LockSource reads the latest recorded lock from the audit log.
type LockSource interface {
	LastLock(ctx context.Context, profileID models.ProfileID) (*time.Time, error)
}

type Service struct {
	source LockSource
	cache  ports.LockCache
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCache puts a lock cache in front of the audit log.
func WithCache(cache ports.LockCache) Option {
	return func(s *Service) { s.cache = cache }
}

func New(source LockSource, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("lock source is required")
	}
	svc := &Service{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsLocked reports whether the profile is locked at the request time.
// Expiry is lazy: a lock whose LockedUntil has passed reads as unlocked and
// its cache entry is dropped. Cache faults fall through to the audit log.
func (s *Service) IsLocked(ctx context.Context, profileID models.ProfileID) (models.LockState, error) {
	now := requestcontext.Now(ctx)

	staleCache := false
	if s.cache != nil {
		until, ok, err := s.cache.Get(ctx, profileID)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "lock cache read failed", "profile_id", profileID.String(), "error", err)
		case ok:
			if state := models.LockedAt(until, now); state.IsLocked {
				return state, nil
			}
			staleCache = true
		}
	}

	last, err := s.source.LastLock(ctx, profileID)
	if err != nil {
		return models.Unlocked, err
	}

	state := models.Unlocked
	if last != nil {
		state = models.LockedAt(*last, now)
	}

	if s.cache != nil {
		switch {
		case state.IsLocked:
			s.setCache(ctx, profileID, state.LockedUntil)
		case staleCache:
			if err := s.cache.Clear(ctx, profileID); err != nil {
				s.logger.WarnContext(ctx, "lock cache clear failed", "profile_id", profileID.String(), "error", err)
			}
		}
	}
	return state, nil
}

// Lock caches a lock the engine has just recorded in the audit log.
// The audit entry is the source of truth, so a cache fault is only logged.
func (s *Service) Lock(ctx context.Context, profileID models.ProfileID, until time.Time) {
	s.logger.WarnContext(ctx, "emergency profile locked",
		"profile_id", profileID.String(),
		"locked_until", until,
	)
	if s.cache != nil {
		s.setCache(ctx, profileID, until)
	}
}

func (s *Service) setCache(ctx context.Context, profileID models.ProfileID, until time.Time) {
	if err := s.cache.Set(ctx, profileID, until); err != nil {
		s.logger.WarnContext(ctx, "lock cache write failed", "profile_id", profileID.String(), "error", err)
	}
}

// FailureWindowStart is where failure counting begins: the later of
// now-window and the end of the previous lock. Failures that caused an
// earlier lock never count toward a new one.
func FailureWindowStart(now time.Time, window time.Duration, lastLock *time.Time) time.Time {
	start := now.Add(-window)
	if lastLock != nil && lastLock.After(start) {
		return *lastLock
	}
	return start
}
