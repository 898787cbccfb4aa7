// Package ports defines the interfaces the emergency services depend on.
// Interfaces live here when more than one service consumes them.
package ports

import (
	"context"
	"log/slog"
	"time"

	"lifeline/internal/emergency/models"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/requestcontext"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// EventPublisher emits domain events for the notification pipeline.
type EventPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ProfileStore persists emergency access profiles.
// Implementations return sentinel.ErrNotFound for missing profiles and
// sentinel.ErrConflict when a uniqueness rule would be broken.
type ProfileStore interface {
	// Create stores a new profile. A patient may own at most one active profile.
	Create(ctx context.Context, profile *models.EmergencyAccessProfile) error

	// Get returns a profile by ID, active or not.
	Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error)

	// GetActiveByPatient returns the patient's active profile.
	GetActiveByPatient(ctx context.Context, patientID models.PatientID) (*models.EmergencyAccessProfile, error)

	// Save replaces a stored profile and reindexes its token digests.
	Save(ctx context.Context, profile *models.EmergencyAccessProfile) error

	// FindByDigest resolves a QR or NFC lookup digest to its profile.
	FindByDigest(ctx context.Context, kind models.MethodKind, digest string) (models.ProfileID, error)
}

// AttemptStore is the append-only audit log of access attempts.
// All counts are range queries over (profile, timestamp).
type AttemptStore interface {
	// Append stores the attempt and assigns its Sequence.
	Append(ctx context.Context, attempt *models.AccessAttempt) error

	// CountBetween counts attempts with from <= timestamp <= to.
	CountBetween(ctx context.Context, profileID models.ProfileID, from, to time.Time) (int, error)

	// CountFailuresBetween counts invalid-credential denials with from <= timestamp <= to.
	CountFailuresBetween(ctx context.Context, profileID models.ProfileID, from, to time.Time) (int, error)

	// LastLock returns the latest LockedUntil recorded for the profile, or nil.
	LastLock(ctx context.Context, profileID models.ProfileID) (*time.Time, error)

	// ListRecent returns attempts newest first plus the total count.
	ListRecent(ctx context.Context, profileID models.ProfileID, offset, limit int) ([]models.AccessAttempt, int, error)
}

// LockCache caches derived lock state in front of the audit log.
type LockCache interface {
	// Get returns the cached lock expiry. ok is false on a cache miss.
	Get(ctx context.Context, profileID models.ProfileID) (until time.Time, ok bool, err error)
	Set(ctx context.Context, profileID models.ProfileID, until time.Time) error
	Clear(ctx context.Context, profileID models.ProfileID) error
}

// ProfileLocker serializes work on a single profile.
type ProfileLocker interface {
	// WithProfileLock runs fn while holding the profile's lock. The context
	// passed to fn may carry a transaction that stores must join.
	WithProfileLock(ctx context.Context, profileID models.ProfileID, fn func(ctx context.Context) error) error
}

// LogAudit logs a security-relevant event and forwards it to the publisher.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher EventPublisher, event audit.Event, attrs ...any) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	args := append(attrs, "event", event.Action, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event.Action), args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
