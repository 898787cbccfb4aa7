// Package methods manages the verification methods attached to emergency
// profiles: registration and rotation, token lookup, enablement, and
// constant-time credential comparison.
package methods

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"time"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/metrics"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// Store is the subset of the profile store the registry needs.
type Store interface {
	Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error)
	Save(ctx context.Context, profile *models.EmergencyAccessProfile) error
	FindByDigest(ctx context.Context, kind models.MethodKind, digest string) (models.ProfileID, error)
}

// Registry owns method lifecycle for stored profiles.
type Registry struct {
	store     Store
	locker    ports.ProfileLocker
	publisher ports.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	builder   *Builder
}

// Option configures the Registry.
type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithPublisher(publisher ports.EventPublisher) Option {
	return func(r *Registry) { r.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLocker serializes profile mutations with verification.
func WithLocker(locker ports.ProfileLocker) Option {
	return func(r *Registry) { r.locker = locker }
}

// WithConfig applies token lifetimes and hashing cost.
func WithConfig(cfg *config.Config) Option {
	return func(r *Registry) {
		if cfg == nil {
			return
		}
		r.builder.qrTTL = cfg.QRTokenTTL
		r.builder.otpTTL = cfg.OTPTTL
		r.builder.otpDigits = cfg.OTPDigits
		r.builder.bcryptCost = cfg.BcryptCost
	}
}

// WithRandom replaces the randomness source used for tokens and codes.
func WithRandom(reader io.Reader) Option {
	return func(r *Registry) {
		if reader != nil {
			r.builder.rand = reader
		}
	}
}

// New creates a Registry.
func New(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	defaults := config.DefaultConfig()
	r := &Registry{
		store:  store,
		logger: slog.Default(),
		builder: &Builder{
			rand:       rand.Reader,
			qrTTL:      defaults.QRTokenTTL,
			otpTTL:     defaults.OTPTTL,
			otpDigits:  defaults.OTPDigits,
			bcryptCost: defaults.BcryptCost,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Build creates a method without storing it. Profile setup uses it to
// assemble a profile before its first save.
func (r *Registry) Build(profileID models.ProfileID, p Params, now time.Time) (*MethodHandle, error) {
	return r.builder.Build(profileID, p, now)
}

// RegisterOrRotate installs a method of the given kind, replacing any
// existing one. Rotating a QR code or NFC tag invalidates the previous digest.
func (r *Registry) RegisterOrRotate(ctx context.Context, profileID models.ProfileID, p Params) (*MethodHandle, error) {
	if p == nil || !p.Kind().IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported method kind")
	}
	var handle *MethodHandle
	err := r.withLock(ctx, profileID, func(ctx context.Context) error {
		profile, err := r.load(ctx, profileID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		prev, existed := profile.Method(p.Kind())

		h, err := r.builder.Build(profileID, p, now)
		if err != nil {
			return err
		}
		if qr, ok := h.Method.(models.QRCodeMethod); ok && existed {
			if old, ok := prev.(models.QRCodeMethod); ok {
				h.Method = qr.Supersede(old)
			}
		}
		profile.SetMethod(h.Method, now)
		if err := r.store.Save(ctx, profile); err != nil {
			return translateStoreErr(err, "failed to save access method")
		}
		handle = h
		r.metrics.IncrementRotation(p.Kind().String())

		action := audit.EventMethodEnabled
		if existed {
			action = audit.EventMethodRotated
		}
		ports.LogAudit(ctx, r.logger, r.publisher, audit.Event{
			Action:  action,
			Subject: profileID.String(),
			Method:  p.Kind().String(),
		}, "profile_id", profileID.String(), "method", p.Kind().String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Locate maps a presented QR token or NFC tag to its profile without
// checking enablement or expiry.
func (r *Registry) Locate(ctx context.Context, kind models.MethodKind, credential string) (models.ProfileID, error) {
	if !kind.IsTokenLookup() {
		return models.ProfileID{}, dErrors.New(dErrors.CodeInvalidInput, "method kind does not support lookup")
	}
	digest := Digest(NormalizeCredential(kind, credential))
	id, err := r.store.FindByDigest(ctx, kind, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.ProfileID{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "token not found")
		}
		return models.ProfileID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
	}
	return id, nil
}

// Resolve maps a presented token to an active profile with a usable method.
// Errors wrap sentinel.ErrNotFound, sentinel.ErrDisabled, or sentinel.ErrExpired.
func (r *Registry) Resolve(ctx context.Context, kind models.MethodKind, credential string) (models.ProfileID, error) {
	id, err := r.Locate(ctx, kind, credential)
	if err != nil {
		return models.ProfileID{}, err
	}
	profile, err := r.load(ctx, id)
	if err != nil {
		return models.ProfileID{}, err
	}
	if !profile.IsActive {
		return models.ProfileID{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "token not found")
	}
	m, ok := profile.Method(kind)
	if !ok {
		return models.ProfileID{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "token not found")
	}
	if tm, ok := m.(models.TokenMethod); !ok || tm.LookupDigest() != Digest(NormalizeCredential(kind, credential)) {
		return models.ProfileID{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "token not found")
	}
	if !m.State().Enabled {
		return models.ProfileID{}, dErrors.Wrap(sentinel.ErrDisabled, dErrors.CodeForbidden, "access method is disabled")
	}
	if models.IsExpiredAt(m, requestcontext.Now(ctx)) {
		return models.ProfileID{}, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeForbidden, "token has expired")
	}
	return id, nil
}

// SetEnabled switches a method on or off without touching its secret.
func (r *Registry) SetEnabled(ctx context.Context, profileID models.ProfileID, kind models.MethodKind, enabled bool) error {
	return r.withLock(ctx, profileID, func(ctx context.Context) error {
		profile, err := r.load(ctx, profileID)
		if err != nil {
			return err
		}
		m, ok := profile.Method(kind)
		if !ok {
			return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "access method not configured")
		}
		if m.State().Enabled == enabled {
			return nil
		}
		profile.SetMethod(models.WithEnabled(m, enabled), requestcontext.Now(ctx))
		if err := r.store.Save(ctx, profile); err != nil {
			return translateStoreErr(err, "failed to save access method")
		}

		action := audit.EventMethodDisabled
		if enabled {
			action = audit.EventMethodEnabled
		}
		ports.LogAudit(ctx, r.logger, r.publisher, audit.Event{
			Action:  action,
			Subject: profileID.String(),
			Method:  kind.String(),
		}, "profile_id", profileID.String(), "method", kind.String())
		return nil
	})
}

// MarkUsed records a successful use of a method and persists the profile.
// The caller must already hold the profile lock.
func (r *Registry) MarkUsed(ctx context.Context, profile *models.EmergencyAccessProfile, kind models.MethodKind) error {
	m, ok := profile.Method(kind)
	if !ok {
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "access method not configured")
	}
	profile.SetMethod(models.RecordUse(m, requestcontext.Now(ctx)), requestcontext.Now(ctx))
	if err := r.store.Save(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record method use")
	}
	return nil
}

func (r *Registry) withLock(ctx context.Context, id models.ProfileID, fn func(ctx context.Context) error) error {
	if r.locker == nil {
		return fn(ctx)
	}
	return r.locker.WithProfileLock(ctx, id, fn)
}

func (r *Registry) load(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	profile, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "emergency profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load emergency profile")
	}
	return profile, nil
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "token is already registered to another profile")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "emergency profile not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
