// Package verification is the emergency access decision engine. It checks a
// presented credential against a profile's lock, quota, location and time
// gates, and records exactly one audit entry per decision.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/grant"
	"lifeline/internal/emergency/metrics"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports"
	"lifeline/internal/emergency/service/auditlog"
	"lifeline/internal/emergency/service/lockout"
	"lifeline/internal/emergency/service/methods"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/privacy"
	"lifeline/pkg/requestcontext"
)

const tracerName = "lifeline/internal/emergency/service/verification"

// ProfileReader is the subset of the profile store the engine reads.
type ProfileReader interface {
	Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error)
}

// Service composes the method registry, audit log, and lockout controller
// into a single Verify operation.
type Service struct {
	profiles  ProfileReader
	methods   *methods.Registry
	auditLog  *auditlog.Service
	lockout   *lockout.Service
	locker    ports.ProfileLocker
	grants    *grant.Service
	publisher ports.EventPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
	config    *config.Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher sets the sink for access notifications.
func WithPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithGrants issues a signed grant on every approval.
func WithGrants(grants *grant.Service) Option {
	return func(s *Service) { s.grants = grants }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func New(
	profiles ProfileReader,
	registry *methods.Registry,
	auditLog *auditlog.Service,
	lockoutSvc *lockout.Service,
	locker ports.ProfileLocker,
	opts ...Option,
) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("method registry is required")
	}
	if auditLog == nil {
		return nil, fmt.Errorf("audit log is required")
	}
	if lockoutSvc == nil {
		return nil, fmt.Errorf("lockout service is required")
	}
	if locker == nil {
		return nil, fmt.Errorf("profile locker is required")
	}

	svc := &Service{
		profiles: profiles,
		methods:  registry,
		auditLog: auditLog,
		lockout:  lockoutSvc,
		locker:   locker,
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
		config:   config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify decides one emergency access request. Denials are results, not
// errors; the only error is a persistence fault, reported as CodeInternal
// (or CodeInvalidInput for an unknown method kind).
func (s *Service) Verify(ctx context.Context, req *models.VerificationRequest) (*models.VerificationResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveVerifyLatency(time.Since(start)) }()

	ctx, span := s.tracer.Start(ctx, "emergency.verify",
		trace.WithAttributes(attribute.String("emergency.method", string(req.MethodKind))),
	)
	defer span.End()

	if !req.MethodKind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported method kind")
	}

	// Every read in this decision sees the same instant.
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	d, err := s.verify(ctx, req, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		s.logger.ErrorContext(ctx, "emergency verification failed",
			"method", req.MethodKind,
			"error", err,
		)
		return nil, err
	}

	s.afterCommit(ctx, d)

	span.SetAttributes(
		attribute.String("emergency.decision", string(d.result.Decision)),
		attribute.String("emergency.reason", d.result.Reason.String()),
	)
	return d.result, nil
}

func (s *Service) verify(ctx context.Context, req *models.VerificationRequest, now time.Time) (*decision, error) {
	profileID, located, err := s.resolveProfileID(ctx, req)
	if err != nil {
		return nil, err
	}
	if !located {
		// Nothing to serialize on: the credential matched no profile.
		return s.recordNotFound(ctx, req, profileID, now)
	}

	var d *decision
	err = s.locker.WithProfileLock(ctx, profileID, func(ctx context.Context) error {
		var derr error
		d, derr = s.decide(ctx, req, profileID, now)
		return derr
	})
	if err != nil {
		return nil, asInternal(err, "failed to serialize verification")
	}
	return d, nil
}

// resolveProfileID returns the profile to evaluate. located is false when
// the request cannot name any profile.
func (s *Service) resolveProfileID(ctx context.Context, req *models.VerificationRequest) (models.ProfileID, bool, error) {
	if req.ProfileRef != nil && !req.ProfileRef.IsNil() {
		return *req.ProfileRef, true, nil
	}
	if !req.MethodKind.IsTokenLookup() {
		return models.ProfileID{}, false, nil
	}
	id, err := s.methods.Locate(ctx, req.MethodKind, req.Credential)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.ProfileID{}, false, nil
		}
		return models.ProfileID{}, false, err
	}
	return id, true, nil
}

// afterCommit runs side effects that must only follow a durable decision.
func (s *Service) afterCommit(ctx context.Context, d *decision) {
	r := d.result
	s.metrics.IncrementDecision(string(r.Decision), r.Reason.String(), string(d.attempt.MethodKind))
	if r.Approved() {
		s.metrics.IncrementDisclosure(string(r.AccessLevel))
	}
	if d.attempt.LockedUntil != nil {
		s.metrics.IncrementLockouts()
		s.lockout.Lock(ctx, d.attempt.ProfileID, *d.attempt.LockedUntil)
	}

	s.logger.InfoContext(ctx, "emergency access decided",
		"profile_id", d.attempt.ProfileID.String(),
		"attempt_id", d.attempt.ID.String(),
		"method", d.attempt.MethodKind,
		"decision", r.Decision,
		"reason", r.Reason.String(),
		"access_level", r.AccessLevel,
		"client_ip", privacy.AnonymizeIP(d.attempt.Context.CallerIP),
	)

	for _, event := range d.events {
		ports.LogAudit(ctx, s.logger, s.publisher, event,
			"profile_id", event.Subject,
			"decision", event.Decision,
		)
	}
}

func asInternal(err error, msg string) error {
	if dErrors.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// eventFor builds a notification event for an attempt.
func eventFor(action audit.AuditEvent, a *models.AccessAttempt) audit.Event {
	return audit.Event{
		Action:      action,
		Subject:     a.ProfileID.String(),
		Decision:    string(a.Outcome),
		Reason:      string(a.Reason),
		AccessLevel: string(a.AccessLevel),
		Method:      string(a.MethodKind),
		ClientIP:    privacy.AnonymizeIP(a.Context.CallerIP),
		Timestamp:   a.Timestamp(),
	}
}
