// Package profile manages the lifecycle of emergency access profiles:
// setup, settings changes, deactivation, and alert previews.
package profile

import (
	"context"
	"errors"
	"log/slog"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports"
	"lifeline/internal/emergency/service/methods"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/phone"
	"lifeline/pkg/platform/sentinel"
	"lifeline/pkg/requestcontext"
)

// Service owns profile writes other than method changes.
type Service struct {
	profiles  ports.ProfileStore
	methods   *methods.Registry
	locker    ports.ProfileLocker
	publisher ports.EventPublisher
	logger    *slog.Logger
	config    *config.Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLocker serializes profile writes with verification. Without it writes
// are only as safe as the store's own Save.
func WithLocker(locker ports.ProfileLocker) Option {
	return func(s *Service) { s.locker = locker }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func New(profiles ports.ProfileStore, registry *methods.Registry, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if registry == nil {
		return nil, errors.New("method registry is required")
	}
	s := &Service{
		profiles: profiles,
		methods:  registry,
		logger:   slog.Default(),
		config:   config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Settings is a partial update. Nil fields are left unchanged.
type Settings struct {
	DefaultAccessLevel *models.AccessLevel
	Security           *models.SecurityPolicy
	Location           *models.LocationRestriction
	Time               *models.TimeRestriction
	Scenarios          []models.EmergencyScenario
	Notifications      *models.NotificationPreferences
	Alerts             *models.MedicalAlerts
	Patient            *models.PatientRecord
}

func (st Settings) apply(p *models.EmergencyAccessProfile) {
	if st.DefaultAccessLevel != nil {
		p.DefaultAccessLevel = *st.DefaultAccessLevel
	}
	if st.Security != nil {
		p.Security = *st.Security
	}
	if st.Location != nil {
		p.Location = *st.Location
	}
	if st.Time != nil {
		p.Time = *st.Time
	}
	if st.Scenarios != nil {
		p.Scenarios = st.Scenarios
	}
	if st.Notifications != nil {
		p.Notifications = *st.Notifications
	}
	if st.Alerts != nil {
		p.Alerts = *st.Alerts
	}
	if st.Patient != nil {
		p.Patient = *st.Patient
	}
}

// SetupRequest creates a profile for a patient.
type SetupRequest struct {
	PatientID models.PatientID
	Patient   models.PatientRecord
	Settings  Settings
	// EnableQRCode issues a QR token as part of setup.
	EnableQRCode bool
}

// SetupResult carries the new profile and, when requested, the QR token.
// The token is only ever available here.
type SetupResult struct {
	Profile *models.EmergencyAccessProfile
	QRCode  *methods.MethodHandle
}

// Setup creates the patient's profile. A patient may own one active profile.
func (s *Service) Setup(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	now := requestcontext.Now(ctx)

	if existing, err := s.profiles.GetActiveByPatient(ctx, req.PatientID); err == nil && existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "patient already has an active emergency profile")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing profile")
	}

	p, err := models.NewProfile(req.PatientID, req.Patient, now)
	if err != nil {
		return nil, asValidation(err)
	}
	p.Security = s.config.Security
	req.Settings.apply(p)
	if err := p.Validate(); err != nil {
		return nil, asValidation(err)
	}

	result := &SetupResult{Profile: p}
	if req.EnableQRCode {
		h, err := s.methods.Build(p.ID, methods.QRCodeParams{}, now)
		if err != nil {
			return nil, err
		}
		p.Methods[models.MethodQRCode] = h.Method
		result.QRCode = h
	}

	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "patient already has an active emergency profile")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create emergency profile")
	}

	s.audit(ctx, audit.Event{Action: audit.EventProfileCreated, Subject: p.ID.String()})
	return result, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load emergency profile")
	}
	return p, nil
}

// UpdateSettings applies a partial update to an active profile.
func (s *Service) UpdateSettings(ctx context.Context, id models.ProfileID, settings Settings) (*models.EmergencyAccessProfile, error) {
	var updated *models.EmergencyAccessProfile
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		p, err := s.loadActive(ctx, id)
		if err != nil {
			return err
		}
		settings.apply(p)
		if err := p.Validate(); err != nil {
			return asValidation(err)
		}
		p.UpdatedAt = requestcontext.Now(ctx)
		p.Version++
		if err := s.profiles.Save(ctx, p); err != nil {
			return wrapStoreErr(err, "failed to save emergency profile")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.Event{Action: audit.EventProfileUpdated, Subject: id.String()})
	return updated, nil
}

// Deactivate retires a profile. Profiles are never deleted; their audit
// history stays readable.
func (s *Service) Deactivate(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	var deactivated *models.EmergencyAccessProfile
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		p, err := s.profiles.Get(ctx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load emergency profile")
		}
		if !p.IsActive {
			return dErrors.New(dErrors.CodeConflict, "emergency profile is already inactive")
		}
		p.Deactivate(requestcontext.Now(ctx))
		if err := s.profiles.Save(ctx, p); err != nil {
			return wrapStoreErr(err, "failed to save emergency profile")
		}
		deactivated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.Event{
		Action:   audit.EventProfileDeactivated,
		Subject:  id.String(),
		Severity: audit.SeverityWarning,
	})
	return deactivated, nil
}

// AlertPreview describes what a real access under a scenario would trigger.
type AlertPreview struct {
	ProfileID   models.ProfileID
	Scenario    models.ScenarioType
	AccessLevel models.AccessLevel
	Recipients  []string
}

// TestAlert emits an access_test event so the patient can check their
// contacts are reachable. Nothing is disclosed and no attempt is recorded.
func (s *Service) TestAlert(ctx context.Context, id models.ProfileID, scenario models.ScenarioType) (*AlertPreview, error) {
	p, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	preview := &AlertPreview{
		ProfileID:   id,
		Scenario:    scenario,
		AccessLevel: p.ResolveAccessLevel(scenario),
	}
	phones := make([]string, 0, len(p.Patient.EmergencyContacts))
	for _, c := range p.Patient.EmergencyContacts {
		phones = append(phones, c.Phone)
	}
	preview.Recipients = phone.DedupeList(phones)
	if len(preview.Recipients) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "profile has no emergency contacts to alert")
	}

	s.audit(ctx, audit.Event{
		Action:      audit.EventAccessTest,
		Subject:     id.String(),
		AccessLevel: preview.AccessLevel.String(),
		Recipients:  preview.Recipients,
		ActorID:     requestcontext.TerminalID(ctx),
		Test:        true,
	})
	return preview, nil
}

func (s *Service) loadActive(ctx context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load emergency profile")
	}
	if !p.IsActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "emergency profile not found")
	}
	return p, nil
}

func (s *Service) withLock(ctx context.Context, id models.ProfileID, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithProfileLock(ctx, id, fn)
}

func (s *Service) audit(ctx context.Context, event audit.Event) {
	ports.LogAudit(ctx, s.logger, s.publisher, event, "profile_id", event.Subject)
}

func wrapStoreErr(err error, msg string) error {
	switch {
	case dErrors.CodeOf(err) != "":
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "emergency profile not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "emergency profile conflicts with an existing one")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// asValidation turns model invariant failures into caller-facing validation errors.
func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
	}
	return err
}
