package verification

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/grant"
	"lifeline/internal/emergency/metrics"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports/mocks"
	"lifeline/internal/emergency/service/auditlog"
	"lifeline/internal/emergency/service/lockout"
	"lifeline/internal/emergency/service/methods"
	"lifeline/internal/emergency/service/restriction"
	attemptstore "lifeline/internal/emergency/store/attempt"
	"lifeline/internal/emergency/store/lockcache"
	"lifeline/internal/emergency/store/locker"
	profilestore "lifeline/internal/emergency/store/profile"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, e audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) byAction(action audit.AuditEvent) []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []audit.Event
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type VerificationSuite struct {
	suite.Suite
	profiles  *profilestore.InMemoryStore
	attempts  *attemptstore.InMemoryStore
	publisher *recordingPublisher
	registry  *methods.Registry
	metrics   *metrics.Metrics
	service   *Service
	profile   *models.EmergencyAccessProfile
	qrToken   string
	now       time.Time
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) SetupTest() {
	// A Tuesday.
	s.now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	s.profiles = profilestore.New()
	s.attempts = attemptstore.New()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())

	cfg := config.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost

	var err error
	s.registry, err = methods.New(s.profiles, methods.WithConfig(cfg))
	s.Require().NoError(err)
	auditLog, err := auditlog.New(s.attempts, auditlog.WithConfig(cfg))
	s.Require().NoError(err)
	lockSvc, err := lockout.New(auditLog, lockout.WithCache(lockcache.New()))
	s.Require().NoError(err)

	s.service, err = New(s.profiles, s.registry, auditLog, lockSvc, locker.New(),
		WithConfig(cfg),
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)

	s.profile, err = models.NewProfile(models.PatientID(uuid.New()), models.PatientRecord{
		Name:        "Ada",
		DateOfBirth: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Primary", Phone: "+15550001", Primary: true},
			{Name: "Other", Phone: "+15550002"},
		},
	}, s.now.Add(-48*time.Hour))
	s.Require().NoError(err)
	s.profile.Alerts = models.MedicalAlerts{
		BloodType:          "A+",
		CriticalAllergies:  []string{"latex"},
		ActiveConditions:   []string{"epilepsy"},
		CurrentMedications: []string{"valproate"},
	}
	s.Require().NoError(s.profiles.Create(context.Background(), s.profile))

	h, err := s.registry.RegisterOrRotate(s.at(s.now.Add(-time.Hour)), s.profile.ID, methods.QRCodeParams{})
	s.Require().NoError(err)
	s.qrToken = h.Secret
}

func (s *VerificationSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *VerificationSuite) updateProfile(fn func(p *models.EmergencyAccessProfile)) {
	p, err := s.profiles.Get(context.Background(), s.profile.ID)
	s.Require().NoError(err)
	fn(p)
	s.Require().NoError(s.profiles.Save(context.Background(), p))
}

func (s *VerificationSuite) qrRequest(token string) *models.VerificationRequest {
	id := s.profile.ID
	return &models.VerificationRequest{ProfileRef: &id, MethodKind: models.MethodQRCode, Credential: token}
}

func (s *VerificationSuite) verifyAt(t time.Time, req *models.VerificationRequest) *models.VerificationResult {
	res, err := s.service.Verify(s.at(t), req)
	s.Require().NoError(err)
	s.Require().NotNil(res)
	return res
}

func (s *VerificationSuite) auditCount(id models.ProfileID) int {
	_, total, err := s.attempts.ListRecent(context.Background(), id, 0, 1)
	s.Require().NoError(err)
	return total
}

func (s *VerificationSuite) TestNewRequiresCollaborators() {
	_, err := New(nil, nil, nil, nil, nil)
	s.Error(err)
}

// =============================================================================
// Approval
// =============================================================================

func (s *VerificationSuite) TestValidQRIsApprovedWithOneAuditEntry() {
	req := &models.VerificationRequest{MethodKind: models.MethodQRCode, Credential: s.qrToken}
	res := s.verifyAt(s.now, req)

	s.True(res.Approved())
	s.Equal(models.AccessLevelBasic, res.AccessLevel)
	s.Equal(s.profile.ID, res.ProfileID)
	s.Require().NotNil(res.Disclosed)
	s.Equal("Ada", res.Disclosed.Name)
	s.Empty(res.Disclosed.ActiveConditions)
	s.Empty(res.Disclosed.CurrentMedications)
	s.Equal(1, s.auditCount(s.profile.ID))

	page, _, err := s.attempts.ListRecent(context.Background(), s.profile.ID, 0, 1)
	s.Require().NoError(err)
	s.Equal(res.AttemptID, page[0].ID)
	s.Equal(models.OutcomeApproved, page[0].Outcome)
	s.Equal(res.Disclosed.Fields, page[0].DisclosedFields)

	granted := s.publisher.byAction(audit.EventAccessGranted)
	s.Require().Len(granted, 1)
	s.Equal(s.profile.ID.String(), granted[0].Subject)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("approved", "none", "qr_code")))
}

func (s *VerificationSuite) TestScenarioSelectsAccessLevel() {
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Scenarios = []models.EmergencyScenario{{
			Type:               models.ScenarioCardiacArrest,
			AccessLevel:        models.AccessLevelFull,
			AutoNotifyContacts: true,
		}}
	})

	s.Run("configured scenario", func() {
		req := s.qrRequest(s.qrToken)
		req.Scenario = models.ScenarioCardiacArrest
		res := s.verifyAt(s.now, req)
		s.Equal(models.AccessLevelFull, res.AccessLevel)
		s.Equal([]string{"epilepsy"}, res.Disclosed.ActiveConditions)

		granted := s.publisher.byAction(audit.EventAccessGranted)
		s.Require().NotEmpty(granted)
		s.Equal([]string{"+15550001", "+15550002"}, granted[len(granted)-1].Recipients)
	})

	s.Run("unconfigured scenario falls back to the default", func() {
		req := s.qrRequest(s.qrToken)
		req.Scenario = models.ScenarioStroke
		res := s.verifyAt(s.now.Add(time.Minute), req)
		s.Equal(models.AccessLevelBasic, res.AccessLevel)
	})
}

func (s *VerificationSuite) TestGrantIssuedOnApproval() {
	grants, err := grant.NewService("0123456789abcdef0123456789abcdef", "lifeline", "responders", 5*time.Minute)
	s.Require().NoError(err)
	WithGrants(grants)(s.service)

	res := s.verifyAt(s.now, s.qrRequest(s.qrToken))
	s.Require().True(res.Approved())
	s.NotEmpty(res.GrantToken)
	s.Equal(s.now.Add(5*time.Minute), res.GrantExpiry)

	claims, err := grants.Validate(res.GrantToken, s.now)
	s.Require().NoError(err)
	s.Equal(res.AttemptID.String(), claims.AttemptID)

	denied := s.verifyAt(s.now, s.qrRequest("wrong"))
	s.Empty(denied.GrantToken)
}

// =============================================================================
// Lockout
// =============================================================================

func (s *VerificationSuite) TestThirdFailureLocksAndValidCredentialIsThenDenied() {
	for i := range 3 {
		res := s.verifyAt(s.now.Add(time.Duration(i*20)*time.Second), s.qrRequest("wrong"))
		s.Equal(models.ReasonInvalidCredential, res.Reason, "attempt %d", i+1)
		if i < 2 {
			s.Nil(res.LockedUntil)
		}
	}

	res := s.verifyAt(s.now.Add(60*time.Second), s.qrRequest(s.qrToken))
	s.Equal(models.OutcomeDenied, res.Decision)
	s.Equal(models.ReasonLocked, res.Reason)
	s.Require().NotNil(res.LockedUntil)
	s.Equal(s.now.Add(40*time.Second).Add(time.Hour), *res.LockedUntil)

	s.Equal(4, s.auditCount(s.profile.ID))

	lockEvents := s.publisher.byAction(audit.EventLockoutTriggered)
	s.Require().Len(lockEvents, 1)
	s.Equal(audit.SeverityCritical, lockEvents[0].Severity)
	s.Equal([]string{"+15550001"}, lockEvents[0].Recipients)

	critical := 0
	for _, e := range s.publisher.byAction(audit.EventAccessDenied) {
		if e.Severity == audit.SeverityCritical {
			critical++
		}
	}
	s.Equal(1, critical)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LockoutsTriggered))
}

func (s *VerificationSuite) TestLockedAttemptsDoNotExtendTheLock() {
	for i := range 3 {
		s.verifyAt(s.now.Add(time.Duration(i)*time.Second), s.qrRequest("wrong"))
	}
	until := s.now.Add(2 * time.Second).Add(time.Hour)

	for i := range 5 {
		res := s.verifyAt(s.now.Add(time.Duration(10+i)*time.Minute), s.qrRequest("wrong"))
		s.Equal(models.ReasonLocked, res.Reason)
		s.Equal(until, *res.LockedUntil)
	}
}

func (s *VerificationSuite) TestLockExpiresLazily() {
	for i := range 3 {
		s.verifyAt(s.now.Add(time.Duration(i)*time.Second), s.qrRequest("wrong"))
	}
	until := s.now.Add(2 * time.Second).Add(time.Hour)

	s.Run("one instant before expiry is still locked", func() {
		res := s.verifyAt(until.Add(-time.Millisecond), s.qrRequest(s.qrToken))
		s.Equal(models.ReasonLocked, res.Reason)
	})

	s.Run("at expiry the profile is usable", func() {
		res := s.verifyAt(until, s.qrRequest(s.qrToken))
		s.True(res.Approved())
	})

	s.Run("failures behind the old lock do not re-lock", func() {
		res := s.verifyAt(until.Add(time.Minute), s.qrRequest("wrong"))
		s.Equal(models.ReasonInvalidCredential, res.Reason)
		s.Nil(res.LockedUntil)

		res = s.verifyAt(until.Add(2*time.Minute), s.qrRequest(s.qrToken))
		s.True(res.Approved())
	})
}

func (s *VerificationSuite) TestFailuresOutsideTheWindowDoNotLock() {
	s.verifyAt(s.now, s.qrRequest("wrong"))
	s.verifyAt(s.now.Add(time.Minute), s.qrRequest("wrong"))
	res := s.verifyAt(s.now.Add(20*time.Minute), s.qrRequest("wrong"))
	s.Equal(models.ReasonInvalidCredential, res.Reason)
	s.Nil(res.LockedUntil)

	res = s.verifyAt(s.now.Add(21*time.Minute), s.qrRequest(s.qrToken))
	s.True(res.Approved())
}

func (s *VerificationSuite) TestOnlyInvalidCredentialsCountAsFailures() {
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Location = models.LocationRestriction{
			Enabled:   true,
			Geofences: []models.Geofence{{Center: models.Coordinates{Lat: 10, Lon: 10}, RadiusMeters: 100}},
		}
	})
	for i := range 5 {
		res := s.verifyAt(s.now.Add(time.Duration(i)*time.Second), s.qrRequest("wrong"))
		s.Equal(models.ReasonLocationNotAllowed, res.Reason)
	}
	state, err := s.service.lockout.IsLocked(s.at(s.now.Add(time.Minute)), s.profile.ID)
	s.Require().NoError(err)
	s.False(state.IsLocked)
}

func (s *VerificationSuite) TestConcurrentFailuresCrossTheThresholdOnce() {
	const callers = 10
	var wg sync.WaitGroup
	results := make([]*models.VerificationResult, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.service.Verify(s.at(s.now), s.qrRequest("wrong"))
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	counts := map[models.DenialReason]int{}
	locks := 0
	for _, r := range results {
		s.Require().NotNil(r)
		counts[r.Reason]++
		if r.Reason == models.ReasonInvalidCredential && r.LockedUntil != nil {
			locks++
		}
	}
	s.Equal(3, counts[models.ReasonInvalidCredential])
	s.Equal(7, counts[models.ReasonLocked])
	s.Equal(1, locks)
	s.Equal(callers, s.auditCount(s.profile.ID))
}

// =============================================================================
// Quota and restrictions
// =============================================================================

func (s *VerificationSuite) TestDailyQuota() {
	for i := range 10 {
		res := s.verifyAt(s.now.Add(time.Duration(i)*time.Minute), s.qrRequest(s.qrToken))
		s.True(res.Approved(), "attempt %d", i+1)
	}

	res := s.verifyAt(s.now.Add(11*time.Minute), s.qrRequest(s.qrToken))
	s.Equal(models.ReasonQuotaExceeded, res.Reason)

	res = s.verifyAt(s.now.Add(12*time.Minute), s.qrRequest("wrong"))
	s.Equal(models.ReasonQuotaExceeded, res.Reason)

	nextDay := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	res = s.verifyAt(nextDay, s.qrRequest(s.qrToken))
	s.True(res.Approved())
}

func (s *VerificationSuite) TestQuotaCountsEveryOutcome() {
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Security.MaxDailyAccess = 3
		p.Security.AutoLockAfterFailures = 10
	})
	s.verifyAt(s.now, s.qrRequest("wrong"))
	s.verifyAt(s.now.Add(time.Second), s.qrRequest(s.qrToken))
	s.verifyAt(s.now.Add(2*time.Second), s.qrRequest("wrong"))

	res := s.verifyAt(s.now.Add(3*time.Second), s.qrRequest(s.qrToken))
	s.Equal(models.ReasonQuotaExceeded, res.Reason)
}

// pointNorth returns a point meters north of c along its meridian.
func pointNorth(c models.Coordinates, meters float64) models.Coordinates {
	return models.Coordinates{Lat: c.Lat + meters/restriction.EarthRadiusMeters*180/math.Pi, Lon: c.Lon}
}

func (s *VerificationSuite) TestGeofence() {
	center := models.Coordinates{Lat: 40.7128, Lon: -74.0060}
	const radius = 250.0
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Location = models.LocationRestriction{
			Enabled:   true,
			Geofences: []models.Geofence{{Center: center, RadiusMeters: radius, Kind: models.FacilityHospital}},
		}
	})

	withLocation := func(c models.Coordinates) *models.VerificationRequest {
		req := s.qrRequest(s.qrToken)
		req.Context = models.RequestContext{Lat: c.Lat, Lon: c.Lon, HasLocation: true}
		return req
	}

	s.Run("at the center", func() {
		s.True(s.verifyAt(s.now, withLocation(center)).Approved())
	})

	s.Run("one meter beyond the radius", func() {
		res := s.verifyAt(s.now.Add(time.Second), withLocation(pointNorth(center, radius+1)))
		s.Equal(models.ReasonLocationNotAllowed, res.Reason)
	})

	s.Run("no location reported", func() {
		res := s.verifyAt(s.now.Add(2*time.Second), s.qrRequest(s.qrToken))
		s.Equal(models.ReasonLocationNotAllowed, res.Reason)
	})
}

func (s *VerificationSuite) TestTimeRestriction() {
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Time = models.TimeRestriction{
			Enabled:   true,
			StartHour: 8,
			EndHour:   18,
			Weekdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Timezone:  "UTC",
		}
	})

	s.True(s.verifyAt(s.now, s.qrRequest(s.qrToken)).Approved())
	res := s.verifyAt(s.now.Add(9*time.Hour), s.qrRequest(s.qrToken))
	s.Equal(models.ReasonTimeNotAllowed, res.Reason)
}

func (s *VerificationSuite) TestCheckOrder() {
	// Quota is checked before location, location before the credential.
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Security.MaxDailyAccess = 1
		p.Location = models.LocationRestriction{
			Enabled:   true,
			Geofences: []models.Geofence{{Center: models.Coordinates{Lat: 1, Lon: 1}, RadiusMeters: 10}},
		}
	})
	res := s.verifyAt(s.now, s.qrRequest("wrong"))
	s.Equal(models.ReasonLocationNotAllowed, res.Reason)

	res = s.verifyAt(s.now.Add(time.Second), s.qrRequest("wrong"))
	s.Equal(models.ReasonQuotaExceeded, res.Reason)
}

// =============================================================================
// Method state
// =============================================================================

func (s *VerificationSuite) TestRotatedTokenNoLongerResolves() {
	old := s.qrToken
	_, err := s.registry.RegisterOrRotate(s.at(s.now), s.profile.ID, methods.QRCodeParams{})
	s.Require().NoError(err)

	res := s.verifyAt(s.now.Add(time.Second), &models.VerificationRequest{MethodKind: models.MethodQRCode, Credential: old})
	s.Equal(models.ReasonNotFound, res.Reason)
	s.True(res.ProfileID.IsNil())
}

func (s *VerificationSuite) TestRotatedTokenWithProfileRefIsExpired() {
	old := s.qrToken
	h, err := s.registry.RegisterOrRotate(s.at(s.now), s.profile.ID, methods.QRCodeParams{})
	s.Require().NoError(err)

	res := s.verifyAt(s.now.Add(time.Second), s.qrRequest(old))
	s.Equal(models.OutcomeDenied, res.Decision)
	s.Equal(models.ReasonExpiredToken, res.Reason)

	// Stale scans never count as failures, so the profile does not lock.
	for i := range 4 {
		res = s.verifyAt(s.now.Add(time.Duration(i+2)*time.Second), s.qrRequest(old))
		s.Equal(models.ReasonExpiredToken, res.Reason, "scan %d", i+2)
		s.Nil(res.LockedUntil)
	}
	s.Empty(s.publisher.byAction(audit.EventLockoutTriggered))

	s.True(s.verifyAt(s.now.Add(time.Minute), s.qrRequest(h.Secret)).Approved())
}

func (s *VerificationSuite) TestDisabledAndExpiredMethods() {
	s.Run("expired token", func() {
		res := s.verifyAt(s.now.Add(24*time.Hour), s.qrRequest(s.qrToken))
		s.Equal(models.ReasonExpiredToken, res.Reason)
	})

	s.Run("disabled method", func() {
		s.Require().NoError(s.registry.SetEnabled(s.at(s.now), s.profile.ID, models.MethodQRCode, false))
		res := s.verifyAt(s.now.Add(time.Minute), s.qrRequest(s.qrToken))
		s.Equal(models.ReasonMethodDisabled, res.Reason)
	})

	s.Run("disabled method with a wrong secret reveals nothing more", func() {
		res := s.verifyAt(s.now.Add(2*time.Minute), s.qrRequest("wrong"))
		s.Equal(models.ReasonInvalidCredential, res.Reason)
	})
}

func (s *VerificationSuite) TestUnconfiguredMethodIsInvalidCredential() {
	id := s.profile.ID
	res := s.verifyAt(s.now, &models.VerificationRequest{
		ProfileRef: &id,
		MethodKind: models.MethodNationalID,
		Credential: "X1",
	})
	s.Equal(models.ReasonInvalidCredential, res.Reason)
}

func (s *VerificationSuite) TestOTPIsSingleUse() {
	h, err := s.registry.RegisterOrRotate(s.at(s.now), s.profile.ID, methods.OTPFallbackParams{GuardianPhones: []string{"+1"}})
	s.Require().NoError(err)
	id := s.profile.ID
	req := &models.VerificationRequest{ProfileRef: &id, MethodKind: models.MethodOTP, Credential: h.Secret}

	s.True(s.verifyAt(s.now.Add(time.Minute), req).Approved())
	res := s.verifyAt(s.now.Add(2*time.Minute), req)
	s.Equal(models.ReasonExpiredToken, res.Reason)
}

// =============================================================================
// Unknown profiles
// =============================================================================

func (s *VerificationSuite) TestNotFound() {
	s.Run("unknown token is audited", func() {
		res := s.verifyAt(s.now, &models.VerificationRequest{MethodKind: models.MethodNFC, Credential: "TAG"})
		s.Equal(models.ReasonNotFound, res.Reason)
		s.False(res.AttemptID.IsNil())
		s.Equal(1, s.auditCount(models.ProfileID{}))
	})

	s.Run("unknown profile reference", func() {
		id := models.NewProfileID()
		res := s.verifyAt(s.now, &models.VerificationRequest{ProfileRef: &id, MethodKind: models.MethodQRCode, Credential: s.qrToken})
		s.Equal(models.ReasonNotFound, res.Reason)
		s.Equal(1, s.auditCount(id))
	})

	s.Run("inactive profile", func() {
		s.updateProfile(func(p *models.EmergencyAccessProfile) { p.Deactivate(s.now) })
		res := s.verifyAt(s.now, s.qrRequest(s.qrToken))
		s.Equal(models.ReasonNotFound, res.Reason)
		s.Equal(1, s.auditCount(s.profile.ID))
	})

	s.Run("no profile events are emitted", func() {
		s.Empty(s.publisher.byAction(audit.EventAccessDenied))
	})
}

func (s *VerificationSuite) TestInvalidMethodKindIsAnError() {
	_, err := s.service.Verify(s.at(s.now), &models.VerificationRequest{MethodKind: "telepathy"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Zero(s.auditCount(s.profile.ID))
}

func (s *VerificationSuite) TestNotificationPreferences() {
	s.updateProfile(func(p *models.EmergencyAccessProfile) {
		p.Notifications = models.NotificationPreferences{}
	})
	s.verifyAt(s.now, s.qrRequest(s.qrToken))
	s.verifyAt(s.now.Add(time.Second), s.qrRequest("wrong"))
	s.Empty(s.publisher.byAction(audit.EventAccessGranted))
	s.Empty(s.publisher.byAction(audit.EventAccessDenied))
}

// =============================================================================
// Persistence faults
// =============================================================================

type faultSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	profiles *mocks.MockProfileStore
	attempts *mocks.MockAttemptStore
	service  *Service
	profile  *models.EmergencyAccessProfile
	now      time.Time
}

func TestVerificationFaultSuite(t *testing.T) {
	suite.Run(t, new(faultSuite))
}

func (s *faultSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.profiles = mocks.NewMockProfileStore(s.ctrl)
	s.attempts = mocks.NewMockAttemptStore(s.ctrl)
	s.now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	registry, err := methods.New(s.profiles)
	s.Require().NoError(err)
	auditLog, err := auditlog.New(s.attempts)
	s.Require().NoError(err)
	lockSvc, err := lockout.New(auditLog)
	s.Require().NoError(err)
	s.service, err = New(s.profiles, registry, auditLog, lockSvc, locker.New())
	s.Require().NoError(err)

	s.profile, err = models.NewProfile(models.PatientID(uuid.New()), models.PatientRecord{Name: "Ada"}, s.now)
	s.Require().NoError(err)
}

func (s *faultSuite) request() *models.VerificationRequest {
	id := s.profile.ID
	return &models.VerificationRequest{ProfileRef: &id, MethodKind: models.MethodBiometric, Credential: "x"}
}

func (s *faultSuite) TestProfileLoadFailure() {
	s.profiles.EXPECT().Get(gomock.Any(), s.profile.ID).Return(nil, errors.New("connection refused"))

	res, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), s.request())
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *faultSuite) TestLockReadFailure() {
	s.profiles.EXPECT().Get(gomock.Any(), s.profile.ID).Return(s.profile, nil)
	s.attempts.EXPECT().LastLock(gomock.Any(), s.profile.ID).Return(nil, errors.New("timeout"))

	res, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), s.request())
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *faultSuite) TestAppendFailureIsNotADenial() {
	s.profiles.EXPECT().Get(gomock.Any(), s.profile.ID).Return(s.profile, nil)
	s.attempts.EXPECT().LastLock(gomock.Any(), s.profile.ID).Return(nil, nil).AnyTimes()
	s.attempts.EXPECT().CountBetween(gomock.Any(), s.profile.ID, gomock.Any(), gomock.Any()).Return(0, nil)
	s.attempts.EXPECT().CountFailuresBetween(gomock.Any(), s.profile.ID, gomock.Any(), gomock.Any()).Return(0, nil)
	s.attempts.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	res, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now), s.request())
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *faultSuite) TestTokenLookupFailure() {
	s.profiles.EXPECT().FindByDigest(gomock.Any(), models.MethodQRCode, gomock.Any()).Return(models.ProfileID{}, errors.New("reset"))

	res, err := s.service.Verify(requestcontext.WithTime(context.Background(), s.now),
		&models.VerificationRequest{MethodKind: models.MethodQRCode, Credential: "tok"})
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
