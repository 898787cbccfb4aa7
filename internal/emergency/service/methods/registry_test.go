package methods

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"lifeline/internal/emergency/config"
	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/store/locker"
	profilestore "lifeline/internal/emergency/store/profile"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/platform/audit"
	"lifeline/pkg/platform/sentinel"
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

func (p *recordingPublisher) actions() []audit.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]audit.AuditEvent, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type RegistrySuite struct {
	suite.Suite
	store     *profilestore.InMemoryStore
	publisher *recordingPublisher
	registry  *Registry
	profile   *models.EmergencyAccessProfile
	now       time.Time
	ctx       context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = profilestore.New()
	s.publisher = &recordingPublisher{}

	cfg := config.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost

	var err error
	s.registry, err = New(s.store,
		WithConfig(cfg),
		WithPublisher(s.publisher),
		WithLocker(locker.New()),
	)
	s.Require().NoError(err)

	s.profile, err = models.NewProfile(models.PatientID(uuid.New()), models.PatientRecord{Name: "Ada"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, s.profile))
}

func (s *RegistrySuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *RegistrySuite) TestNew() {
	_, err := New(nil)
	s.Error(err)
}

// =============================================================================
// Registration
// =============================================================================

func (s *RegistrySuite) TestRegisterQRCode() {
	s.Run("issues a 64-char hex token and stores only its digest", func() {
		h, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{})
		s.Require().NoError(err)
		s.Len(h.Secret, 64)
		s.Require().NotNil(h.ExpiresAt)
		s.Equal(s.now.Add(24*time.Hour), *h.ExpiresAt)

		stored, err := s.store.Get(s.ctx, s.profile.ID)
		s.Require().NoError(err)
		m, ok := stored.Method(models.MethodQRCode)
		s.Require().True(ok)
		qr := m.(models.QRCodeMethod)
		s.Equal(Digest(h.Secret), qr.TokenDigest)
		s.NotEqual(h.Secret, qr.TokenDigest)
		s.True(qr.Enabled)
	})

	s.Run("rotation invalidates the previous token", func() {
		first, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{})
		s.Require().NoError(err)
		second, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{TTL: time.Hour})
		s.Require().NoError(err)
		s.NotEqual(first.Secret, second.Secret)

		_, err = s.registry.Resolve(s.ctx, models.MethodQRCode, first.Secret)
		s.ErrorIs(err, sentinel.ErrNotFound)

		id, err := s.registry.Resolve(s.ctx, models.MethodQRCode, second.Secret)
		s.Require().NoError(err)
		s.Equal(s.profile.ID, id)
		s.Contains(s.publisher.actions(), audit.EventMethodRotated)
	})

	s.Run("rotation keeps earlier tokens recognizable as retired", func() {
		first, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{})
		s.Require().NoError(err)
		second, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{})
		s.Require().NoError(err)

		stored, err := s.store.Get(s.ctx, s.profile.ID)
		s.Require().NoError(err)
		m, _ := stored.Method(models.MethodQRCode)

		s.False(s.registry.Compare(models.MethodQRCode, m, first.Secret))
		s.True(s.registry.IsRetired(models.MethodQRCode, m, first.Secret))
		s.False(s.registry.IsRetired(models.MethodQRCode, m, second.Secret))
		s.False(s.registry.IsRetired(models.MethodQRCode, m, "never-issued"))
		s.False(s.registry.IsRetired(models.MethodQRCode, m, ""))
		s.False(s.registry.IsRetired(models.MethodNFC, m, first.Secret))
	})
}

func (s *RegistrySuite) TestRegisterOtherKinds() {
	s.Run("nfc tag ids are normalized", func() {
		_, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, NFCParams{TagID: "04:a2:3b:1c"})
		s.Require().NoError(err)

		id, err := s.registry.Resolve(s.ctx, models.MethodNFC, "04A23B1C")
		s.Require().NoError(err)
		s.Equal(s.profile.ID, id)
	})

	s.Run("national id is bcrypt hashed", func() {
		_, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, NationalIDParams{Number: "AB-123 456"})
		s.Require().NoError(err)
		stored, _ := s.store.Get(s.ctx, s.profile.ID)
		m, _ := stored.Method(models.MethodNationalID)
		s.True(strings.HasPrefix(m.(models.NationalIDMethod).NumberHash, "$2"))
	})

	s.Run("otp returns a fixed-length numeric code", func() {
		h, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, OTPFallbackParams{GuardianPhones: []string{"+15550001"}})
		s.Require().NoError(err)
		s.Len(h.Secret, 6)
		s.Equal(s.now.Add(10*time.Minute), *h.ExpiresAt)
	})

	s.Run("validation failures", func() {
		cases := []Params{
			NFCParams{},
			BiometricParams{Modality: "iris", Template: "t"},
			BiometricParams{Modality: models.ModalityFace},
			NationalIDParams{Number: " "},
			OTPFallbackParams{},
		}
		for _, p := range cases {
			_, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, p)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "%T", p)
		}
	})

	s.Run("unknown profile", func() {
		_, err := s.registry.RegisterOrRotate(s.ctx, models.NewProfileID(), QRCodeParams{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrySuite) TestRegisterDigestConflict() {
	other, err := models.NewProfile(models.PatientID(uuid.New()), models.PatientRecord{Name: "Bo"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, other))

	_, err = s.registry.RegisterOrRotate(s.ctx, s.profile.ID, NFCParams{TagID: "TAG-1"})
	s.Require().NoError(err)
	_, err = s.registry.RegisterOrRotate(s.ctx, other.ID, NFCParams{TagID: "TAG-1"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RegistrySuite) TestBuildIsDeterministicWithFixedRandomness() {
	seed := bytes.Repeat([]byte{7}, 64)
	r1, err := New(s.store, WithRandom(bytes.NewReader(seed)))
	s.Require().NoError(err)
	r2, err := New(s.store, WithRandom(bytes.NewReader(seed)))
	s.Require().NoError(err)

	h1, err := r1.Build(s.profile.ID, QRCodeParams{}, s.now)
	s.Require().NoError(err)
	h2, err := r2.Build(s.profile.ID, QRCodeParams{}, s.now)
	s.Require().NoError(err)
	s.Equal(h1.Secret, h2.Secret)

	h3, err := r1.Build(models.NewProfileID(), QRCodeParams{}, s.now)
	s.Require().NoError(err)
	s.NotEqual(h1.Secret, h3.Secret)
}

// =============================================================================
// Resolution and enablement
// =============================================================================

func (s *RegistrySuite) TestResolve() {
	h, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, QRCodeParams{})
	s.Require().NoError(err)

	s.Run("unknown token", func() {
		_, err := s.registry.Resolve(s.ctx, models.MethodQRCode, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("kind without lookup", func() {
		_, err := s.registry.Resolve(s.ctx, models.MethodBiometric, "x")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("expired token", func() {
		_, err := s.registry.Resolve(s.at(s.now.Add(25*time.Hour)), models.MethodQRCode, h.Secret)
		s.ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("disabled method", func() {
		s.Require().NoError(s.registry.SetEnabled(s.ctx, s.profile.ID, models.MethodQRCode, false))
		_, err := s.registry.Resolve(s.ctx, models.MethodQRCode, h.Secret)
		s.ErrorIs(err, sentinel.ErrDisabled)
		s.Contains(s.publisher.actions(), audit.EventMethodDisabled)

		s.Require().NoError(s.registry.SetEnabled(s.ctx, s.profile.ID, models.MethodQRCode, true))
		_, err = s.registry.Resolve(s.ctx, models.MethodQRCode, h.Secret)
		s.NoError(err)
	})

	s.Run("inactive profile", func() {
		p, _ := s.store.Get(s.ctx, s.profile.ID)
		p.Deactivate(s.now)
		s.Require().NoError(s.store.Save(s.ctx, p))
		_, err := s.registry.Resolve(s.ctx, models.MethodQRCode, h.Secret)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistrySuite) TestSetEnabledMissingMethod() {
	err := s.registry.SetEnabled(s.ctx, s.profile.ID, models.MethodNFC, false)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Comparison and use
// =============================================================================

func (s *RegistrySuite) TestCompare() {
	qr, err := s.registry.Build(s.profile.ID, QRCodeParams{}, s.now)
	s.Require().NoError(err)
	nid, err := s.registry.Build(s.profile.ID, NationalIDParams{Number: "X123"}, s.now)
	s.Require().NoError(err)
	bio, err := s.registry.Build(s.profile.ID, BiometricParams{Modality: models.ModalityFingerprint, Template: "tmpl"}, s.now)
	s.Require().NoError(err)
	otp, err := s.registry.Build(s.profile.ID, OTPFallbackParams{GuardianPhones: []string{"+1"}}, s.now)
	s.Require().NoError(err)

	s.True(s.registry.Compare(models.MethodQRCode, qr.Method, qr.Secret))
	s.False(s.registry.Compare(models.MethodQRCode, qr.Method, "wrong"))
	s.True(s.registry.Compare(models.MethodNationalID, nid.Method, "x-123"))
	s.False(s.registry.Compare(models.MethodNationalID, nid.Method, "X124"))
	s.True(s.registry.Compare(models.MethodBiometric, bio.Method, "tmpl"))
	s.True(s.registry.Compare(models.MethodOTP, otp.Method, otp.Secret))
	s.False(s.registry.Compare(models.MethodOTP, otp.Method, ""))

	s.Run("missing or mismatched methods never match", func() {
		s.False(s.registry.Compare(models.MethodQRCode, nil, ""))
		s.False(s.registry.Compare(models.MethodNationalID, nil, "X123"))
		s.False(s.registry.Compare(models.MethodNFC, qr.Method, qr.Secret))
	})
}

func (s *RegistrySuite) TestMarkUsedConsumesOTP() {
	h, err := s.registry.RegisterOrRotate(s.ctx, s.profile.ID, OTPFallbackParams{GuardianPhones: []string{"+1"}})
	s.Require().NoError(err)

	p, err := s.store.Get(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.registry.MarkUsed(s.ctx, p, models.MethodOTP))

	stored, _ := s.store.Get(s.ctx, s.profile.ID)
	m, _ := stored.Method(models.MethodOTP)
	s.Equal(1, m.State().UseCount)
	s.True(models.IsExpiredAt(m, s.now))
	s.True(s.registry.Compare(models.MethodOTP, m, h.Secret))
}
