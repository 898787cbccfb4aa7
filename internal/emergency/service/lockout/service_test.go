package lockout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"lifeline/internal/emergency/models"
	"lifeline/internal/emergency/ports/mocks"
	"lifeline/internal/emergency/store/lockcache"
	"lifeline/pkg/requestcontext"
)

type LockoutSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	source  *mocks.MockAttemptStore
	cache   *lockcache.InMemoryCache
	service *Service
	profile models.ProfileID
	now     time.Time
}

func TestLockoutSuite(t *testing.T) {
	suite.Run(t, new(LockoutSuite))
}

func (s *LockoutSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockAttemptStore(s.ctrl)
	s.cache = lockcache.New()
	var err error
	s.service, err = New(s.source, WithCache(s.cache))
	s.Require().NoError(err)
	s.profile = models.NewProfileID()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *LockoutSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *LockoutSuite) TestNew() {
	_, err := New(nil)
	s.Error(err)
}

func (s *LockoutSuite) TestIsLocked() {
	s.Run("no lock recorded", func() {
		s.source.EXPECT().LastLock(gomock.Any(), s.profile).Return(nil, nil)
		state, err := s.service.IsLocked(s.at(s.now), s.profile)
		s.Require().NoError(err)
		s.False(state.IsLocked)
	})

	s.Run("lock from the audit log is cached", func() {
		until := s.now.Add(30 * time.Minute)
		s.source.EXPECT().LastLock(gomock.Any(), s.profile).Return(&until, nil).Times(1)

		state, err := s.service.IsLocked(s.at(s.now), s.profile)
		s.Require().NoError(err)
		s.True(state.IsLocked)
		s.Equal(until, state.LockedUntil)

		// Second read is served by the cache.
		state, err = s.service.IsLocked(s.at(s.now.Add(time.Minute)), s.profile)
		s.Require().NoError(err)
		s.True(state.IsLocked)
	})

	s.Run("expired lock reads as unlocked and clears the cache", func() {
		until := s.now.Add(30 * time.Minute)
		s.source.EXPECT().LastLock(gomock.Any(), s.profile).Return(&until, nil)

		state, err := s.service.IsLocked(s.at(until), s.profile)
		s.Require().NoError(err)
		s.False(state.IsLocked)

		_, ok, err := s.cache.Get(context.Background(), s.profile)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("audit log failure is returned", func() {
		boom := errors.New("db down")
		s.source.EXPECT().LastLock(gomock.Any(), s.profile).Return(nil, boom)
		_, err := s.service.IsLocked(s.at(s.now), s.profile)
		s.ErrorIs(err, boom)
	})
}

func (s *LockoutSuite) TestLockPopulatesCache() {
	until := s.now.Add(time.Hour)
	s.service.Lock(s.at(s.now), s.profile, until)

	state, err := s.service.IsLocked(s.at(s.now.Add(59*time.Minute)), s.profile)
	s.Require().NoError(err)
	s.True(state.IsLocked)
}

func (s *LockoutSuite) TestCacheOutageFallsBackToAuditLog() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	svc, err := New(s.source, WithCache(lockcache.NewRedis(client, 0)))
	s.Require().NoError(err)
	mr.Close()

	until := s.now.Add(time.Hour)
	s.source.EXPECT().LastLock(gomock.Any(), s.profile).Return(&until, nil)
	state, err := svc.IsLocked(s.at(s.now), s.profile)
	s.Require().NoError(err)
	s.True(state.IsLocked)
}

func (s *LockoutSuite) TestFailureWindowStart() {
	window := 15 * time.Minute

	s.Run("no previous lock", func() {
		s.Equal(s.now.Add(-window), FailureWindowStart(s.now, window, nil))
	})

	s.Run("old lock is ignored", func() {
		old := s.now.Add(-time.Hour)
		s.Equal(s.now.Add(-window), FailureWindowStart(s.now, window, &old))
	})

	s.Run("recent lock end starts the window", func() {
		recent := s.now.Add(-5 * time.Minute)
		s.Equal(recent, FailureWindowStart(s.now, window, &recent))
	})
}
