package attempt

import (
	"context"
	"sort"
	"sync"
	"time"

	"lifeline/internal/emergency/models"
)

// InMemoryStore is an append-only arena of attempts with a per-profile
// index sorted by (timestamp, sequence). Counts are binary-searched ranges.
type InMemoryStore struct {
	mu      sync.RWMutex
	arena   []models.AccessAttempt
	index   map[models.ProfileID][]int
	locks   map[models.ProfileID]time.Time
	nextSeq int64
}

func New() *InMemoryStore {
	return &InMemoryStore{
		index: make(map[models.ProfileID][]int),
		locks: make(map[models.ProfileID]time.Time),
	}
}

func (s *InMemoryStore) Append(_ context.Context, a *models.AccessAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	a.Sequence = s.nextSeq
	stored := *a
	stored.DisclosedFields = append([]string(nil), a.DisclosedFields...)

	pos := len(s.arena)
	s.arena = append(s.arena, stored)

	idx := s.index[a.ProfileID]
	at := sort.Search(len(idx), func(i int) bool {
		return stored.Before(s.arena[idx[i]])
	})
	idx = append(idx, 0)
	copy(idx[at+1:], idx[at:])
	idx[at] = pos
	s.index[a.ProfileID] = idx

	if a.LockedUntil != nil && a.LockedUntil.After(s.locks[a.ProfileID]) {
		s.locks[a.ProfileID] = *a.LockedUntil
	}
	return nil
}

func (s *InMemoryStore) CountBetween(_ context.Context, profileID models.ProfileID, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := s.rangeLocked(profileID, from, to)
	return hi - lo, nil
}

func (s *InMemoryStore) CountFailuresBetween(_ context.Context, profileID models.ProfileID, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[profileID]
	lo, hi := s.rangeLocked(profileID, from, to)
	n := 0
	for _, pos := range idx[lo:hi] {
		if s.arena[pos].Reason.CountsAsFailure() {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) LastLock(_ context.Context, profileID models.ProfileID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.locks[profileID]
	if !ok {
		return nil, nil
	}
	return &until, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, profileID models.ProfileID, offset, limit int) ([]models.AccessAttempt, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index[profileID]
	total := len(idx)
	if offset >= total || limit <= 0 {
		return []models.AccessAttempt{}, total, nil
	}
	end := min(offset+limit, total)

	out := make([]models.AccessAttempt, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, s.arena[idx[total-1-i]])
	}
	return out, total, nil
}

// rangeLocked returns the index bounds [lo, hi) covering from <= ts <= to.
func (s *InMemoryStore) rangeLocked(profileID models.ProfileID, from, to time.Time) (int, int) {
	idx := s.index[profileID]
	lo := sort.Search(len(idx), func(i int) bool {
		return !s.arena[idx[i]].Timestamp().Before(from)
	})
	hi := sort.Search(len(idx), func(i int) bool {
		return s.arena[idx[i]].Timestamp().After(to)
	})
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
