// Package locker serializes verification work per profile.
package locker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"lifeline/internal/emergency/models"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker holds one weight-1 semaphore per profile in use. Entries are
// reference counted and dropped when the last holder or waiter leaves.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[models.ProfileID]*entry
}

func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[models.ProfileID]*entry)}
}

func (l *KeyedLocker) WithProfileLock(ctx context.Context, profileID models.ProfileID, fn func(ctx context.Context) error) error {
	e := l.acquireEntry(profileID)
	defer l.releaseEntry(profileID)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	return fn(ctx)
}

func (l *KeyedLocker) acquireEntry(profileID models.ProfileID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[profileID]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.locks[profileID] = e
	}
	e.refs++
	return e
}

func (l *KeyedLocker) releaseEntry(profileID models.ProfileID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[profileID]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, profileID)
	}
}

// Len reports how many profiles currently have holders or waiters.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
