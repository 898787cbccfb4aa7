// Package lockcache caches derived lock expiries so hot profiles skip the
// audit-log lookup. The audit log remains authoritative; a miss is never wrong.
package lockcache

import (
	"context"
	"sync"
	"time"

	"lifeline/internal/emergency/models"
)

type InMemoryCache struct {
	mu    sync.RWMutex
	locks map[models.ProfileID]time.Time
}

func New() *InMemoryCache {
	return &InMemoryCache{locks: make(map[models.ProfileID]time.Time)}
}

func (c *InMemoryCache) Get(_ context.Context, profileID models.ProfileID) (time.Time, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	until, ok := c.locks[profileID]
	return until, ok, nil
}

func (c *InMemoryCache) Set(_ context.Context, profileID models.ProfileID, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locks[profileID] = until
	return nil
}

func (c *InMemoryCache) Clear(_ context.Context, profileID models.ProfileID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, profileID)
	return nil
}
