package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// MemoryCoordinator implements Coordinator with a mutex-guarded map.
// It serves single-process deployments and tests.  Expired entries
// are treated as absent on every read, so correctness never depends
// on a background sweep; RemoveExpired just reclaims the memory.
type MemoryCoordinator struct {
	mu    sync.Mutex
	locks map[string]model.Lock
	now   func() time.Time
}

// NewMemoryCoordinator returns an empty MemoryCoordinator.
func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		locks: make(map[string]model.Lock),
		now:   time.Now,
	}
}

// Acquire claims the key unless a live (non-expired) lock exists.
// The check and the write both happen under the mutex.
func (c *MemoryCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if l, ok := c.locks[key]; ok && !l.Expired(now) {
		return "", ErrLockHeld
	}
	owner := uuid.NewString()
	c.locks[key] = model.Lock{Key: key, Owner: owner, ExpiresAt: now.Add(ttl)}
	return owner, nil
}

// Release deletes the lock only when the live entry carries the same
// owner token.  Releasing an expired or replaced lock reports
// ErrNotLockOwner, mirroring the Redis script.
func (c *MemoryCoordinator) Release(ctx context.Context, key, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok || l.Expired(c.now()) || l.Owner != owner {
		return ErrNotLockOwner
	}
	delete(c.locks, key)
	return nil
}

// IsLocked reports whether a live lock exists for the key.
func (c *MemoryCoordinator) IsLocked(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	return ok && !l.Expired(c.now()), nil
}

// TTLRemaining returns the time left on a live lock, nil otherwise.
func (c *MemoryCoordinator) TTLRemaining(ctx context.Context, key string) (*time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		return nil, nil
	}
	d := l.ExpiresAt.Sub(c.now())
	if d <= 0 {
		return nil, nil
	}
	return &d, nil
}

// RemoveExpired drops entries whose expiry is at or before now and
// returns the count.  Called by the reaper as a backstop; reads
// already ignore expired entries.
func (c *MemoryCoordinator) RemoveExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, l := range c.locks {
		if !l.ExpiresAt.After(now) {
			delete(c.locks, key)
			removed++
		}
	}
	return removed
}
