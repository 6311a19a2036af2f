// Package lock provides expiring mutual exclusion over a shared key
// space. Acquire is fail-fast: it never blocks waiting for a holder,
// so callers decide whether to retry, queue or abort. Every lock
// carries a TTL; a crashed holder's lock self-expires, which is the
// liveness guarantee that substitutes for crash recovery.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLockHeld is returned by Acquire when a live lock already exists
// for the key. Transient: safe to retry with backoff.
var ErrLockHeld = errors.New("lock held")

// ErrNotLockOwner is returned by Release when the presented owner
// token does not match the current lock. A delayed release must
// never destroy a newer holder's lock.
var ErrNotLockOwner = errors.New("not lock owner")

// Coordinator is the mutual exclusion contract used by the booking
// engine.  Implementations must make Acquire a single atomic
// set-if-absent-with-expiry and Release a single atomic
// compare-and-delete; a read-then-write on either path is a race.
type Coordinator interface {
	// Acquire claims the key for ttl and returns an opaque owner
	// token.  Returns ErrLockHeld when a live lock exists.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release deletes the lock only if owner matches the token that
	// acquired it.  Returns ErrNotLockOwner otherwise.
	Release(ctx context.Context, key, owner string) error

	// IsLocked reports whether a live lock exists for the key.
	IsLocked(ctx context.Context, key string) (bool, error)

	// TTLRemaining returns the time until the lock expires, or nil
	// when no live lock exists.  Observability only.
	TTLRemaining(ctx context.Context, key string) (*time.Duration, error)
}

// Sweeper is an optional extension for coordinators whose backing
// store does not expire entries natively.  The reaper calls
// RemoveExpired as a defensive backstop; coordinators with native
// TTLs (Redis) simply do not implement it.
type Sweeper interface {
	// RemoveExpired drops every lock whose expiry is at or before now
	// and returns how many were removed.
	RemoveExpired(now time.Time) int
}

// SeatKey builds the lock key for a seat.  All callers must go
// through this so orchestrators and the FCFS allocator contend on
// the same key space.
func SeatKey(seatID uint64) string {
	return fmt.Sprintf("seat:%d", seatID)
}
