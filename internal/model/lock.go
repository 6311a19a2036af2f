package model

import "time"

// Lock represents an expiring exclusive claim over a logical resource
// key.  The owner token is regenerated on every acquire attempt and is
// deliberately unrelated to the requester's identity: a requester may
// run several attempts concurrently and a stale attempt must not be
// able to release a newer attempt's lock.
//
// Fields:
//  Key       – logical resource name, e.g. "seat:42".
//  Owner     – opaque token that must be presented to release the lock.
//  ExpiresAt – absolute expiry; there is no permanent lock.
type Lock struct {
	Key       string
	Owner     string
	ExpiresAt time.Time
}

// Expired reports whether the lock's TTL has elapsed at the supplied
// instant.
func (l *Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
