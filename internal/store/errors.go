// Package store defines error types shared by all seat store
// implementations. These sentinel values let higher layers such as
// the orchestrator distinguish between failure scenarios: a
// version conflict means another writer committed between the
// caller's read and write and the attempt must be compensated,
// while a missing seat indicates a malformed request.
package store

import "errors"

// ErrSeatNotFound is returned when the requested seat does not
// exist in the venue's pool. Callers should treat this as a
// validation failure rather than a transient condition.
var ErrSeatNotFound = errors.New("seat not found")

// ErrVersionConflict is returned when a conditional write presents
// a version that no longer matches the stored one. The write has
// had no effect; the caller must re-read before retrying.
var ErrVersionConflict = errors.New("version conflict")

// ErrBookingNotFound is returned when a booking lookup or cancel
// references an unknown booking identifier.
var ErrBookingNotFound = errors.New("booking not found")
