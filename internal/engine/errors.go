// Package engine contains the seat reservation concurrency core: the
// multi-seat booking orchestrator, the FCFS single-seat allocator,
// the queue admission path and the expiry reaper. This file defines
// the outcome taxonomy. These sentinel values let the transport layer
// distinguish retryable contention from terminal failures without
// parsing messages.
package engine

import (
	"errors"
	"fmt"
)

// ErrValidation is returned for malformed or missing input: an empty
// seat list, an unknown requester, a nonexistent seat. Never retried
// automatically.
var ErrValidation = errors.New("validation failed")

// ErrSeatLocked is returned when a lock for one of the requested
// seats is held by another attempt. Transient contention; safe to
// retry with backoff or fall back to the wait queue.
var ErrSeatLocked = errors.New("seat locked")

// ErrSeatsNotAvailable is returned when a requested seat is held or
// booked by another requester. Terminal for this attempt; not
// retryable without picking different seats.
var ErrSeatsNotAvailable = errors.New("seats not available")

// ErrOptimisticConflict is returned when a conditional write failed
// despite the attempt holding the seat's lock: either a path bypassed
// the lock or the lock expired at the edge of its TTL. Retryable.
var ErrOptimisticConflict = errors.New("optimistic conflict")

// ErrSoldOut is returned by the FCFS allocator when no seat is
// available. Terminal.
var ErrSoldOut = errors.New("sold out")

// ErrDuplicate is returned by the FCFS allocator when the requester
// already holds an allocation inside the dedup window. Terminal,
// informational.
var ErrDuplicate = errors.New("duplicate request")

// ErrContention is returned when the FCFS allocator exhausted its
// bounded retries. The caller may retry after a short delay.
var ErrContention = errors.New("contention")

// SeatFailure names one seat that caused an attempt to fail and why,
// so the calling layer can offer the requester an alternative
// selection instead of a generic failure.
type SeatFailure struct {
	SeatID uint64 `json:"seat_id"`
	Reason string `json:"reason"`
}

// AttemptError is the consolidated error returned from a booking or
// reserve attempt.  It wraps one of the sentinel errors above and
// carries the per-seat failures.  By the time the caller sees it, all
// partially-acquired locks have been released and all
// partially-committed seats compensated; no caller-side cleanup is
// ever needed.
type AttemptError struct {
	Err         error
	FailedSeats []SeatFailure
}

func (e *AttemptError) Error() string {
	if len(e.FailedSeats) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (%d seat(s) failed)", e.Err, len(e.FailedSeats))
}

// Unwrap exposes the sentinel for errors.Is checks.
func (e *AttemptError) Unwrap() error { return e.Err }

func attemptErr(sentinel error, failed ...SeatFailure) error {
	return &AttemptError{Err: sentinel, FailedSeats: failed}
}

// FailedSeatsOf extracts the per-seat failures from an attempt error,
// or nil when err carries none.
func FailedSeatsOf(err error) []SeatFailure {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.FailedSeats
	}
	return nil
}
