package model

import "time"

// Seat status values.  A seat only ever moves between these three
// states for the lifetime of the venue.  BOOKED is terminal except
// for an explicit cancellation; HELD reverts to AVAILABLE once the
// hold expires.
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatBooked    = "BOOKED"
)

// Seat describes one reservable seat in the venue's fixed pool.
// The version counter is bumped on every committed state change and
// is the basis for all conditional writes: a writer must present the
// version it read, or the write is rejected.
//
// Fields:
//  ID            – stable identifier, unique within the venue.
//  Status        – AVAILABLE, HELD or BOOKED.
//  Version       – monotonically increasing change counter.
//  HolderID      – requester currently holding or owning the seat; nil when available.
//  HoldExpiresAt – when a HELD seat reverts to AVAILABLE; nil unless HELD.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
	ID            uint64     // seats.id
	Status        string     // seats.status
	Version       uint64     // seats.version
	HolderID      *uint64    // seats.holder_id (nullable)
	HoldExpiresAt *time.Time // seats.hold_expires_at (nullable)
	CreatedAt     time.Time  // seats.created_at
	UpdatedAt     time.Time  // seats.updated_at
}

// HoldExpired reports whether the seat is a hold past its expiry at
// the supplied instant.  Seats in any other state never expire.
func (s *Seat) HoldExpired(now time.Time) bool {
	return s.Status == SeatHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}
