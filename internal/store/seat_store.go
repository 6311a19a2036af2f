package store

import (
	"context"
	"time"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// SeatStore is the persistence contract the booking engine runs
// against.  The single correctness-critical operation is
// ConditionalWrite: it must compare the stored version and apply the
// new state as one atomic step, with the result visible to all
// subsequent reads before the call returns.  Everything else is
// plain reading.
//
// Two implementations exist: MySQLSeatStore backed by a conditional
// UPDATE, and MemorySeatStore for single-process deployments and
// tests.
type SeatStore interface {
	// Read returns the current seat record.  Returns ErrSeatNotFound
	// for unknown IDs.
	Read(ctx context.Context, seatID uint64) (*model.Seat, error)

	// ConditionalWrite transitions the seat to newStatus with the given
	// holder and hold expiry, but only if the stored version still
	// equals expectedVersion.  On success the version increments by
	// exactly one.  Returns ErrVersionConflict when the version moved,
	// ErrSeatNotFound when the seat does not exist.
	ConditionalWrite(ctx context.Context, seatID, expectedVersion uint64, newStatus string, holder *uint64, holdExpiresAt *time.Time) error

	// ListAvailable returns the IDs of all AVAILABLE seats in ascending
	// order.  Used by the FCFS fast path and the admission check.
	ListAvailable(ctx context.Context) ([]uint64, error)

	// ExpiredHolds returns every HELD seat whose hold expiry is at or
	// before now.  The reaper conditionally reverts each one.
	ExpiredHolds(ctx context.Context, now time.Time) ([]*model.Seat, error)

	// CreateBulk inserts seats at venue setup.  Seats start AVAILABLE
	// with version taken from the record (normally 0).
	CreateBulk(ctx context.Context, seats []model.Seat) error
}

// BookingStore persists booking records.  A booking is written only
// after every seat in the set committed; the engine never creates a
// partial booking.
type BookingStore interface {
	// Create inserts a booking and its seat rows.  Implementations
	// must make the insert atomic: either the booking with all its
	// seats exists afterwards, or nothing does.
	Create(ctx context.Context, b *model.Booking) error

	// Cancel transitions a CONFIRMED booking to CANCELLED.  Returns
	// ErrBookingNotFound for unknown IDs.
	Cancel(ctx context.Context, id string) error

	// GetByID returns a booking with its seat IDs populated.
	GetByID(ctx context.Context, id string) (*model.Booking, error)
}
