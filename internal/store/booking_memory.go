package store

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// MemoryBookingStore keeps bookings in a mutex-guarded map.  Paired
// with MemorySeatStore for single-process deployments and tests.
type MemoryBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

// NewMemoryBookingStore returns an empty MemoryBookingStore.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{bookings: make(map[string]*model.Booking)}
}

// Create stores a copy of the booking.
func (r *MemoryBookingStore) Create(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	cp.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.bookings[cp.ID] = &cp
	b.CreatedAt = cp.CreatedAt
	return nil
}

// Cancel marks the booking CANCELLED.
func (r *MemoryBookingStore) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = model.BookingCancelled
	return nil
}

// GetByID returns a copy of the booking.
func (r *MemoryBookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	cp.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	return &cp, nil
}

// Count reports how many bookings exist.  Used by tests asserting
// that failed attempts never leave a booking behind.
func (r *MemoryBookingStore) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}
