package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// MemorySeatStore is a mutex-guarded in-memory SeatStore.  It serves
// single-process deployments and the engine's concurrency tests.  The
// version compare and the state write happen under one lock
// acquisition, which gives the same atomicity the MySQL store gets
// from its guarded UPDATE.
type MemorySeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
}

// NewMemorySeatStore returns an empty MemorySeatStore.
func NewMemorySeatStore() *MemorySeatStore {
	return &MemorySeatStore{seats: make(map[uint64]*model.Seat)}
}

// Read returns a copy of the seat record.  Copies keep callers from
// mutating shared state behind the lock's back.
func (s *MemorySeatStore) Read(ctx context.Context, seatID uint64) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return nil, ErrSeatNotFound
	}
	cp := *seat
	return &cp, nil
}

// ConditionalWrite applies the transition if and only if the stored
// version matches expectedVersion, incrementing it by one.
func (s *MemorySeatStore) ConditionalWrite(ctx context.Context, seatID, expectedVersion uint64, newStatus string, holder *uint64, holdExpiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return ErrSeatNotFound
	}
	if seat.Version != expectedVersion {
		return ErrVersionConflict
	}
	seat.Status = newStatus
	seat.HolderID = holder
	seat.HoldExpiresAt = holdExpiresAt
	seat.Version++
	seat.UpdatedAt = time.Now().UTC()
	return nil
}

// ListAvailable returns AVAILABLE seat IDs in ascending order.
func (s *MemorySeatStore) ListAvailable(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0)
	for id, seat := range s.seats {
		if seat.Status == model.SeatAvailable {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ExpiredHolds returns copies of every HELD seat past its expiry.
func (s *MemorySeatStore) ExpiredHolds(ctx context.Context, now time.Time) ([]*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Seat
	for _, seat := range s.seats {
		if seat.HoldExpired(now) {
			cp := *seat
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateBulk inserts the given seats.  Existing IDs are overwritten;
// setup runs once so collisions only occur in tests reseeding a pool.
func (s *MemorySeatStore) CreateBulk(ctx context.Context, seats []model.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range seats {
		cp := seats[i]
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		s.seats[cp.ID] = &cp
	}
	return nil
}
