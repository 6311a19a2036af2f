package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

func TestSweepRevertsExpiredHolds(t *testing.T) {
	seats := store.NewMemorySeatStore()
	ctx := context.Background()
	require.NoError(t, seats.CreateBulk(ctx, []model.Seat{
		{ID: 1, Status: model.SeatAvailable},
		{ID: 2, Status: model.SeatAvailable},
		{ID: 3, Status: model.SeatAvailable},
	}))

	holder := uint64(7)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	// Seat 1: hold long expired.  Seat 2: hold still live.  Seat 3: booked.
	require.NoError(t, seats.ConditionalWrite(ctx, 1, 0, model.SeatHeld, &holder, &past))
	require.NoError(t, seats.ConditionalWrite(ctx, 2, 0, model.SeatHeld, &holder, &future))
	require.NoError(t, seats.ConditionalWrite(ctx, 3, 0, model.SeatBooked, &holder, nil))

	r := NewReaper(seats, lock.NewMemoryCoordinator(), time.Second)
	reverted, _ := r.Sweep(ctx)
	assert.Equal(t, 1, reverted)

	seat, err := seats.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)
	assert.Nil(t, seat.HolderID)
	assert.Nil(t, seat.HoldExpiresAt)
	assert.Equal(t, uint64(2), seat.Version, "a revert is a normal guarded transition")

	seat, err = seats.Read(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seat.Status, "live holds are untouched")

	seat, err = seats.Read(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, seat.Status, "booked seats are never swept")
}

func TestSweepIsIdempotent(t *testing.T) {
	seats := store.NewMemorySeatStore()
	ctx := context.Background()
	require.NoError(t, seats.CreateBulk(ctx, []model.Seat{{ID: 1, Status: model.SeatAvailable}}))

	holder := uint64(7)
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, seats.ConditionalWrite(ctx, 1, 0, model.SeatHeld, &holder, &past))

	r := NewReaper(seats, lock.NewMemoryCoordinator(), time.Second)
	reverted, _ := r.Sweep(ctx)
	assert.Equal(t, 1, reverted)
	reverted, _ = r.Sweep(ctx)
	assert.Equal(t, 0, reverted, "a second pass finds nothing to revert")
}

func TestSweepSkipsHoldsConvertedUnderIt(t *testing.T) {
	seats := store.NewMemorySeatStore()
	ctx := context.Background()
	require.NoError(t, seats.CreateBulk(ctx, []model.Seat{{ID: 1, Status: model.SeatAvailable}}))

	holder := uint64(7)
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, seats.ConditionalWrite(ctx, 1, 0, model.SeatHeld, &holder, &past))

	// A commit converts the hold between the reaper's scan and its
	// revert write.  The scan version is stale, so the revert must be
	// rejected instead of clobbering the booking.
	cs := &convertOnScan{MemorySeatStore: seats, seatID: 1, holder: holder}
	r := NewReaper(cs, lock.NewMemoryCoordinator(), time.Second)
	reverted, _ := r.Sweep(ctx)
	assert.Equal(t, 0, reverted)

	seat, err := seats.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatBooked, seat.Status, "the racing booking survives the sweep")
}

// convertOnScan books the seat right after the expired-hold scan
// returns it, simulating a commit racing the reaper.
type convertOnScan struct {
	*store.MemorySeatStore
	seatID uint64
	holder uint64
	fired  bool
}

func (c *convertOnScan) ExpiredHolds(ctx context.Context, now time.Time) ([]*model.Seat, error) {
	expired, err := c.MemorySeatStore.ExpiredHolds(ctx, now)
	if err != nil || c.fired {
		return expired, err
	}
	c.fired = true
	for _, seat := range expired {
		if seat.ID == c.seatID {
			if err := c.MemorySeatStore.ConditionalWrite(ctx, seat.ID, seat.Version, model.SeatBooked, &c.holder, nil); err != nil {
				return nil, err
			}
		}
	}
	return expired, nil
}

func TestSweepDropsExpiredLocks(t *testing.T) {
	seats := store.NewMemorySeatStore()
	locks := lock.NewMemoryCoordinator()
	ctx := context.Background()

	_, err := locks.Acquire(ctx, lock.SeatKey(1), time.Millisecond)
	require.NoError(t, err)
	_, err = locks.Acquire(ctx, lock.SeatKey(2), time.Hour)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	r := NewReaper(seats, locks, time.Second)
	_, dropped := r.Sweep(ctx)
	assert.Equal(t, 1, dropped)

	held, err := locks.IsLocked(ctx, lock.SeatKey(2))
	require.NoError(t, err)
	assert.True(t, held)
}
