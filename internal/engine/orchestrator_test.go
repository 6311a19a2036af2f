package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/queue"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

// fakePublisher records published events so tests can assert on the
// event flow without a broker.
type fakePublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	admitted  []queue.QueueAdmittedEvent
}

func (p *fakePublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *fakePublisher) PublishQueueAdmitted(ctx context.Context, ev queue.QueueAdmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admitted = append(p.admitted, ev)
	return nil
}

type fixture struct {
	seats     *store.MemorySeatStore
	bookings  *store.MemoryBookingStore
	locks     *lock.MemoryCoordinator
	publisher *fakePublisher
	orch      *Orchestrator
}

func newFixture(t *testing.T, seatCount int) *fixture {
	t.Helper()
	f := &fixture{
		seats:     store.NewMemorySeatStore(),
		bookings:  store.NewMemoryBookingStore(),
		locks:     lock.NewMemoryCoordinator(),
		publisher: &fakePublisher{},
	}
	seed := make([]model.Seat, 0, seatCount)
	for i := 1; i <= seatCount; i++ {
		seed = append(seed, model.Seat{ID: uint64(i), Status: model.SeatAvailable})
	}
	require.NoError(t, f.seats.CreateBulk(context.Background(), seed))
	f.orch = NewOrchestrator(f.seats, f.bookings, f.locks, OrchestratorConfig{
		SeatPriceCents: 1500,
		Publisher:      f.publisher,
	})
	return f
}

func (f *fixture) seatStatus(t *testing.T, id uint64) string {
	t.Helper()
	seat, err := f.seats.Read(context.Background(), id)
	require.NoError(t, err)
	return seat.Status
}

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	res, err := f.orch.Book(ctx, BookingRequest{
		SeatIDs:       []uint64{3, 1, 1, 2}, // duplicates and order are normalized
		RequesterID:   7,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, res.SeatIDs)
	assert.Equal(t, uint32(4500), res.TotalAmountCents)
	assert.NotEmpty(t, res.BookingID)

	for _, id := range []uint64{1, 2, 3} {
		assert.Equal(t, model.SeatBooked, f.seatStatus(t, id))
	}
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 4))

	booking, err := f.bookings.GetByID(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, uint64(7), booking.RequesterID)

	require.Len(t, f.publisher.confirmed, 1)
	assert.Equal(t, res.BookingID, f.publisher.confirmed[0].BookingID)

	// All seat locks are released after the attempt.
	for _, id := range []uint64{1, 2, 3} {
		held, err := f.locks.IsLocked(ctx, lock.SeatKey(id))
		require.NoError(t, err)
		assert.False(t, held)
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.orch.Book(ctx, BookingRequest{SeatIDs: nil, RequesterID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{0}, RequesterID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{1}, RequesterID: 0})
	assert.ErrorIs(t, err, ErrValidation)

	// A nonexistent seat fails validation and reports which seat.
	_, err = f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{1, 99}, RequesterID: 1})
	assert.ErrorIs(t, err, ErrValidation)
	failed := FailedSeatsOf(err)
	require.Len(t, failed, 1)
	assert.Equal(t, uint64(99), failed[0].SeatID)

	assert.Equal(t, 0, f.bookings.Count())
}

func TestBookReportsEveryUnavailableSeat(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	// Another requester already owns seats 3 and 7.
	other := uint64(99)
	require.NoError(t, f.seats.ConditionalWrite(ctx, 3, 0, model.SeatBooked, &other, nil))
	expiry := time.Now().UTC().Add(time.Minute)
	require.NoError(t, f.seats.ConditionalWrite(ctx, 7, 0, model.SeatHeld, &other, &expiry))

	_, err := f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{3, 5, 7}, RequesterID: 1})
	assert.ErrorIs(t, err, ErrSeatsNotAvailable)

	failed := FailedSeatsOf(err)
	require.Len(t, failed, 2, "every conflicting seat is reported, not just the first")
	assert.Equal(t, uint64(3), failed[0].SeatID)
	assert.Equal(t, uint64(7), failed[1].SeatID)

	// The available seat in the request stays untouched.
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 5))
	assert.Equal(t, 0, f.bookings.Count())
}

func TestBookLeavesNoDanglingHold(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	// Seat 7 already belongs to another requester.
	other := uint64(2)
	require.NoError(t, f.seats.ConditionalWrite(ctx, 7, 0, model.SeatBooked, &other, nil))

	_, err := f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{3, 7}, RequesterID: 1})
	assert.ErrorIs(t, err, ErrSeatsNotAvailable)

	failed := FailedSeatsOf(err)
	require.Len(t, failed, 1)
	assert.Equal(t, uint64(7), failed[0].SeatID)
	assert.Equal(t, "not available", failed[0].Reason)

	// Seat 3 must come out of the failed attempt AVAILABLE, not stuck
	// in a hold nobody will release.
	seat, err := f.seats.Read(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)
	assert.Nil(t, seat.HolderID)
	assert.Equal(t, 0, f.bookings.Count())
}

func TestBookRollsBackOnConflict(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	// Bump seat 2's version after the orchestrator would have read it.
	// conflictingSeats wraps the store so the bump happens between the
	// verify read and the commit write of seat 2.
	cs := &conflictingSeats{MemorySeatStore: f.seats, conflictOn: 2}
	orch := NewOrchestrator(cs, f.bookings, f.locks, OrchestratorConfig{SeatPriceCents: 1000})

	_, err := orch.Book(ctx, BookingRequest{SeatIDs: []uint64{1, 2}, RequesterID: 4})
	assert.ErrorIs(t, err, ErrOptimisticConflict)

	// All-or-nothing: seat 1 was committed inside the attempt and must
	// be compensated back to AVAILABLE.
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 1))
	assert.Equal(t, 0, f.bookings.Count(), "a failed attempt never leaves a booking behind")

	held, err := f.locks.IsLocked(ctx, lock.SeatKey(1))
	require.NoError(t, err)
	assert.False(t, held)
}

// conflictingSeats injects a competing write on one seat the first
// time that seat's conditional write is attempted.
type conflictingSeats struct {
	*store.MemorySeatStore
	conflictOn uint64
	fired      bool
}

func (c *conflictingSeats) ConditionalWrite(ctx context.Context, seatID, expectedVersion uint64, newStatus string, holder *uint64, holdExpiresAt *time.Time) error {
	if seatID == c.conflictOn && !c.fired {
		c.fired = true
		// A racing writer takes and releases the seat first, bumping
		// the version past what the caller read.
		competitor := uint64(12345)
		if err := c.MemorySeatStore.ConditionalWrite(ctx, seatID, expectedVersion, newStatus, &competitor, nil); err != nil {
			return err
		}
	}
	return c.MemorySeatStore.ConditionalWrite(ctx, seatID, expectedVersion, newStatus, holder, holdExpiresAt)
}

func TestConcurrentBookingSameSeatsOneWinner(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.orch.Book(ctx, BookingRequest{
				SeatIDs:     []uint64{1, 2, 3},
				RequesterID: uint64(n + 1),
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		ok := errors.Is(err, ErrSeatLocked) ||
			errors.Is(err, ErrSeatsNotAvailable) ||
			errors.Is(err, ErrOptimisticConflict)
		assert.True(t, ok, "unexpected loser outcome: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one attempt may commit the seat set")
	assert.Equal(t, 1, f.bookings.Count())

	winner, err := f.seats.Read(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, winner.HolderID)
	for _, id := range []uint64{2, 3} {
		seat, err := f.seats.Read(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SeatBooked, seat.Status)
		require.NotNil(t, seat.HolderID)
		assert.Equal(t, *winner.HolderID, *seat.HolderID, "all three seats belong to the same winner")
	}
}

func TestBookWhileSeatLocked(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	// Another attempt holds seat 2's lock.
	_, err := f.locks.Acquire(ctx, lock.SeatKey(2), time.Minute)
	require.NoError(t, err)

	_, err = f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{1, 2}, RequesterID: 1})
	assert.ErrorIs(t, err, ErrSeatLocked)
	failed := FailedSeatsOf(err)
	require.Len(t, failed, 1)
	assert.Equal(t, uint64(2), failed[0].SeatID)

	// The lock taken on seat 1 during the attempt was rolled back.
	held, err := f.locks.IsLocked(ctx, lock.SeatKey(1))
	require.NoError(t, err)
	assert.False(t, held)
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 1))
}

func TestReserveAndRelease(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	res, err := f.orch.Reserve(ctx, []uint64{1, 2}, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	for _, id := range []uint64{1, 2} {
		seat, err := f.seats.Read(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SeatHeld, seat.Status)
		require.NotNil(t, seat.HolderID)
		assert.Equal(t, uint64(5), *seat.HolderID)
		require.NotNil(t, seat.HoldExpiresAt)
	}

	// Another requester cannot release seats they do not hold.
	released, err := f.orch.Release(ctx, []uint64{1, 2}, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, model.SeatHeld, f.seatStatus(t, 1))

	released, err = f.orch.Release(ctx, []uint64{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, released, "only held seats count; seat 3 was never held")
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 1))
	assert.Equal(t, model.SeatAvailable, f.seatStatus(t, 2))
}

func TestReservedSeatBlocksOtherBookers(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.orch.Reserve(ctx, []uint64{1}, 5)
	require.NoError(t, err)

	_, err = f.orch.Book(ctx, BookingRequest{SeatIDs: []uint64{1}, RequesterID: 6})
	assert.ErrorIs(t, err, ErrSeatsNotAvailable)
}
