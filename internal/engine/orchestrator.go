package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/queue"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

// EventPublisher pushes domain events to the message broker.  Publish
// failures never fail the booking that produced them.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishQueueAdmitted(ctx context.Context, ev queue.QueueAdmittedEvent) error
}

// BookingRequest is a multi-seat booking attempt.
type BookingRequest struct {
	SeatIDs       []uint64
	RequesterID   uint64
	PaymentMethod string
}

// BookingResult reports a committed booking.
type BookingResult struct {
	BookingID        string   `json:"booking_id"`
	SeatIDs          []uint64 `json:"seat_ids"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
}

// ReserveResult reports a committed soft-hold.
type ReserveResult struct {
	SeatIDs   []uint64  `json:"seat_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Orchestrator executes the multi-seat booking protocol: acquire
// locks in ascending seat order, verify availability with fresh
// reads, commit with version-guarded writes, record the booking, and
// release the locks on every exit path.  The lock prevents two
// orchestrators from interleaving inside the verify/commit window;
// the version guard catches lost updates if a lock expired early or a
// writer bypassed the lock path.  Both protections are required.
type Orchestrator struct {
	seats     store.SeatStore
	bookings  store.BookingStore
	locks     lock.Coordinator
	publisher EventPublisher

	lockTTL        time.Duration
	holdTTL        time.Duration
	seatPriceCents uint32

	now func() time.Time
	log *logrus.Entry
}

// OrchestratorConfig carries the orchestrator's tunables.  Publisher
// may be nil, in which case no events are emitted.
type OrchestratorConfig struct {
	LockTTL        time.Duration
	HoldTTL        time.Duration
	SeatPriceCents uint32
	Publisher      EventPublisher
}

// NewOrchestrator wires an orchestrator.  Seats, bookings and locks
// must be non-nil.
func NewOrchestrator(seats store.SeatStore, bookings store.BookingStore, locks lock.Coordinator, cfg OrchestratorConfig) *Orchestrator {
	if seats == nil || bookings == nil || locks == nil {
		panic("nil dependency passed to NewOrchestrator")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 5 * time.Minute
	}
	return &Orchestrator{
		seats:          seats,
		bookings:       bookings,
		locks:          locks,
		publisher:      cfg.Publisher,
		lockTTL:        cfg.LockTTL,
		holdTTL:        cfg.HoldTTL,
		seatPriceCents: cfg.SeatPriceCents,
		now:            time.Now,
		log:            logrus.WithField("component", "orchestrator"),
	}
}

// normalizeSeatIDs validates, deduplicates and sorts the requested
// seats ascending.  Ascending order is the fixed lock-acquisition
// order that prevents cross-request deadlock.
func normalizeSeatIDs(seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, attemptErr(ErrValidation)
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	unique := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, attemptErr(ErrValidation)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return unique, nil
}

// acquireAll acquires the lock for every seat in order, returning the
// owner tokens keyed by seat.  On the first busy lock it releases
// everything acquired so far and fails with ErrSeatLocked.
func (o *Orchestrator) acquireAll(ctx context.Context, seatIDs []uint64) (map[uint64]string, error) {
	owners := make(map[uint64]string, len(seatIDs))
	for _, sid := range seatIDs {
		owner, err := o.locks.Acquire(ctx, lock.SeatKey(sid), o.lockTTL)
		if err != nil {
			o.releaseAll(ctx, owners)
			if errors.Is(err, lock.ErrLockHeld) {
				return nil, attemptErr(ErrSeatLocked, SeatFailure{SeatID: sid, Reason: "locked"})
			}
			return nil, err
		}
		owners[sid] = owner
	}
	return owners, nil
}

// releaseAll releases every held lock.  Release errors are logged and
// swallowed: a failed release self-heals when the lock's TTL elapses.
func (o *Orchestrator) releaseAll(ctx context.Context, owners map[uint64]string) {
	for sid, owner := range owners {
		if err := o.locks.Release(ctx, lock.SeatKey(sid), owner); err != nil {
			o.log.WithError(err).WithField("seat_id", sid).Warn("lock release failed")
		}
	}
}

// verifyAvailable re-reads every seat after lock acquisition and
// confirms it is AVAILABLE, returning the versions captured by those
// fresh reads.  Reads taken before acquisition must not be reused:
// they may be stale.
func (o *Orchestrator) verifyAvailable(ctx context.Context, seatIDs []uint64) (map[uint64]uint64, error) {
	versions := make(map[uint64]uint64, len(seatIDs))
	var unavailable []SeatFailure
	for _, sid := range seatIDs {
		seat, err := o.seats.Read(ctx, sid)
		if err != nil {
			if errors.Is(err, store.ErrSeatNotFound) {
				return nil, attemptErr(ErrValidation, SeatFailure{SeatID: sid, Reason: "not found"})
			}
			return nil, err
		}
		if seat.Status != model.SeatAvailable {
			unavailable = append(unavailable, SeatFailure{SeatID: sid, Reason: "not available"})
			continue
		}
		versions[sid] = seat.Version
	}
	if len(unavailable) > 0 {
		return nil, attemptErr(ErrSeatsNotAvailable, unavailable...)
	}
	return versions, nil
}

// compensate reverts seats this attempt already committed back to
// AVAILABLE.  Best effort: each revert re-reads the current version;
// failures are logged, and anything missed is either harmless (a
// racing writer moved the seat on, so it was never ours to revert) or
// reclaimed by the reaper.
func (o *Orchestrator) compensate(ctx context.Context, seatIDs []uint64) {
	for _, sid := range seatIDs {
		seat, err := o.seats.Read(ctx, sid)
		if err != nil {
			o.log.WithError(err).WithField("seat_id", sid).Error("rollback read failed")
			continue
		}
		if err := o.seats.ConditionalWrite(ctx, sid, seat.Version, model.SeatAvailable, nil, nil); err != nil {
			o.log.WithError(err).WithField("seat_id", sid).Error("rollback write failed")
		}
	}
}

// Book runs the full booking protocol for the request.  On success a
// Booking record exists and every seat is BOOKED by the requester; on
// any failure no Booking exists and every seat is back in its
// pre-attempt state.  The returned error is one of the taxonomy
// sentinels wrapped in an AttemptError.
func (o *Orchestrator) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if req.RequesterID == 0 {
		return nil, attemptErr(ErrValidation)
	}
	seatIDs, err := normalizeSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}

	owners, err := o.acquireAll(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	// Locks are released on every exit path below.
	defer o.releaseAll(ctx, owners)

	versions, err := o.verifyAvailable(ctx, seatIDs)
	if err != nil {
		return nil, err
	}

	requester := req.RequesterID
	committed := make([]uint64, 0, len(seatIDs))
	for _, sid := range seatIDs {
		err := o.seats.ConditionalWrite(ctx, sid, versions[sid], model.SeatBooked, &requester, nil)
		if err != nil {
			// All-or-nothing: one conflicting seat aborts the entire
			// booking and undoes the seats committed in this loop.
			o.compensate(ctx, committed)
			if errors.Is(err, store.ErrVersionConflict) {
				return nil, attemptErr(ErrOptimisticConflict, SeatFailure{SeatID: sid, Reason: "version conflict"})
			}
			return nil, err
		}
		committed = append(committed, sid)
	}

	booking := &model.Booking{
		ID:               uuid.NewString(),
		RequesterID:      requester,
		SeatIDs:          seatIDs,
		Status:           model.BookingConfirmed,
		PaymentMethod:    req.PaymentMethod,
		TotalAmountCents: o.seatPriceCents * uint32(len(seatIDs)),
	}
	if err := o.bookings.Create(ctx, booking); err != nil {
		o.compensate(ctx, committed)
		return nil, err
	}

	o.publishConfirmed(ctx, booking)

	return &BookingResult{
		BookingID:        booking.ID,
		SeatIDs:          seatIDs,
		TotalAmountCents: booking.TotalAmountCents,
	}, nil
}

// Reserve places a soft-hold on the requested seats with the same
// acquire/verify/commit discipline as Book.  Held seats revert to
// AVAILABLE automatically once the hold TTL elapses.
func (o *Orchestrator) Reserve(ctx context.Context, seatIDs []uint64, requesterID uint64) (*ReserveResult, error) {
	if requesterID == 0 {
		return nil, attemptErr(ErrValidation)
	}
	ids, err := normalizeSeatIDs(seatIDs)
	if err != nil {
		return nil, err
	}

	owners, err := o.acquireAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer o.releaseAll(ctx, owners)

	versions, err := o.verifyAvailable(ctx, ids)
	if err != nil {
		return nil, err
	}

	expiresAt := o.now().UTC().Add(o.holdTTL)
	committed := make([]uint64, 0, len(ids))
	for _, sid := range ids {
		err := o.seats.ConditionalWrite(ctx, sid, versions[sid], model.SeatHeld, &requesterID, &expiresAt)
		if err != nil {
			o.compensate(ctx, committed)
			if errors.Is(err, store.ErrVersionConflict) {
				return nil, attemptErr(ErrOptimisticConflict, SeatFailure{SeatID: sid, Reason: "version conflict"})
			}
			return nil, err
		}
		committed = append(committed, sid)
	}

	return &ReserveResult{SeatIDs: ids, ExpiresAt: expiresAt}, nil
}

// Release reverts the requester's holds on the given seats back to
// AVAILABLE and returns how many were released.  Seats the requester
// does not hold are skipped, so a stale release after expiry is a
// no-op rather than an error.
func (o *Orchestrator) Release(ctx context.Context, seatIDs []uint64, requesterID uint64) (int, error) {
	if requesterID == 0 {
		return 0, attemptErr(ErrValidation)
	}
	ids, err := normalizeSeatIDs(seatIDs)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, sid := range ids {
		seat, err := o.seats.Read(ctx, sid)
		if err != nil {
			if errors.Is(err, store.ErrSeatNotFound) {
				continue
			}
			return released, err
		}
		if seat.Status != model.SeatHeld || seat.HolderID == nil || *seat.HolderID != requesterID {
			continue
		}
		err = o.seats.ConditionalWrite(ctx, sid, seat.Version, model.SeatAvailable, nil, nil)
		if err != nil {
			// A conflict means the hold just expired or converted;
			// either way there is nothing left to release.
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			return released, err
		}
		released++
	}
	return released, nil
}

func (o *Orchestrator) publishConfirmed(ctx context.Context, b *model.Booking) {
	if o.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:        b.ID,
		RequesterID:      b.RequesterID,
		SeatIDs:          b.SeatIDs,
		PaymentMethod:    b.PaymentMethod,
		TotalAmountCents: b.TotalAmountCents,
		ConfirmedAt:      o.now().UTC().Format(time.RFC3339),
	}
	if err := o.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		o.log.WithError(err).WithField("booking_id", b.ID).Warn("booking event publish failed")
	}
}
