package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

// FCFSAllocator hands out any one available seat first-come
// first-served.  It is the simplified single-seat variant of the
// orchestrator: no multi-seat atomicity and no lock acquisition.  A
// claim is a single version-guarded write, which already guarantees
// at most one winner per seat; losing a claim race just moves the
// allocator to the next available seat, bounded so a persistent loser
// fails with ErrContention instead of spinning.
type FCFSAllocator struct {
	seats store.SeatStore
	dedup DedupStore

	dedupTTL   time.Duration
	maxRetries int

	log *logrus.Entry
}

// FCFSResult reports a won allocation.  Sequence is the monotonic
// allocation counter, useful for audit ordering.
type FCFSResult struct {
	SeatID   uint64 `json:"seat_id"`
	Sequence int64  `json:"sequence"`
}

// FCFSConfig carries the allocator's tunables.
type FCFSConfig struct {
	DedupTTL   time.Duration
	MaxRetries int
}

// NewFCFSAllocator wires an allocator.  Seats and dedup must be
// non-nil.
func NewFCFSAllocator(seats store.SeatStore, dedup DedupStore, cfg FCFSConfig) *FCFSAllocator {
	if seats == nil || dedup == nil {
		panic("nil dependency passed to NewFCFSAllocator")
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 15 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &FCFSAllocator{
		seats:      seats,
		dedup:      dedup,
		dedupTTL:   cfg.DedupTTL,
		maxRetries: cfg.MaxRetries,
		log:        logrus.WithField("component", "fcfs"),
	}
}

// claim outcomes for one candidate seat.
const (
	claimWon  = iota // seat is ours
	claimGone        // seat was no longer available at read time; free skip
	claimLost        // version conflict: another requester claimed it first
)

// Allocate claims the first available seat for the requester.
// Outcomes: ErrDuplicate when the requester already allocated inside
// the dedup window, ErrSoldOut when no seat is available,
// ErrContention when the bounded race-retry budget is exhausted.
// Seats that had already been taken by the time we read them are free
// skips; only a lost claim race (version conflict) consumes budget.
//
// The dedup marker is claimed atomically before any seat work, so
// concurrent attempts by the same requester serialize on the marker
// and at most one of them can ever win a seat.  A failed allocation
// clears the marker again.
func (a *FCFSAllocator) Allocate(ctx context.Context, requesterID uint64) (*FCFSResult, error) {
	if requesterID == 0 {
		return nil, ErrValidation
	}
	claimed, err := a.dedup.ClaimMarker(ctx, requesterID, a.dedupTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrDuplicate
	}

	res, err := a.allocate(ctx, requesterID)
	if err != nil {
		// The marker records a won allocation; a failed attempt must
		// not block the requester for the whole dedup window.  If the
		// clear itself fails, the TTL bounds the damage.
		if clearErr := a.dedup.ClearMarker(ctx, requesterID); clearErr != nil {
			a.log.WithError(clearErr).WithField("requester_id", requesterID).Warn("dedup marker clear failed")
		}
		return nil, err
	}
	return res, nil
}

// allocate runs the claim loop.  The caller has already claimed the
// dedup marker.
func (a *FCFSAllocator) allocate(ctx context.Context, requesterID uint64) (*FCFSResult, error) {
	races := 0
	for pass := 0; pass <= a.maxRetries; pass++ {
		// Fast path: no inventory means no claim work at all.
		available, err := a.seats.ListAvailable(ctx)
		if err != nil {
			return nil, err
		}
		if len(available) == 0 {
			return nil, ErrSoldOut
		}
		for _, sid := range available {
			outcome, err := a.tryClaim(ctx, sid, requesterID)
			if err != nil {
				return nil, err
			}
			switch outcome {
			case claimWon:
				return a.finish(ctx, sid)
			case claimLost:
				races++
				if races >= a.maxRetries {
					return nil, ErrContention
				}
			}
		}
		// The snapshot was exhausted without a win; refresh the list.
	}
	return nil, ErrContention
}

// tryClaim attempts one conditional claim of seatID with the version
// read immediately beforehand.  Errors are returned only for
// infrastructure failures.
func (a *FCFSAllocator) tryClaim(ctx context.Context, seatID, requesterID uint64) (int, error) {
	seat, err := a.seats.Read(ctx, seatID)
	if err != nil {
		if errors.Is(err, store.ErrSeatNotFound) {
			return claimGone, nil
		}
		return claimGone, err
	}
	if seat.Status != model.SeatAvailable {
		return claimGone, nil
	}
	err = a.seats.ConditionalWrite(ctx, seatID, seat.Version, model.SeatBooked, &requesterID, nil)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return claimLost, nil
		}
		return claimGone, err
	}
	return claimWon, nil
}

// finish draws the sequence number for a won seat.  A sequence
// failure does not undo the claim; the seat is already the
// requester's.
func (a *FCFSAllocator) finish(ctx context.Context, seatID uint64) (*FCFSResult, error) {
	seq, err := a.dedup.NextSequence(ctx)
	if err != nil {
		a.log.WithError(err).Warn("sequence increment failed")
		seq = 0
	}
	return &FCFSResult{SeatID: seatID, Sequence: seq}, nil
}
