package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

// Reaper periodically reverts expired soft-holds to AVAILABLE and,
// for lock coordinators without native key expiry, drops stale lock
// entries.  Expiry is derived from persisted timestamps compared
// against the clock, so the sweep is stateless and idempotent and
// survives process restarts; there are no per-hold timers to leak or
// double-fire.
type Reaper struct {
	seats    store.SeatStore
	locks    lock.Coordinator
	interval time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

// NewReaper wires a reaper.  Locks may be nil when the coordinator
// expires keys natively and nothing needs sweeping.
func NewReaper(seats store.SeatStore, locks lock.Coordinator, interval time.Duration) *Reaper {
	if seats == nil {
		panic("nil seat store passed to NewReaper")
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reaper{
		seats:    seats,
		locks:    locks,
		interval: interval,
		now:      time.Now,
		log:      logrus.WithField("component", "reaper"),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("expiry reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("expiry reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass and returns how many holds were reverted
// and how many lock entries were dropped.  Each record is handled
// independently: one bad record is logged and skipped, never halting
// the sweep for the rest.
func (r *Reaper) Sweep(ctx context.Context) (reverted, locksDropped int) {
	now := r.now().UTC()

	// Lock stores with native TTLs clean up themselves; this backstop
	// only matters for representations that do not expire.
	if sw, ok := r.locks.(lock.Sweeper); ok {
		locksDropped = sw.RemoveExpired(now)
		if locksDropped > 0 {
			r.log.WithField("count", locksDropped).Debug("dropped expired locks")
		}
	}

	expired, err := r.seats.ExpiredHolds(ctx, now)
	if err != nil {
		r.log.WithError(err).Error("expired hold scan failed")
		return reverted, locksDropped
	}
	for _, seat := range expired {
		// The version captured by the scan guards the revert: a hold
		// that was converted to BOOKED by a racing commit carries a
		// newer version, so the write is rejected instead of
		// clobbering the booking.
		err := r.seats.ConditionalWrite(ctx, seat.ID, seat.Version, model.SeatAvailable, nil, nil)
		if err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				r.log.WithField("seat_id", seat.ID).Debug("hold changed under sweep, skipping")
				continue
			}
			r.log.WithError(err).WithField("seat_id", seat.ID).Error("hold revert failed")
			continue
		}
		reverted++
	}
	if reverted > 0 {
		r.log.WithField("count", reverted).Info("reverted expired holds")
	}
	return reverted, locksDropped
}
