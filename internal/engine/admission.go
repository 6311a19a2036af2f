package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/queue"
	"github.com/iliyamo/venue-booking-engine/internal/store"
	"github.com/iliyamo/venue-booking-engine/internal/waitqueue"
)

// Admitter promotes waiting requesters out of the priority queue once
// capacity is confirmed.  It is deliberately separate from the
// booking path: admission only tells a requester they may now
// attempt a booking, it does not reserve anything on their behalf.
// Because nothing is reserved, each sweep admits at most as many
// requesters as there are available seats; without that cap a single
// free seat would drain the whole queue in one tick.
type Admitter struct {
	seats     store.SeatStore
	waits     *waitqueue.Queue
	publisher EventPublisher
	interval  time.Duration
	now       func() time.Time
	log       *logrus.Entry
}

// NewAdmitter wires an admitter.  Publisher may be nil.
func NewAdmitter(seats store.SeatStore, waits *waitqueue.Queue, publisher EventPublisher, interval time.Duration) *Admitter {
	if seats == nil || waits == nil {
		panic("nil dependency passed to NewAdmitter")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Admitter{
		seats:     seats,
		waits:     waits,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
		log:       logrus.WithField("component", "admitter"),
	}
}

// Start runs the admission loop until the context is cancelled.
func (a *Admitter) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.log.Info("admission loop started")
	for {
		select {
		case <-ctx.Done():
			a.log.Info("admission loop stopped")
			return
		case <-ticker.C:
			if _, err := a.Sweep(ctx); err != nil {
				a.log.WithError(err).Error("admission pass failed")
			}
		}
	}
}

// Sweep admits waiting requesters in priority order, at most one per
// currently available seat, and returns how many were admitted.
// Returns 0 without error when the queue is empty or there is no
// capacity.
func (a *Admitter) Sweep(ctx context.Context) (int, error) {
	if a.waits.Len() == 0 {
		return 0, nil
	}
	available, err := a.seats.ListAvailable(ctx)
	if err != nil {
		return 0, err
	}
	admitted := 0
	for admitted < len(available) {
		entry := a.waits.DequeueNext()
		if entry == nil {
			break
		}
		a.admit(ctx, entry)
		admitted++
	}
	return admitted, nil
}

// admit logs the promotion and publishes the queue-admitted event.
// Publish failures never undo an admission.
func (a *Admitter) admit(ctx context.Context, entry *model.QueueEntry) {
	a.log.WithFields(logrus.Fields{
		"requester_id": entry.RequesterID,
		"tier":         entry.PriorityTier,
	}).Info("admitted requester from queue")
	if a.publisher == nil {
		return
	}
	ev := queue.QueueAdmittedEvent{
		RequesterID:  entry.RequesterID,
		PriorityTier: entry.PriorityTier,
		EnqueuedAt:   entry.EnqueuedAt.UTC().Format(time.RFC3339),
		AdmittedAt:   a.now().UTC().Format(time.RFC3339),
	}
	if err := a.publisher.PublishQueueAdmitted(ctx, ev); err != nil {
		a.log.WithError(err).Warn("queue admitted event publish failed")
	}
}
