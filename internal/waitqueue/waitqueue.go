// Package waitqueue implements the priority wait queue consulted when
// no seat can be claimed immediately. Entries rank by priority tier
// first and arrival time second; once spliced in, an entry is never
// reordered except by removal. The structure is mutex-guarded because
// its ordering invariant is not self-healing under concurrent
// unsynchronized mutation.
package waitqueue

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// ErrAlreadyQueued is returned when the requester already has an
// entry in the queue.
var ErrAlreadyQueued = errors.New("already queued")

// ErrNotInQueue is returned when the requester has no entry.
var ErrNotInQueue = errors.New("not in queue")

type entry struct {
	model.QueueEntry
	seq uint64 // insertion order, breaks exact-time ties
}

// Queue is a per-venue priority wait queue.  All methods are safe for
// concurrent use.
type Queue struct {
	mu      sync.Mutex
	entries []entry
	nextSeq uint64
	now     func() time.Time

	// avgServicePerEntry feeds the advisory wait estimate. Never used
	// for correctness.
	avgServicePerEntry time.Duration
}

// New returns an empty queue.  avgServicePerEntry is the assumed time
// to serve one waiting requester, used only by EstimatedWait.
func New(avgServicePerEntry time.Duration) *Queue {
	if avgServicePerEntry <= 0 {
		avgServicePerEntry = 30 * time.Second
	}
	return &Queue{now: time.Now, avgServicePerEntry: avgServicePerEntry}
}

// before reports whether a should dequeue ahead of b: higher tier
// rank first, then earlier arrival, then earlier insertion.
func before(a, b entry) bool {
	ra, rb := model.TierRank(a.PriorityTier), model.TierRank(b.PriorityTier)
	if ra != rb {
		return ra > rb
	}
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.seq < b.seq
}

// Enqueue adds the requester with the given tier and returns the
// zero-based position the entry landed at.  Returns ErrAlreadyQueued
// when the requester already waits.
func (q *Queue) Enqueue(requesterID uint64, priorityTier string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.RequesterID == requesterID {
			return 0, ErrAlreadyQueued
		}
	}
	e := entry{
		QueueEntry: model.QueueEntry{
			RequesterID:  requesterID,
			PriorityTier: priorityTier,
			EnqueuedAt:   q.now().UTC(),
		},
		seq: q.nextSeq,
	}
	q.nextSeq++
	// Binary search for the splice point: the first existing entry
	// that should dequeue after the new one.
	pos := sort.Search(len(q.entries), func(i int) bool {
		return before(e, q.entries[i])
	})
	q.entries = append(q.entries, entry{})
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = e
	return pos, nil
}

// DequeueNext removes and returns the highest-priority, earliest
// entry, or nil when the queue is empty.
func (q *Queue) DequeueNext() *model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	head := q.entries[0].QueueEntry
	q.entries = q.entries[1:]
	return &head
}

// PositionOf returns the requester's zero-based position, or
// ErrNotInQueue.
func (q *Queue) PositionOf(requesterID uint64) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.RequesterID == requesterID {
			return i, nil
		}
	}
	return 0, ErrNotInQueue
}

// Remove deletes the requester's entry and returns it, or
// ErrNotInQueue.
func (q *Queue) Remove(requesterID uint64) (*model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.RequesterID == requesterID {
			removed := e.QueueEntry
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return &removed, nil
		}
	}
	return nil, ErrNotInQueue
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// EstimatedWait returns an advisory wait estimate for the requester:
// position weighted by the assumed per-entry service time.  Returns
// ErrNotInQueue when the requester does not wait.
func (q *Queue) EstimatedWait(requesterID uint64) (time.Duration, error) {
	pos, err := q.PositionOf(requesterID)
	if err != nil {
		return 0, err
	}
	return time.Duration(pos+1) * q.avgServicePerEntry, nil
}
