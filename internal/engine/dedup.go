package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore tracks which requesters recently won an FCFS allocation
// and hands out the monotonic allocation sequence.  ClaimMarker is a
// single atomic set-if-absent: the check and the write must never be
// two separate calls, or two concurrent attempts by the same
// requester both pass the check and both claim a seat.  Markers carry
// their own TTL so a requester can allocate again once the window
// elapses.
type DedupStore interface {
	// ClaimMarker atomically records an allocation attempt for the
	// requester unless a live marker already exists.  Returns true
	// when this call planted the marker, false when the requester is
	// already marked.
	ClaimMarker(ctx context.Context, requesterID uint64, ttl time.Duration) (bool, error)

	// ClearMarker removes the requester's marker.  Called when an
	// allocation fails after the marker was claimed, so the requester
	// may try again without waiting out the TTL.
	ClearMarker(ctx context.Context, requesterID uint64) error

	// NextSequence increments and returns the allocation counter.
	// The sequence is for audit ordering, not correctness.
	NextSequence(ctx context.Context) (int64, error)
}

// RedisDedupStore implements DedupStore on Redis: SET NX EX for the
// marker claim, DEL for the clear and INCR for the sequence, each a
// single atomic command.
type RedisDedupStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisDedupStore returns a store namespaced under prefix
// ("fcfs" when empty).
func NewRedisDedupStore(rdb *redis.Client, prefix string) *RedisDedupStore {
	if prefix == "" {
		prefix = "fcfs"
	}
	return &RedisDedupStore{rdb: rdb, prefix: prefix}
}

func (s *RedisDedupStore) markerKey(requesterID uint64) string {
	return fmt.Sprintf("%s:dedup:%d", s.prefix, requesterID)
}

func (s *RedisDedupStore) ClaimMarker(ctx context.Context, requesterID uint64, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.markerKey(requesterID), 1, ttl).Result()
}

func (s *RedisDedupStore) ClearMarker(ctx context.Context, requesterID uint64) error {
	return s.rdb.Del(ctx, s.markerKey(requesterID)).Err()
}

func (s *RedisDedupStore) NextSequence(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, s.prefix+":seq").Result()
}

// MemoryDedupStore is the in-process DedupStore for single-process
// deployments and tests.  The existence check and the marker write
// happen under one lock acquisition, mirroring the atomicity of the
// Redis SET NX.
type MemoryDedupStore struct {
	mu      sync.Mutex
	markers map[uint64]time.Time // requester -> marker expiry
	seq     int64
	now     func() time.Time
}

// NewMemoryDedupStore returns an empty MemoryDedupStore.
func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{markers: make(map[uint64]time.Time), now: time.Now}
}

func (s *MemoryDedupStore) ClaimMarker(ctx context.Context, requesterID uint64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.markers[requesterID]; ok && exp.After(now) {
		return false, nil
	}
	s.markers[requesterID] = now.Add(ttl)
	return true, nil
}

func (s *MemoryDedupStore) ClearMarker(ctx context.Context, requesterID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, requesterID)
	return nil
}

func (s *MemoryDedupStore) NextSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}
