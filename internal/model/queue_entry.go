package model

import "time"

// Priority tiers recognised by the wait queue, highest first.
const (
	TierVIP     = "VIP"
	TierPremium = "PREMIUM"
	TierNormal  = "NORMAL"
)

// TierRank maps a priority tier to its ordering weight.  Higher ranks
// dequeue first.  Unknown tiers rank below NORMAL so a malformed
// entry can never jump the queue.
func TierRank(tier string) int {
	switch tier {
	case TierVIP:
		return 3
	case TierPremium:
		return 2
	case TierNormal:
		return 1
	default:
		return 0
	}
}

// QueueEntry is one requester waiting for admission.  Entries are
// ordered by tier rank descending, then enqueue time ascending, with
// insertion order breaking exact-time ties.
//
// Fields:
//  RequesterID  – waiting requester; unique within the queue.
//  PriorityTier – VIP, PREMIUM or NORMAL.
//  EnqueuedAt   – arrival timestamp.
type QueueEntry struct {
	RequesterID  uint64    `json:"requester_id"`
	PriorityTier string    `json:"priority_tier"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}
