// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published after a multi-seat booking commits.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary store.
type BookingConfirmedEvent struct {
	BookingID        string   `json:"booking_id"`
	RequesterID      uint64   `json:"requester_id"`
	SeatIDs          []uint64 `json:"seat_ids"`
	PaymentMethod    string   `json:"payment_method"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// QueueAdmittedEvent is published when the admission path promotes a
// waiting requester after confirming capacity. Consumers use it to
// notify the requester that they may attempt a booking.
type QueueAdmittedEvent struct {
	RequesterID  uint64 `json:"requester_id"`
	PriorityTier string `json:"priority_tier"`
	EnqueuedAt   string `json:"enqueued_at"`
	AdmittedAt   string `json:"admitted_at"`
}
