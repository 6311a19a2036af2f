package model

import "time"

// Booking status values.  Bookings are immutable after creation
// except for the CANCELLED transition.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking groups the seats committed atomically under one booking
// attempt.  A Booking row exists only when every seat in SeatIDs
// reached BOOKED; a partially failed attempt never produces one.
//
// Fields:
//  ID               – opaque booking identifier.
//  RequesterID      – requester who owns the booking.
//  SeatIDs          – seats booked as a unit; never empty.
//  Status           – CONFIRMED or CANCELLED.
//  PaymentMethod    – method recorded at booking time (not charged here).
//  TotalAmountCents – total price across the booked seats.
//  CreatedAt        – creation timestamp.
type Booking struct {
	ID               string    // bookings.id
	RequesterID      uint64    // bookings.requester_id
	SeatIDs          []uint64  // booking_seats.seat_id rows
	Status           string    // bookings.status
	PaymentMethod    string    // bookings.payment_method
	TotalAmountCents uint32    // bookings.total_amount_cents
	CreatedAt        time.Time // bookings.created_at
}
