package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// MySQLBookingStore persists bookings and their seats.  The booking
// row and its booking_seats rows are written inside one transaction
// so a booking is never observable with a partial seat set.
type MySQLBookingStore struct {
	db *sql.DB
}

// NewMySQLBookingStore returns a MySQLBookingStore bound to the given database.
func NewMySQLBookingStore(db *sql.DB) *MySQLBookingStore { return &MySQLBookingStore{db: db} }

// Create inserts the booking and a row per seat.  The caller supplies
// the booking ID; the engine generates one per committed attempt.
func (r *MySQLBookingStore) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO bookings (id, requester_id, status, payment_method, total_amount_cents) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, b.ID, b.RequesterID, b.Status, b.PaymentMethod, b.TotalAmountCents); err != nil {
		return err
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(b.SeatIDs)*2)
	for i, sid := range b.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, b.ID, sid)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	// Query back the row to populate the DB-assigned creation time.
	const sel = `SELECT created_at FROM bookings WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Cancel transitions a booking to CANCELLED.  Zero affected rows
// means the booking does not exist.
func (r *MySQLBookingStore) Cancel(ctx context.Context, id string) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingCancelled, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetByID loads a booking and its seat IDs.  Seats are ordered
// ascending for deterministic output.
func (r *MySQLBookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT id, requester_id, status, payment_method, total_amount_cents, created_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.RequesterID, &b.Status, &b.PaymentMethod, &b.TotalAmountCents, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	const seatQ = `SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id ASC`
	rows, err := r.db.QueryContext(ctx, seatQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}
