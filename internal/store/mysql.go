package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// MySQLSeatStore implements SeatStore on top of a seats table.  The
// conditional write is a single UPDATE guarded by the version column,
// so the compare and the write happen inside the database engine with
// no client-side race window.  All timestamps are stored in UTC.
type MySQLSeatStore struct {
	db *sql.DB
}

// NewMySQLSeatStore returns a MySQLSeatStore bound to the provided database.
func NewMySQLSeatStore(db *sql.DB) *MySQLSeatStore { return &MySQLSeatStore{db: db} }

// Read returns the seat row for the given ID.  sql.ErrNoRows is
// translated into ErrSeatNotFound so callers never depend on
// database/sql sentinels.
func (s *MySQLSeatStore) Read(ctx context.Context, seatID uint64) (*model.Seat, error) {
	const q = `SELECT id, status, version, holder_id, hold_expires_at, created_at, updated_at
	           FROM seats WHERE id = ?`
	var seat model.Seat
	var holder sql.NullInt64
	var holdExp sql.NullTime
	err := s.db.QueryRowContext(ctx, q, seatID).Scan(
		&seat.ID, &seat.Status, &seat.Version, &holder, &holdExp,
		&seat.CreatedAt, &seat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	if holder.Valid {
		h := uint64(holder.Int64)
		seat.HolderID = &h
	}
	if holdExp.Valid {
		t := holdExp.Time.UTC()
		seat.HoldExpiresAt = &t
	}
	return &seat, nil
}

// ConditionalWrite applies the state transition with an optimistic
// version guard.  The UPDATE matches on both id and version; zero
// affected rows means either the seat is gone or another writer
// bumped the version first, and a follow-up existence check decides
// which error to report.
func (s *MySQLSeatStore) ConditionalWrite(ctx context.Context, seatID, expectedVersion uint64, newStatus string, holder *uint64, holdExpiresAt *time.Time) error {
	const q = `UPDATE seats
	           SET status = ?, holder_id = ?, hold_expires_at = ?, version = version + 1
	           WHERE id = ? AND version = ?`
	var holderArg interface{}
	if holder != nil {
		holderArg = *holder
	}
	var expiryArg interface{}
	if holdExpiresAt != nil {
		expiryArg = holdExpiresAt.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := s.db.ExecContext(ctx, q, newStatus, holderArg, expiryArg, seatID, expectedVersion)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// The guard failed; distinguish a missing seat from a stale version.
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ?`, seatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSeatNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}

// ListAvailable returns the IDs of all AVAILABLE seats ordered
// ascending.  Ascending order keeps FCFS claims and lock acquisition
// deterministic across workers.
func (s *MySQLSeatStore) ListAvailable(ctx context.Context) ([]uint64, error) {
	const q = `SELECT id FROM seats WHERE status = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, model.SeatAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ExpiredHolds returns every HELD seat whose hold expiry has passed.
// Each record carries the version read here so the reaper can revert
// it conditionally without clobbering a racing commit.
func (s *MySQLSeatStore) ExpiredHolds(ctx context.Context, now time.Time) ([]*model.Seat, error) {
	const q = `SELECT id, status, version, holder_id, hold_expires_at, created_at, updated_at
	           FROM seats
	           WHERE status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?`
	rows, err := s.db.QueryContext(ctx, q, model.SeatHeld, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []*model.Seat
	for rows.Next() {
		var seat model.Seat
		var holder sql.NullInt64
		var holdExp sql.NullTime
		if err := rows.Scan(&seat.ID, &seat.Status, &seat.Version, &holder, &holdExp,
			&seat.CreatedAt, &seat.UpdatedAt); err != nil {
			return nil, err
		}
		if holder.Valid {
			h := uint64(holder.Int64)
			seat.HolderID = &h
		}
		if holdExp.Valid {
			t := holdExp.Time.UTC()
			seat.HoldExpiresAt = &t
		}
		seats = append(seats, &seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CreateBulk inserts multiple seats in one statement.  It is used at
// venue setup; INSERT IGNORE makes re-running the seed on restart a
// no-op for seats that already exist.  Passing an empty slice has no
// effect and returns nil.
func (s *MySQLSeatStore) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO seats (id, status, version) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, seat.ID, seat.Status, seat.Version)
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
