package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings sized for short CAS transactions
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the engine's tables when they do not exist yet.
// The version column is the optimistic concurrency guard: every
// status transition increments it, and every writer must present the
// version it read.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seats (
			id              BIGINT UNSIGNED NOT NULL,
			status          VARCHAR(16)     NOT NULL DEFAULT 'AVAILABLE',
			version         BIGINT UNSIGNED NOT NULL DEFAULT 0,
			holder_id       BIGINT UNSIGNED NULL,
			hold_expires_at DATETIME        NULL,
			created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_seats_status (status),
			KEY idx_seats_hold_expiry (status, hold_expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id                 CHAR(36)        NOT NULL,
			requester_id       BIGINT UNSIGNED NOT NULL,
			status             VARCHAR(16)     NOT NULL,
			payment_method     VARCHAR(32)     NOT NULL DEFAULT '',
			total_amount_cents INT UNSIGNED    NOT NULL DEFAULT 0,
			created_at         DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_bookings_requester (requester_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS booking_seats (
			booking_id CHAR(36)        NOT NULL,
			seat_id    BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (booking_id, seat_id),
			KEY idx_booking_seats_seat (seat_id),
			CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
