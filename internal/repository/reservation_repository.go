package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bookingsaga/internal/model"
)

// ReservationRepo provides data access to reservations and their per-night
// occupancy rows. Occupancy for a hotel and room type is exclusive per
// night: the room_nights table carries a UNIQUE (hotel_id, room_type,
// night) constraint, so of two concurrent conflicting reservations exactly
// one commit succeeds and the other observes a duplicate-key error.
// All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so the service can run the reserve and
// ledger writes in one transaction.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// InitSchema creates the reservations and room_nights tables when they do
// not exist yet. The UNIQUE key on room_nights is the exclusivity
// invariant; everything else builds on it.
func (r *ReservationRepo) InitSchema(ctx context.Context) error {
	const reservations = `CREATE TABLE IF NOT EXISTS reservations (
		reservation_id VARCHAR(64)   NOT NULL PRIMARY KEY,
		hotel_id       BIGINT        NOT NULL,
		room_type      VARCHAR(64)   NOT NULL,
		check_in       DATE          NOT NULL,
		check_out      DATE          NOT NULL,
		guest_name     VARCHAR(255)  NOT NULL,
		room_price     DECIMAL(10,2) NOT NULL,
		status         VARCHAR(20)   NOT NULL,
		created_at     DATETIME(6)   NOT NULL,
		updated_at     DATETIME(6)   NOT NULL,
		version        BIGINT        NOT NULL DEFAULT 0
	)`
	const nights = `CREATE TABLE IF NOT EXISTS room_nights (
		id             BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		hotel_id       BIGINT       NOT NULL,
		room_type      VARCHAR(64)  NOT NULL,
		night          DATE         NOT NULL,
		reservation_id VARCHAR(64)  NOT NULL,
		UNIQUE KEY uq_room_night (hotel_id, room_type, night),
		KEY idx_night_reservation (reservation_id)
	)`
	if _, err := r.db.ExecContext(ctx, reservations); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, nights)
	return err
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction. The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(reservation_id, hotel_id, room_type, check_in, check_out, guest_name, room_price, status, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now
	_, err := tx.ExecContext(ctx, q,
		res.ReservationID, res.HotelID, res.RoomType, res.CheckIn, res.CheckOut,
		res.GuestName, res.RoomPrice, res.Status, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// AddNightsBulkTx inserts one room_nights row per night in a single
// statement. A duplicate-key violation (MySQL 1062) means at least one of
// the nights is already occupied by a non-released reservation and is
// reported as ErrNightTaken. Passing an empty slice has no effect.
func (r *ReservationRepo) AddNightsBulkTx(ctx context.Context, tx *sql.Tx, hotelID int64, roomType, reservationID string, nights []string) error {
	if len(nights) == 0 {
		return nil
	}
	query := `INSERT INTO room_nights (hotel_id, room_type, night, reservation_id) VALUES `
	args := make([]interface{}, 0, len(nights)*4)
	for i, n := range nights {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, hotelID, roomType, n, reservationID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "1062") { // mysql duplicate entry
			return ErrNightTaken
		}
		return fmt.Errorf("insert room nights: %w", err)
	}
	return nil
}

// GetForUpdateTx loads a reservation under an exclusive row lock for the
// duration of the transaction.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, reservationID string) (*model.Reservation, error) {
	const q = `SELECT reservation_id, hotel_id, room_type, check_in, check_out, guest_name, room_price, status, created_at, updated_at, version
		FROM reservations WHERE reservation_id = ? FOR UPDATE`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(
		&res.ReservationID, &res.HotelID, &res.RoomType, &res.CheckIn, &res.CheckOut,
		&res.GuestName, &res.RoomPrice, &res.Status, &res.CreatedAt, &res.UpdatedAt, &res.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatusTx moves a reservation to a new status with an optimistic
// version check. A mismatch (zero rows affected) is reported as
// ErrVersionConflict so the caller surfaces it as a concurrent
// modification instead of overwriting the row.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID, status string, version int64) error {
	const q = `UPDATE reservations
		SET status = ?, updated_at = ?, version = version + 1
		WHERE reservation_id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, status, time.Now().UTC(), reservationID, version)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// DeleteNightsTx removes the occupancy rows of a reservation, freeing its
// nights for other bookings. Called only on release.
func (r *ReservationRepo) DeleteNightsTx(ctx context.Context, tx *sql.Tx, reservationID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM room_nights WHERE reservation_id = ?`, reservationID)
	return err
}
