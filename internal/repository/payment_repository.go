package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookingsaga/internal/model"
)

// PaymentRepo provides data access to payment authorizations. Updates to
// an existing authorization lock the row for the transaction and still
// carry an optimistic version predicate, matching the concurrency
// discipline of the reservation side.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle so the service can run the mutation and
// ledger writes in one transaction.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

// InitSchema creates the payment_authorizations table when it does not
// exist yet.
func (r *PaymentRepo) InitSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS payment_authorizations (
		authorization_id VARCHAR(64)   NOT NULL PRIMARY KEY,
		card_number      VARCHAR(25)   NOT NULL,
		card_holder_name VARCHAR(255)  NOT NULL,
		amount           DECIMAL(10,2) NOT NULL,
		currency         VARCHAR(3)    NOT NULL,
		status           VARCHAR(20)   NOT NULL,
		authorized_at    DATETIME(6)   NOT NULL,
		updated_at       DATETIME(6)   NOT NULL,
		version          BIGINT        NOT NULL DEFAULT 0
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CreateTx inserts a new authorization within an existing transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, auth *model.PaymentAuthorization) error {
	const q = `INSERT INTO payment_authorizations
		(authorization_id, card_number, card_holder_name, amount, currency, status, authorized_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`
	now := time.Now().UTC()
	auth.AuthorizedAt = now
	auth.UpdatedAt = now
	_, err := tx.ExecContext(ctx, q,
		auth.AuthorizationID, auth.CardNumber, auth.CardHolderName,
		auth.Amount, auth.Currency, auth.Status, auth.AuthorizedAt, auth.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert authorization: %w", err)
	}
	return nil
}

// GetForUpdateTx loads an authorization under an exclusive row lock for
// the duration of the transaction.
func (r *PaymentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, authorizationID string) (*model.PaymentAuthorization, error) {
	const q = `SELECT authorization_id, card_number, card_holder_name, amount, currency, status, authorized_at, updated_at, version
		FROM payment_authorizations WHERE authorization_id = ? FOR UPDATE`
	var auth model.PaymentAuthorization
	err := tx.QueryRowContext(ctx, q, authorizationID).Scan(
		&auth.AuthorizationID, &auth.CardNumber, &auth.CardHolderName,
		&auth.Amount, &auth.Currency, &auth.Status, &auth.AuthorizedAt, &auth.UpdatedAt, &auth.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// UpdateStatusTx moves an authorization to a new status with an optimistic
// version check; zero rows affected is reported as ErrVersionConflict.
func (r *PaymentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, authorizationID, status string, version int64) error {
	const q = `UPDATE payment_authorizations
		SET status = ?, updated_at = ?, version = version + 1
		WHERE authorization_id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, status, time.Now().UTC(), authorizationID, version)
	if err != nil {
		return fmt.Errorf("update authorization status: %w", err)
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
