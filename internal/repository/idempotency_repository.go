package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IdempotencyRecord is the stored outcome of one previously executed
// command. Once written a record is immutable: a second command bearing
// the same key gets the recorded result back without re-executing any
// side effect.
type IdempotencyRecord struct {
	Key         string    // idempotency_records.idempotency_key
	Result      []byte    // idempotency_records.result_payload (JSON)
	ProcessedAt time.Time // idempotency_records.processed_at
}

// IdempotencyRepo provides data access to a participant's idempotency
// ledger. Both the hotel and the payment service keep one, each in its
// own database.
type IdempotencyRepo struct {
	db *sql.DB
}

// NewIdempotencyRepo returns a new IdempotencyRepo bound to the given database.
func NewIdempotencyRepo(db *sql.DB) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

// InitSchema creates the idempotency_records table when it does not exist yet.
func (r *IdempotencyRepo) InitSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS idempotency_records (
		idempotency_key VARCHAR(128) NOT NULL PRIMARY KEY,
		result_payload  TEXT         NOT NULL,
		processed_at    DATETIME(6)  NOT NULL
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Get looks up a previously recorded outcome. Returns ErrNotFound when the
// key has never been processed.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	const q = `SELECT idempotency_key, result_payload, processed_at FROM idempotency_records WHERE idempotency_key = ?`
	var rec IdempotencyRecord
	err := r.db.QueryRowContext(ctx, q, key).Scan(&rec.Key, &rec.Result, &rec.ProcessedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveTx records the outcome of a command inside the same transaction that
// performed its mutation, so the ledger entry and the side effect commit
// or roll back together.
func (r *IdempotencyRepo) SaveTx(ctx context.Context, tx *sql.Tx, key string, result []byte) error {
	const q = `INSERT INTO idempotency_records (idempotency_key, result_payload, processed_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, key, result, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}
