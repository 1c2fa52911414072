package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookingsaga/internal/model"
)

// SagaRepo provides data access to the saga_instances table. Mutation of a
// saga always happens under an exclusive row lock (SELECT ... FOR UPDATE)
// held for the duration of one step, so the originating request path and a
// later sweeper pass can never race on the same instance. Every save also
// carries an optimistic version predicate as a second line of defence.
// All timestamps are stored in UTC.
type SagaRepo struct {
	db *sql.DB
}

// NewSagaRepo returns a new SagaRepo bound to the given database.
func NewSagaRepo(db *sql.DB) *SagaRepo { return &SagaRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose
// transactions across repositories.
func (r *SagaRepo) DB() *sql.DB { return r.db }

// InitSchema creates the saga_instances table when it does not exist yet.
func (r *SagaRepo) InitSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS saga_instances (
		saga_id          VARCHAR(64)  NOT NULL PRIMARY KEY,
		state            VARCHAR(40)  NOT NULL,
		request_payload  TEXT         NOT NULL,
		reservation_id   VARCHAR(64)  NULL,
		authorization_id VARCHAR(64)  NULL,
		retry_count      INT          NOT NULL DEFAULT 0,
		max_retries      INT          NOT NULL DEFAULT 3,
		created_at       DATETIME(6)  NOT NULL,
		updated_at       DATETIME(6)  NOT NULL,
		expires_at       DATETIME(6)  NOT NULL,
		version          BIGINT       NOT NULL DEFAULT 0,
		KEY idx_saga_state_expiry (state, expires_at)
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const sagaColumns = `saga_id, state, request_payload, reservation_id, authorization_id,
	retry_count, max_retries, created_at, updated_at, expires_at, version`

// Create inserts a freshly started saga instance.
func (r *SagaRepo) Create(ctx context.Context, saga *model.SagaInstance) error {
	const q = `INSERT INTO saga_instances (` + sagaColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		saga.SagaID, string(saga.State), saga.RequestPayload,
		saga.ReservationID, saga.AuthorizationID,
		saga.RetryCount, saga.MaxRetries,
		saga.CreatedAt, saga.UpdatedAt, saga.ExpiresAt, saga.Version,
	)
	if err != nil {
		return fmt.Errorf("insert saga: %w", err)
	}
	return nil
}

// Get loads a saga instance without locking it. Used by status queries.
func (r *SagaRepo) Get(ctx context.Context, sagaID string) (*model.SagaInstance, error) {
	const q = `SELECT ` + sagaColumns + ` FROM saga_instances WHERE saga_id = ?`
	return scanSaga(r.db.QueryRowContext(ctx, q, sagaID))
}

// WithInstance loads the saga under an exclusive row lock, applies fn to
// it, persists the mutated instance with a version bump and commits. The
// whole sequence is one transaction: a step's state transition, reference
// update and retry counter always land together or not at all. If fn
// returns an error the transaction is rolled back and nothing is saved.
func (r *SagaRepo) WithInstance(ctx context.Context, sagaID string, fn func(saga *model.SagaInstance) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saga tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `SELECT ` + sagaColumns + ` FROM saga_instances WHERE saga_id = ? FOR UPDATE`
	saga, err := scanSaga(tx.QueryRowContext(ctx, q, sagaID))
	if err != nil {
		return err
	}

	if err := fn(saga); err != nil {
		return err
	}

	const upd = `UPDATE saga_instances
		SET state = ?, reservation_id = ?, authorization_id = ?, retry_count = ?,
			updated_at = ?, version = version + 1
		WHERE saga_id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, upd,
		string(saga.State), saga.ReservationID, saga.AuthorizationID, saga.RetryCount,
		time.Now().UTC(), saga.SagaID, saga.Version,
	)
	if err != nil {
		return fmt.Errorf("update saga: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit saga tx: %w", err)
	}
	committed = true
	return nil
}

// FindExpired returns the ids of all non-terminal instances whose deadline
// has passed. Terminal states are excluded so completed and cancelled
// sagas are never reprocessed.
func (r *SagaRepo) FindExpired(ctx context.Context, now time.Time) ([]string, error) {
	const q = `SELECT saga_id FROM saga_instances
		WHERE expires_at <= ? AND state NOT IN (?, ?, ?)`
	rows, err := r.db.QueryContext(ctx, q, now,
		string(model.StateBookingCompleted),
		string(model.StateBookingCancelled),
		string(model.StateCompensationFailed),
	)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// FindRetryable returns the ids of instances sitting in one of the given
// failed states with retry budget left and the deadline still ahead.
// Expired instances are deliberately skipped: the expiry sweep owns those,
// and handling them here too would process the same saga twice.
func (r *SagaRepo) FindRetryable(ctx context.Context, states []model.SagaState, now time.Time) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}
	q := `SELECT saga_id FROM saga_instances WHERE retry_count < max_retries AND expires_at > ? AND state IN (`
	args := []interface{}{now}
	for i, s := range states {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, string(s))
	}
	q += ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSaga(row rowScanner) (*model.SagaInstance, error) {
	var (
		saga    model.SagaInstance
		state   string
		payload []byte
		resID   sql.NullString
		authID  sql.NullString
	)
	err := row.Scan(
		&saga.SagaID, &state, &payload, &resID, &authID,
		&saga.RetryCount, &saga.MaxRetries,
		&saga.CreatedAt, &saga.UpdatedAt, &saga.ExpiresAt, &saga.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	saga.State = model.SagaState(state)
	saga.RequestPayload = payload
	if resID.Valid {
		v := resID.String
		saga.ReservationID = &v
	}
	if authID.Valid {
		v := authID.String
		saga.AuthorizationID = &v
	}
	return &saga, nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
