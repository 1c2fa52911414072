package model

import "time"

// SagaState enumerates the lifecycle states of one booking saga.
type SagaState string

const (
	StateStarted                    SagaState = "STARTED"
	StateRoomReserved               SagaState = "ROOM_RESERVED"
	StatePaymentAuthorized          SagaState = "PAYMENT_AUTHORIZED"
	StateBookingCompleted           SagaState = "BOOKING_COMPLETED"
	StateRoomReservationFailed      SagaState = "ROOM_RESERVATION_FAILED"
	StatePaymentAuthorizationFailed SagaState = "PAYMENT_AUTHORIZATION_FAILED"
	StateCompensating               SagaState = "COMPENSATING"
	StateBookingCancelled           SagaState = "BOOKING_CANCELLED"
	StateCompensationCompleted      SagaState = "COMPENSATION_COMPLETED"
	StateCompensationFailed         SagaState = "COMPENSATION_FAILED"
)

// SagaTransitions is the declarative transition table for the saga state
// machine. A state missing from the map has no outgoing edges. Transitions
// that are not listed here must be treated as no-ops by callers, never as
// hard failures, so duplicate or out-of-order signals cannot corrupt a saga.
var SagaTransitions = map[SagaState][]SagaState{
	StateStarted:                    {StateRoomReserved, StateRoomReservationFailed, StateBookingCancelled},
	StateRoomReserved:               {StatePaymentAuthorized, StatePaymentAuthorizationFailed, StateCompensating},
	StatePaymentAuthorized:          {StateBookingCompleted},
	StateRoomReservationFailed:      {StateBookingCancelled},
	StatePaymentAuthorizationFailed: {StateBookingCancelled},
	StateCompensating:               {StateCompensationCompleted, StateCompensationFailed},
}

// TerminalStates are final for sweeper purposes: the expiry sweep never
// picks up a saga that already reached one of these.
var TerminalStates = []SagaState{
	StateBookingCompleted,
	StateBookingCancelled,
	StateCompensationFailed,
}

// CanTransitionTo reports whether the edge s -> next exists in the table.
func (s SagaState) CanTransitionTo(next SagaState) bool {
	for _, allowed := range SagaTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is final for sweeper purposes.
func (s SagaState) IsTerminal() bool {
	for _, t := range TerminalStates {
		if t == s {
			return true
		}
	}
	return false
}

// SagaInstance is the persisted record of one booking attempt.  It is
// created once by the orchestrator, mutated only under the saga row lock,
// and never deleted: terminal instances are retained for status queries
// and audit.
//
// Fields:
//  SagaID          – globally unique identifier, primary key, immutable.
//  State           – current saga state; mutated only via guarded transitions.
//  RequestPayload  – the original booking request as JSON, written once at
//                    creation.  Retried steps rebuild their commands from
//                    this snapshot so a retry always sees the same input.
//  ReservationID   – reservation reference, set once the reserve step succeeds.
//  AuthorizationID – payment reference, set once the authorize step succeeds.
//  RetryCount      – number of retries consumed so far.
//  MaxRetries      – fixed retry budget for this saga.
//  CreatedAt       – creation timestamp (UTC).
//  UpdatedAt       – last mutation timestamp (UTC).
//  ExpiresAt       – absolute deadline, fixed at creation and never extended.
//  Version         – optimistic concurrency token, incremented on every save.
type SagaInstance struct {
	SagaID          string    // saga_instances.saga_id
	State           SagaState // saga_instances.state
	RequestPayload  []byte    // saga_instances.request_payload
	ReservationID   *string   // saga_instances.reservation_id (nullable)
	AuthorizationID *string   // saga_instances.authorization_id (nullable)
	RetryCount      int       // saga_instances.retry_count
	MaxRetries      int       // saga_instances.max_retries
	CreatedAt       time.Time // saga_instances.created_at
	UpdatedAt       time.Time // saga_instances.updated_at
	ExpiresAt       time.Time // saga_instances.expires_at
	Version         int64     // saga_instances.version
}

// NewSagaInstance builds a STARTED instance with its expiry deadline fixed
// at now + timeout.
func NewSagaInstance(sagaID string, payload []byte, maxRetries int, timeout time.Duration) *SagaInstance {
	now := time.Now().UTC()
	return &SagaInstance{
		SagaID:         sagaID,
		State:          StateStarted,
		RequestPayload: payload,
		MaxRetries:     maxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(timeout),
	}
}

// CanRetry reports whether the retry budget still has room.
func (s *SagaInstance) CanRetry() bool { return s.RetryCount < s.MaxRetries }

// IncrementRetry consumes one unit of the retry budget.
func (s *SagaInstance) IncrementRetry() { s.RetryCount++ }

// IsExpired reports whether the absolute deadline has passed at the given
// instant.
func (s *SagaInstance) IsExpired(now time.Time) bool { return now.After(s.ExpiresAt) }
