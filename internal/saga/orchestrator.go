// Package saga contains the booking saga orchestrator and the background
// sweeper that re-drives stalled instances. The orchestrator sequences the
// forward steps (reserve room, authorize payment), decides when to
// compensate, and owns every mutation of a saga instance. One step runs
// under the saga row lock as a single transaction, so the original request
// path and a later sweeper pass can safely re-enter the same instance.
package saga

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"bookingsaga/internal/command"
	"bookingsaga/internal/model"
	"bookingsaga/internal/queue"
)

// Store is the persistence contract the orchestrator needs. WithInstance
// must load the instance under an exclusive row lock, apply the callback
// and persist the mutated instance atomically with a version bump.
type Store interface {
	Create(ctx context.Context, saga *model.SagaInstance) error
	Get(ctx context.Context, sagaID string) (*model.SagaInstance, error)
	WithInstance(ctx context.Context, sagaID string, fn func(saga *model.SagaInstance) error) error
	FindExpired(ctx context.Context, now time.Time) ([]string, error)
	FindRetryable(ctx context.Context, states []model.SagaState, now time.Time) ([]string, error)
}

// HotelClient is the reservation participant as seen by the orchestrator.
// A returned error means the call itself failed (network, timeout,
// serialization); business failures come back inside the Result envelope.
type HotelClient interface {
	ReserveRoom(ctx context.Context, cmd command.ReserveRoom) (command.Result[command.ReservationData], error)
	ReleaseRoom(ctx context.Context, cmd command.ReleaseRoom) (command.Result[command.Void], error)
}

// PaymentClient is the payment participant as seen by the orchestrator.
type PaymentClient interface {
	AuthorizePayment(ctx context.Context, cmd command.AuthorizePayment) (command.Result[command.AuthorizationData], error)
	CancelPayment(ctx context.Context, cmd command.CancelPayment) (command.Result[command.Void], error)
}

// EventPublisher receives a booking lifecycle event whenever a saga
// reaches a terminal state. Publishing is best-effort.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event queue.BookingEvent) error
}

// step identifies the next unit of work in the resumption loop. Keeping
// the chaining explicit (instead of one step calling the next) lets the
// request path and the sweeper's retry path share the same loop.
type step int

const (
	stepDone step = iota
	stepReserve
	stepAuthorize
	stepCompensate
)

const compensationReason = "Booking saga compensation"

// Orchestrator drives booking sagas through the state machine.
type Orchestrator struct {
	store      Store
	hotel      HotelClient
	payment    PaymentClient
	publisher  EventPublisher // optional
	maxRetries int
	timeout    time.Duration
}

// NewOrchestrator wires an orchestrator. publisher may be nil; maxRetries
// and timeout fall back to the defaults of 3 attempts and 30 minutes when
// non-positive.
func NewOrchestrator(store Store, hotel HotelClient, payment PaymentClient, publisher EventPublisher, maxRetries int, timeout time.Duration) *Orchestrator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Orchestrator{
		store:      store,
		hotel:      hotel,
		payment:    payment,
		publisher:  publisher,
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

// StartBookingSaga persists a STARTED instance with a snapshot of the
// request and synchronously drives the first step. The saga id is returned
// as soon as the instance exists; everything after that is observable only
// through the status query.
func (o *Orchestrator) StartBookingSaga(ctx context.Context, request model.BookingRequest) (string, error) {
	sagaID := uuid.NewString()
	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	saga := model.NewSagaInstance(sagaID, payload, o.maxRetries, o.timeout)
	if err := o.store.Create(ctx, saga); err != nil {
		return "", err
	}
	log.Printf("saga %s: started (hotel=%d guest=%q)", sagaID, request.HotelID, request.GuestName)

	o.run(ctx, sagaID, stepReserve)
	return sagaID, nil
}

// RetrySaga is the re-entrant recovery entry point used by the sweeper.
// It re-dispatches the saga to the step matching its current state, or
// forces compensation when the retry budget is exhausted. States outside
// the dispatch table are ignored.
func (o *Orchestrator) RetrySaga(ctx context.Context, sagaID string) {
	entry := stepDone
	err := o.store.WithInstance(ctx, sagaID, func(saga *model.SagaInstance) error {
		switch saga.State {
		case model.StateStarted, model.StateRoomReservationFailed:
			entry = stepReserve
		case model.StateRoomReserved, model.StatePaymentAuthorizationFailed:
			entry = stepAuthorize
		case model.StateCompensating, model.StateCompensationFailed:
			entry = stepCompensate
		default:
			log.Printf("saga %s: cannot retry in state %s", sagaID, saga.State)
			return nil
		}
		if !saga.CanRetry() {
			log.Printf("saga %s: retry budget exhausted (%d/%d), forcing compensation",
				sagaID, saga.RetryCount, saga.MaxRetries)
			entry = stepCompensate
			return nil
		}
		saga.IncrementRetry()
		log.Printf("saga %s: retrying step for state %s (attempt %d/%d)",
			sagaID, saga.State, saga.RetryCount, saga.MaxRetries)
		return nil
	})
	if err != nil {
		log.Printf("saga %s: retry load failed: %v", sagaID, err)
		return
	}
	o.run(ctx, sagaID, entry)
}

// run is the resumption loop shared by the request path and the sweeper.
// Each step commits its own transaction and names its successor; the loop
// ends when a step leaves the saga parked (terminal, or waiting for the
// sweeper). A terminal state is announced on the event publisher.
func (o *Orchestrator) run(ctx context.Context, sagaID string, next step) {
	for next != stepDone {
		switch next {
		case stepReserve:
			next = o.executeReserveRoom(ctx, sagaID)
		case stepAuthorize:
			next = o.executeAuthorizePayment(ctx, sagaID)
		case stepCompensate:
			next = o.executeCompensation(ctx, sagaID)
		}
	}
	o.publishIfTerminal(ctx, sagaID)
}

// executeReserveRoom performs the reserve-room forward step. On business
// failure nothing was reserved, so the saga ends without compensation.
func (o *Orchestrator) executeReserveRoom(ctx context.Context, sagaID string) step {
	next := stepDone
	err := o.store.WithInstance(ctx, sagaID, func(saga *model.SagaInstance) error {
		var request model.BookingRequest
		if err := json.Unmarshal(saga.RequestPayload, &request); err != nil {
			next = o.handleStepError(saga, err)
			return nil
		}

		cmd := command.ReserveRoom{
			Envelope:  command.NewEnvelope(saga.SagaID, command.OpReserveRoom),
			HotelID:   request.HotelID,
			RoomType:  request.RoomType,
			CheckIn:   request.CheckIn,
			CheckOut:  request.CheckOut,
			GuestName: request.GuestName,
			RoomPrice: request.RoomPrice,
		}

		result, err := o.hotel.ReserveRoom(ctx, cmd)
		if err != nil {
			log.Printf("saga %s: reserve-room call failed: %v", saga.SagaID, err)
			next = o.handleStepError(saga, err)
			return nil
		}

		if result.Success {
			o.transition(saga, model.StateRoomReserved)
			saga.ReservationID = &result.Data.ReservationID
			next = stepAuthorize
			return nil
		}

		log.Printf("saga %s: room reservation failed: %s (%s)",
			saga.SagaID, result.ErrorMessage, result.ErrorCode)
		o.transition(saga, model.StateRoomReservationFailed)
		o.transition(saga, model.StateBookingCancelled)
		return nil
	})
	if err != nil {
		log.Printf("saga %s: reserve-room step not committed: %v", sagaID, err)
		return stepDone
	}
	return next
}

// executeAuthorizePayment performs the authorize-payment forward step. A
// business failure starts compensation immediately; only transport errors
// consume retry budget and park the saga for the sweeper.
func (o *Orchestrator) executeAuthorizePayment(ctx context.Context, sagaID string) step {
	next := stepDone
	err := o.store.WithInstance(ctx, sagaID, func(saga *model.SagaInstance) error {
		var request model.BookingRequest
		if err := json.Unmarshal(saga.RequestPayload, &request); err != nil {
			next = o.handleStepError(saga, err)
			return nil
		}

		cmd := command.AuthorizePayment{
			Envelope:       command.NewEnvelope(saga.SagaID, command.OpAuthorizePayment),
			CardNumber:     request.CardNumber,
			CardHolderName: request.CardHolderName,
			ExpiryMonth:    request.ExpiryMonth,
			ExpiryYear:     request.ExpiryYear,
			CVV:            request.CVV,
			Amount:         request.RoomPrice,
			Currency:       "USD",
		}

		result, err := o.payment.AuthorizePayment(ctx, cmd)
		if err != nil {
			log.Printf("saga %s: authorize-payment call failed: %v", saga.SagaID, err)
			next = o.handleStepError(saga, err)
			return nil
		}

		if result.Success {
			o.transition(saga, model.StatePaymentAuthorized)
			saga.AuthorizationID = &result.Data.AuthorizationID
			o.transition(saga, model.StateBookingCompleted)
			log.Printf("saga %s: booking completed", saga.SagaID)
			return nil
		}

		log.Printf("saga %s: payment authorization failed: %s (%s)",
			saga.SagaID, result.ErrorMessage, result.ErrorCode)
		o.transition(saga, model.StatePaymentAuthorizationFailed)
		next = stepCompensate
		return nil
	})
	if err != nil {
		log.Printf("saga %s: authorize-payment step not committed: %v", sagaID, err)
		return stepDone
	}
	return next
}

// executeCompensation undoes whichever forward steps left a reference on
// the saga. Both compensating calls are attempted even if one fails; any
// failure parks the saga in COMPENSATION_FAILED for manual remediation.
func (o *Orchestrator) executeCompensation(ctx context.Context, sagaID string) step {
	err := o.store.WithInstance(ctx, sagaID, func(saga *model.SagaInstance) error {
		o.transition(saga, model.StateCompensating)

		success := true

		if saga.AuthorizationID != nil {
			cmd := command.CancelPayment{
				Envelope:        command.NewEnvelope(saga.SagaID, command.OpCancelPayment),
				AuthorizationID: *saga.AuthorizationID,
				Reason:          compensationReason,
			}
			result, err := o.payment.CancelPayment(ctx, cmd)
			if err != nil {
				log.Printf("saga %s: cancel-payment call failed: %v", saga.SagaID, err)
				success = false
			} else if !result.Success {
				log.Printf("saga %s: payment cancellation failed: %s (%s)",
					saga.SagaID, result.ErrorMessage, result.ErrorCode)
				success = false
			}
		}

		if saga.ReservationID != nil {
			cmd := command.ReleaseRoom{
				Envelope:      command.NewEnvelope(saga.SagaID, command.OpReleaseRoom),
				ReservationID: *saga.ReservationID,
				Reason:        compensationReason,
			}
			result, err := o.hotel.ReleaseRoom(ctx, cmd)
			if err != nil {
				log.Printf("saga %s: release-room call failed: %v", saga.SagaID, err)
				success = false
			} else if !result.Success {
				log.Printf("saga %s: room release failed: %s (%s)",
					saga.SagaID, result.ErrorMessage, result.ErrorCode)
				success = false
			}
		}

		if success {
			o.transition(saga, model.StateCompensationCompleted)
			o.transition(saga, model.StateBookingCancelled)
			log.Printf("saga %s: compensation completed", saga.SagaID)
		} else {
			o.transition(saga, model.StateCompensationFailed)
			log.Printf("saga %s: compensation failed, manual intervention required", saga.SagaID)
		}
		return nil
	})
	if err != nil {
		log.Printf("saga %s: compensation step not committed: %v", sagaID, err)
	}
	return stepDone
}

// transition applies a guarded state change. An edge missing from the
// transition table is logged and ignored so duplicate or out-of-order
// signals never corrupt the saga.
func (o *Orchestrator) transition(saga *model.SagaInstance, next model.SagaState) {
	if saga.State.CanTransitionTo(next) {
		log.Printf("saga %s: %s -> %s", saga.SagaID, saga.State, next)
		saga.State = next
		return
	}
	log.Printf("saga %s: invalid transition %s -> %s ignored", saga.SagaID, saga.State, next)
}

// handleStepError absorbs an unexpected step failure. With budget left the
// retry counter is bumped and the saga parked for the sweeper; otherwise
// compensation is forced immediately.
func (o *Orchestrator) handleStepError(saga *model.SagaInstance, err error) step {
	if saga.CanRetry() {
		saga.IncrementRetry()
		log.Printf("saga %s: step error, will retry later (attempt %d/%d): %v",
			saga.SagaID, saga.RetryCount, saga.MaxRetries, err)
		return stepDone
	}
	log.Printf("saga %s: step error with retries exhausted, starting compensation: %v", saga.SagaID, err)
	return stepCompensate
}

func (o *Orchestrator) publishIfTerminal(ctx context.Context, sagaID string) {
	if o.publisher == nil {
		return
	}
	saga, err := o.store.Get(ctx, sagaID)
	if err != nil || !saga.State.IsTerminal() {
		return
	}
	event := queue.BookingEvent{
		SagaID:          saga.SagaID,
		State:           string(saga.State),
		ReservationID:   saga.ReservationID,
		AuthorizationID: saga.AuthorizationID,
		RetryCount:      saga.RetryCount,
		OccurredAt:      saga.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if err := o.publisher.PublishBookingEvent(ctx, event); err != nil {
		log.Printf("saga %s: publish terminal event failed: %v", sagaID, err)
	}
}
