package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookingsaga/internal/middleware"
	"bookingsaga/internal/model"
	"bookingsaga/internal/repository"
)

type starterStub struct {
	sagaID  string
	err     error
	started []model.BookingRequest
}

func (s *starterStub) StartBookingSaga(ctx context.Context, request model.BookingRequest) (string, error) {
	s.started = append(s.started, request)
	return s.sagaID, s.err
}

// storeStub implements just enough of saga.Store for status queries.
type storeStub struct {
	sagas map[string]*model.SagaInstance
}

func (s *storeStub) Create(ctx context.Context, saga *model.SagaInstance) error { return nil }

func (s *storeStub) Get(ctx context.Context, sagaID string) (*model.SagaInstance, error) {
	saga, ok := s.sagas[sagaID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return saga, nil
}

func (s *storeStub) WithInstance(ctx context.Context, sagaID string, fn func(saga *model.SagaInstance) error) error {
	return nil
}

func (s *storeStub) FindExpired(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (s *storeStub) FindRetryable(ctx context.Context, states []model.SagaState, now time.Time) ([]string, error) {
	return nil, nil
}

func TestCreateBooking_Accepted(t *testing.T) {
	starter := &starterStub{sagaID: "saga-1"}
	service := NewService(starter, &storeStub{}, nil, 0)

	ctx := middleware.WithCorrelationID(context.Background(), "corr-1")
	response := service.CreateBooking(ctx, model.BookingRequest{HotelID: 1, GuestName: "Ada Lovelace"})

	if response.Status != "PROCESSING" {
		t.Errorf("status = %s, want PROCESSING", response.Status)
	}
	if response.SagaID != "saga-1" {
		t.Errorf("sagaId = %s", response.SagaID)
	}
	if response.CorrelationID != "corr-1" {
		t.Errorf("correlationId = %s", response.CorrelationID)
	}
	if len(starter.started) != 1 {
		t.Errorf("started = %d sagas, want 1", len(starter.started))
	}
}

func TestCreateBooking_StartFailure(t *testing.T) {
	starter := &starterStub{err: errors.New("db down")}
	service := NewService(starter, &storeStub{}, nil, 0)

	response := service.CreateBooking(context.Background(), model.BookingRequest{HotelID: 1})

	if response.Status != "FAILED" {
		t.Errorf("status = %s, want FAILED", response.Status)
	}
	if response.Message != "Failed to process booking request" {
		t.Errorf("message = %q", response.Message)
	}
}

func TestGetBookingStatus_KnownSaga(t *testing.T) {
	reservationID := "res-1"
	store := &storeStub{sagas: map[string]*model.SagaInstance{
		"saga-1": {
			SagaID:        "saga-1",
			State:         model.StateRoomReserved,
			ReservationID: &reservationID,
			UpdatedAt:     time.Now().UTC(),
		},
	}}
	service := NewService(&starterStub{}, store, nil, 0)

	response := service.GetBookingStatus(context.Background(), "saga-1")

	if response.Status != string(model.StateRoomReserved) {
		t.Errorf("status = %s", response.Status)
	}
	if response.Message != "Room reserved, processing payment" {
		t.Errorf("message = %q", response.Message)
	}
	if response.BookingID != "res-1" {
		t.Errorf("bookingId = %s, want the reservation reference", response.BookingID)
	}
}

func TestGetBookingStatus_NotFound(t *testing.T) {
	service := NewService(&starterStub{}, &storeStub{}, nil, 0)

	response := service.GetBookingStatus(context.Background(), "saga-missing")

	if response.Status != "FAILED" {
		t.Errorf("status = %s, want FAILED", response.Status)
	}
	if response.Message != "Booking not found" {
		t.Errorf("message = %q", response.Message)
	}
}

func TestStatusMessages_CoverEveryState(t *testing.T) {
	states := []model.SagaState{
		model.StateStarted, model.StateRoomReserved, model.StatePaymentAuthorized,
		model.StateBookingCompleted, model.StateRoomReservationFailed,
		model.StatePaymentAuthorizationFailed, model.StateCompensating,
		model.StateBookingCancelled, model.StateCompensationCompleted,
		model.StateCompensationFailed,
	}
	for _, s := range states {
		if statusMessages[s] == "" {
			t.Errorf("no status message for state %s", s)
		}
	}
	if statusMessages[model.StateBookingCompleted] != "Booking completed successfully" {
		t.Errorf("completed message = %q", statusMessages[model.StateBookingCompleted])
	}
	if statusMessages[model.StateCompensationFailed] != "Cancellation failed - manual intervention required" {
		t.Errorf("compensation-failed message = %q", statusMessages[model.StateCompensationFailed])
	}
}
