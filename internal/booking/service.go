// Package booking exposes the client-facing view of the saga: intake of
// booking requests and polling of their status. Failures inside a saga
// never propagate here as errors; callers observe them through the
// persisted state.
package booking

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"bookingsaga/internal/middleware"
	"bookingsaga/internal/model"
	"bookingsaga/internal/saga"
)

// Starter is the slice of the orchestrator the intake path needs.
type Starter interface {
	StartBookingSaga(ctx context.Context, request model.BookingRequest) (string, error)
}

// Response is the wire shape of both intake and status replies.
type Response struct {
	BookingID     string `json:"bookingId,omitempty"`
	SagaID        string `json:"sagaId,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// statusMessages is the fixed human-readable mapping per saga state.
var statusMessages = map[model.SagaState]string{
	model.StateStarted:                    "Booking request received",
	model.StateRoomReserved:               "Room reserved, processing payment",
	model.StatePaymentAuthorized:          "Payment authorized, completing booking",
	model.StateBookingCompleted:           "Booking completed successfully",
	model.StateRoomReservationFailed:      "Room reservation failed",
	model.StatePaymentAuthorizationFailed: "Payment authorization failed",
	model.StateCompensating:               "Processing cancellation",
	model.StateBookingCancelled:           "Booking cancelled",
	model.StateCompensationCompleted:      "Cancellation completed",
	model.StateCompensationFailed:         "Cancellation failed - manual intervention required",
}

// Service coordinates intake and status queries. The redis client is
// optional: with no cache, status queries always hit the saga store.
type Service struct {
	orchestrator Starter
	store        saga.Store
	cache        *redis.Client
	cacheTTL     time.Duration
}

// NewService wires the booking service. cache may be nil.
func NewService(orchestrator Starter, store saga.Store, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &Service{orchestrator: orchestrator, store: store, cache: cache, cacheTTL: cacheTTL}
}

// CreateBooking starts a saga for the request and answers immediately
// with PROCESSING; progress is observed by polling the status query.
func (s *Service) CreateBooking(ctx context.Context, request model.BookingRequest) Response {
	correlationID := middleware.CorrelationID(ctx)
	log.Printf("[%s] booking: creating request for hotel %d, guest %q",
		correlationID, request.HotelID, request.GuestName)

	sagaID, err := s.orchestrator.StartBookingSaga(ctx, request)
	if err != nil {
		log.Printf("[%s] booking: failed to start saga: %v", correlationID, err)
		return Response{
			Status:        "FAILED",
			Message:       "Failed to process booking request",
			CorrelationID: correlationID,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		}
	}
	return Response{
		SagaID:        sagaID,
		Status:        "PROCESSING",
		Message:       "Booking is being processed",
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// GetBookingStatus returns a snapshot of the saga's state. Snapshots are
// cached briefly in redis keyed by saga id; the cache degrades to a plain
// store read when unavailable.
func (s *Service) GetBookingStatus(ctx context.Context, sagaID string) Response {
	if cached, ok := s.cachedStatus(ctx, sagaID); ok {
		return cached
	}

	instance, err := s.store.Get(ctx, sagaID)
	if err != nil {
		return Response{
			SagaID:    sagaID,
			Status:    "FAILED",
			Message:   "Booking not found",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	}

	response := Response{
		SagaID:    sagaID,
		Status:    string(instance.State),
		Message:   statusMessages[instance.State],
		Timestamp: instance.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if instance.ReservationID != nil {
		response.BookingID = *instance.ReservationID
	}
	s.cacheStatus(ctx, sagaID, response)
	return response
}

func (s *Service) cachedStatus(ctx context.Context, sagaID string) (Response, bool) {
	if s.cache == nil {
		return Response{}, false
	}
	raw, err := s.cache.Get(ctx, statusCacheKey(sagaID)).Bytes()
	if err != nil {
		return Response{}, false
	}
	var response Response
	if err := json.Unmarshal(raw, &response); err != nil {
		return Response{}, false
	}
	return response, true
}

func (s *Service) cacheStatus(ctx context.Context, sagaID string, response Response) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statusCacheKey(sagaID), raw, s.cacheTTL).Err(); err != nil {
		log.Printf("booking: status cache write failed for saga %s: %v", sagaID, err)
	}
}

func statusCacheKey(sagaID string) string { return "booking:status:" + sagaID }
