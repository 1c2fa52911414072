package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/booking"
	"bookingsaga/internal/model"
)

// BookingHandler exposes the booking intake and status endpoints. The
// intake validates the request shape up front so the saga only ever
// snapshots well-formed payloads; everything downstream of validation is
// asynchronous and observed through the status endpoint.
type BookingHandler struct {
	service *booking.Service
}

// NewBookingHandler constructs a BookingHandler. The service must be non-nil.
func NewBookingHandler(service *booking.Service) *BookingHandler {
	if service == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{service: service}
}

// CreateBooking handles POST /v1/bookings. It validates the payload,
// starts a saga and answers 202 Accepted with the saga id; the booking
// outcome is polled via GetBookingStatus. Validation errors earn a 400
// with a single error message.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var request model.BookingRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := validateBookingRequest(request); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	response := h.service.CreateBooking(c.Request().Context(), request)
	if response.Status == "FAILED" {
		return c.JSON(http.StatusInternalServerError, response)
	}
	return c.JSON(http.StatusAccepted, response)
}

// GetBookingStatus handles GET /v1/bookings/:sagaId. The response is
// always a snapshot of the persisted state and never blocks on saga
// completion. An unknown saga id earns a 404.
func (h *BookingHandler) GetBookingStatus(c echo.Context) error {
	sagaID := c.Param("sagaId")
	if sagaID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "saga id is required"})
	}
	response := h.service.GetBookingStatus(c.Request().Context(), sagaID)
	if response.Message == "Booking not found" {
		return c.JSON(http.StatusNotFound, response)
	}
	return c.JSON(http.StatusOK, response)
}

// validateBookingRequest checks the intake payload and returns an error
// message, or "" when the request is acceptable.
func validateBookingRequest(r model.BookingRequest) string {
	if r.HotelID <= 0 {
		return "hotelId is required"
	}
	if r.RoomType == "" {
		return "roomType is required"
	}
	if r.GuestName == "" {
		return "guestName is required"
	}
	if r.RoomPrice <= 0 {
		return "roomPrice must be positive"
	}
	checkIn, err := time.Parse("2006-01-02", r.CheckIn)
	if err != nil {
		return "checkIn must be YYYY-MM-DD"
	}
	checkOut, err := time.Parse("2006-01-02", r.CheckOut)
	if err != nil {
		return "checkOut must be YYYY-MM-DD"
	}
	if !checkIn.Before(checkOut) {
		return "checkIn must be before checkOut"
	}
	if !digits(r.CardNumber, 16, 16) {
		return "cardNumber must be 16 digits"
	}
	if r.CardHolderName == "" {
		return "cardHolderName is required"
	}
	if !validExpiryMonth(r.ExpiryMonth) {
		return "expiryMonth must be 01-12"
	}
	if !digits(r.ExpiryYear, 4, 4) {
		return "expiryYear must be 4 digits"
	}
	if !digits(r.CVV, 3, 4) {
		return "cvv must be 3 or 4 digits"
	}
	return ""
}

func digits(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validExpiryMonth(s string) bool {
	if !digits(s, 2, 2) {
		return false
	}
	return s >= "01" && s <= "12"
}
