package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/command"
	"bookingsaga/internal/hotel"
)

// HotelHandler exposes the hotel service's command endpoints. Business
// failures are answered with 200 and a failed Result envelope; only a
// malformed request earns a 400. The orchestrator treats any non-2xx as a
// transport error, so the envelope is the single source of truth for
// business outcomes.
type HotelHandler struct {
	service *hotel.Service
}

// NewHotelHandler constructs a HotelHandler. The service must be non-nil.
func NewHotelHandler(service *hotel.Service) *HotelHandler {
	if service == nil {
		panic("nil service passed to NewHotelHandler")
	}
	return &HotelHandler{service: service}
}

// ReserveRoom handles POST /v1/commands/reserve-room.
func (h *HotelHandler) ReserveRoom(c echo.Context) error {
	var cmd command.ReserveRoom
	if err := c.Bind(&cmd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid command body"})
	}
	if cmd.SagaID == "" || cmd.IdempotencyKey == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sagaId and idempotencyKey are required"})
	}
	return c.JSON(http.StatusOK, h.service.ReserveRoom(c.Request().Context(), cmd))
}

// ReleaseRoom handles POST /v1/commands/release-room.
func (h *HotelHandler) ReleaseRoom(c echo.Context) error {
	var cmd command.ReleaseRoom
	if err := c.Bind(&cmd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid command body"})
	}
	if cmd.IdempotencyKey == "" || cmd.ReservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotencyKey and reservationId are required"})
	}
	return c.JSON(http.StatusOK, h.service.ReleaseRoom(c.Request().Context(), cmd))
}
