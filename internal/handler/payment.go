package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/command"
	"bookingsaga/internal/payment"
)

// PaymentHandler exposes the payment service's command endpoints, with
// the same envelope convention as the hotel side.
type PaymentHandler struct {
	service *payment.Service
}

// NewPaymentHandler constructs a PaymentHandler. The service must be non-nil.
func NewPaymentHandler(service *payment.Service) *PaymentHandler {
	if service == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{service: service}
}

// AuthorizePayment handles POST /v1/commands/authorize-payment.
func (h *PaymentHandler) AuthorizePayment(c echo.Context) error {
	var cmd command.AuthorizePayment
	if err := c.Bind(&cmd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid command body"})
	}
	if cmd.SagaID == "" || cmd.IdempotencyKey == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sagaId and idempotencyKey are required"})
	}
	return c.JSON(http.StatusOK, h.service.AuthorizePayment(c.Request().Context(), cmd))
}

// CancelPayment handles POST /v1/commands/cancel-payment.
func (h *PaymentHandler) CancelPayment(c echo.Context) error {
	var cmd command.CancelPayment
	if err := c.Bind(&cmd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid command body"})
	}
	if cmd.IdempotencyKey == "" || cmd.AuthorizationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotencyKey and authorizationId are required"})
	}
	return c.JSON(http.StatusOK, h.service.CancelPayment(c.Request().Context(), cmd))
}
