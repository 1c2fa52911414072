// Package router defines how HTTP routes are registered for each of the
// three services. Every service carries the correlation middleware and a
// health check; the booking intake additionally sits behind the rate
// limiter.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"bookingsaga/internal/config"
	"bookingsaga/internal/handler"
	"bookingsaga/internal/middleware"
)

// RegisterBooking wires the booking service routes: intake, status query
// and health. rdb may be nil, which disables rate limiting.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	e.Use(middleware.Correlation())
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1/bookings")
	g.POST("", h.CreateBooking, middleware.RateLimit(rl, rdb))
	g.GET("/:sagaId", h.GetBookingStatus)
}

// RegisterHotel wires the hotel service command routes and health.
func RegisterHotel(e *echo.Echo, h *handler.HotelHandler) {
	e.Use(middleware.Correlation())
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1/commands")
	g.POST("/reserve-room", h.ReserveRoom)
	g.POST("/release-room", h.ReleaseRoom)
}

// RegisterPayment wires the payment service command routes and health.
func RegisterPayment(e *echo.Echo, h *handler.PaymentHandler) {
	e.Use(middleware.Correlation())
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1/commands")
	g.POST("/authorize-payment", h.AuthorizePayment)
	g.POST("/cancel-payment", h.CancelPayment)
}
