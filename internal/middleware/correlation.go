// Package middleware contains the HTTP middleware shared by the three
// services: correlation-id propagation and request rate limiting.
package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderCorrelationID is the header used to propagate a correlation id
// across service boundaries.
const HeaderCorrelationID = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationID extracts the correlation id carried by the context, or ""
// when none was set. The id lives in the request-scoped context, never in
// any global state, so concurrent requests cannot observe each other's id.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID returns a child context carrying the given id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// Correlation reads the correlation id from the incoming request or mints
// a new one, stores it in the request context and echoes it back in the
// response headers so clients can quote it when reporting problems.
func Correlation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderCorrelationID)
			if id == "" {
				id = uuid.NewString()
			}
			ctx := WithCorrelationID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(HeaderCorrelationID, id)
			return next(c)
		}
	}
}
