package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCorrelation_PropagatesIncomingID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr-in")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := Correlation()(func(c echo.Context) error {
		seen = CorrelationID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if seen != "corr-in" {
		t.Errorf("context id = %q, want corr-in", seen)
	}
	if got := rec.Header().Get(HeaderCorrelationID); got != "corr-in" {
		t.Errorf("response header = %q, want corr-in", got)
	}
}

func TestCorrelation_MintsIDWhenMissing(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := Correlation()(func(c echo.Context) error {
		seen = CorrelationID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if seen == "" {
		t.Fatal("a correlation id must be minted when none is supplied")
	}
	if got := rec.Header().Get(HeaderCorrelationID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
}

func TestCorrelationID_EmptyWithoutValue(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}
