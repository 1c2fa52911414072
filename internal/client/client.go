// Package client implements the HTTP clients the orchestrator uses to
// reach the two participant services. Commands are posted as JSON and
// answers decoded from the shared Result envelope. Every call carries a
// timeout; a timeout is just another transport error to the orchestrator
// and consumes retry budget like any other step failure. Business
// failures never surface as Go errors here, they stay in the envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookingsaga/internal/command"
	"bookingsaga/internal/middleware"
)

const defaultTimeout = 5 * time.Second

// postCommand posts one command to a participant endpoint and decodes the
// Result envelope. Any non-2xx status is a transport error: participants
// always answer business failures with 200 and Success=false.
func postCommand[T any](ctx context.Context, httpClient *http.Client, url string, payload any) (command.Result[T], error) {
	var result command.Result[T]

	body, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("encode command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := middleware.CorrelationID(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("call %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("call %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode response from %s: %w", url, err)
	}
	return result, nil
}

// HotelClient talks to the hotel service's command endpoints.
type HotelClient struct {
	base string
	http *http.Client
}

// NewHotelClient builds a client for the hotel service at baseURL.
func NewHotelClient(baseURL string, timeout time.Duration) *HotelClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HotelClient{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// ReserveRoom posts a reserve-room command.
func (c *HotelClient) ReserveRoom(ctx context.Context, cmd command.ReserveRoom) (command.Result[command.ReservationData], error) {
	return postCommand[command.ReservationData](ctx, c.http, c.base+"/v1/commands/reserve-room", cmd)
}

// ReleaseRoom posts a release-room command.
func (c *HotelClient) ReleaseRoom(ctx context.Context, cmd command.ReleaseRoom) (command.Result[command.Void], error) {
	return postCommand[command.Void](ctx, c.http, c.base+"/v1/commands/release-room", cmd)
}

// PaymentClient talks to the payment service's command endpoints.
type PaymentClient struct {
	base string
	http *http.Client
}

// NewPaymentClient builds a client for the payment service at baseURL.
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PaymentClient{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// AuthorizePayment posts an authorize-payment command.
func (c *PaymentClient) AuthorizePayment(ctx context.Context, cmd command.AuthorizePayment) (command.Result[command.AuthorizationData], error) {
	return postCommand[command.AuthorizationData](ctx, c.http, c.base+"/v1/commands/authorize-payment", cmd)
}

// CancelPayment posts a cancel-payment command.
func (c *PaymentClient) CancelPayment(ctx context.Context, cmd command.CancelPayment) (command.Result[command.Void], error) {
	return postCommand[command.Void](ctx, c.http, c.base+"/v1/commands/cancel-payment", cmd)
}
