package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookingsaga/internal/command"
	"bookingsaga/internal/middleware"
)

func TestHotelClient_ReserveRoom_DecodesSuccess(t *testing.T) {
	var gotPath, gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCorrelation = r.Header.Get(middleware.HeaderCorrelationID)

		var cmd command.ReserveRoom
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		if cmd.SagaID != "saga-1" || cmd.IdempotencyKey != "saga-1-reserve-room" {
			t.Errorf("envelope = %+v", cmd.Envelope)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(command.OK(command.ReservationData{ReservationID: "res-1"}))
	}))
	t.Cleanup(server.Close)

	client := NewHotelClient(server.URL, time.Second)
	ctx := middleware.WithCorrelationID(context.Background(), "corr-1")
	result, err := client.ReserveRoom(ctx, command.ReserveRoom{
		Envelope: command.NewEnvelope("saga-1", command.OpReserveRoom),
		HotelID:  1,
	})
	if err != nil {
		t.Fatalf("ReserveRoom: %v", err)
	}
	if !result.Success || result.Data.ReservationID != "res-1" {
		t.Errorf("result = %+v", result)
	}
	if gotPath != "/v1/commands/reserve-room" {
		t.Errorf("path = %s", gotPath)
	}
	if gotCorrelation != "corr-1" {
		t.Errorf("correlation header = %q, want propagated id", gotCorrelation)
	}
}

func TestPaymentClient_BusinessFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(
			command.Fail[command.AuthorizationData]("Insufficient funds", command.CodeInsufficientFunds))
	}))
	t.Cleanup(server.Close)

	client := NewPaymentClient(server.URL, time.Second)
	result, err := client.AuthorizePayment(context.Background(), command.AuthorizePayment{
		Envelope: command.NewEnvelope("saga-1", command.OpAuthorizePayment),
	})
	if err != nil {
		t.Fatalf("business failure must not surface as a Go error: %v", err)
	}
	if result.Success {
		t.Fatal("expected Success=false")
	}
	if result.ErrorCode != command.CodeInsufficientFunds {
		t.Errorf("errorCode = %s", result.ErrorCode)
	}
}

func TestPostCommand_Non2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewHotelClient(server.URL, time.Second)
	_, err := client.ReleaseRoom(context.Background(), command.ReleaseRoom{
		Envelope:      command.NewEnvelope("saga-1", command.OpReleaseRoom),
		ReservationID: "res-1",
	})
	if err == nil {
		t.Fatal("expected transport error on 500")
	}
}

func TestPostCommand_UnreachableHost(t *testing.T) {
	client := NewPaymentClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.CancelPayment(context.Background(), command.CancelPayment{
		Envelope:        command.NewEnvelope("saga-1", command.OpCancelPayment),
		AuthorizationID: "auth-1",
	})
	if err == nil {
		t.Fatal("expected transport error when the participant is unreachable")
	}
}
