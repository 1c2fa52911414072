// Package queue defines message payloads exchanged over the message broker
// plus the publisher and audit consumer for booking lifecycle events.
package queue

// BookingEvent is published whenever a saga reaches a terminal state
// (completed, cancelled, or compensation failed). It carries enough for
// downstream consumers to log, notify, or trigger analytics without
// querying the saga store.
type BookingEvent struct {
	SagaID          string  `json:"sagaId"`
	State           string  `json:"state"`
	ReservationID   *string `json:"reservationId,omitempty"`
	AuthorizationID *string `json:"authorizationId,omitempty"`
	RetryCount      int     `json:"retryCount"`
	OccurredAt      string  `json:"occurredAt"`
}
