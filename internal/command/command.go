// Package command defines the wire-level contract between the booking
// orchestrator and the two participant services. Commands travel as JSON
// documents; every command carries the saga id, a deterministic idempotency
// key and a timestamp in addition to its operation-specific fields.
package command

import "time"

// Operation names used to derive idempotency keys. Forward steps and their
// compensations each have a fixed name so a retried step always reuses the
// key of its first delivery.
const (
	OpReserveRoom      = "reserve-room"
	OpReleaseRoom      = "release-room"
	OpAuthorizePayment = "authorize-payment"
	OpCancelPayment    = "cancel-payment"
)

// Key derives the idempotency key for one logical step of a saga. The
// derivation is deterministic on purpose: a retry of the same step reuses
// the same key, which is what makes the participants' ledgers deduplicate
// it. The ledger therefore cannot tell a retry from a duplicate delivery,
// and does not need to.
func Key(sagaID, operation string) string {
	return sagaID + "-" + operation
}

// Envelope carries the fields common to every saga command.
type Envelope struct {
	SagaID         string    `json:"sagaId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewEnvelope builds the envelope for one step of a saga, stamping it with
// the step's deterministic idempotency key.
func NewEnvelope(sagaID, operation string) Envelope {
	return Envelope{
		SagaID:         sagaID,
		IdempotencyKey: Key(sagaID, operation),
		Timestamp:      time.Now().UTC(),
	}
}

// ReserveRoom asks the hotel service to reserve a room for a date range.
type ReserveRoom struct {
	Envelope
	HotelID   int64   `json:"hotelId"`
	RoomType  string  `json:"roomType"`
	CheckIn   string  `json:"checkIn"`
	CheckOut  string  `json:"checkOut"`
	GuestName string  `json:"guestName"`
	RoomPrice float64 `json:"roomPrice"`
}

// ReleaseRoom compensates a previously successful ReserveRoom.
type ReleaseRoom struct {
	Envelope
	ReservationID string `json:"reservationId"`
	Reason        string `json:"reason"`
}

// AuthorizePayment asks the payment service to authorize the booking amount.
type AuthorizePayment struct {
	Envelope
	CardNumber     string  `json:"cardNumber"`
	CardHolderName string  `json:"cardHolderName"`
	ExpiryMonth    string  `json:"expiryMonth"`
	ExpiryYear     string  `json:"expiryYear"`
	CVV            string  `json:"cvv"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

// CancelPayment compensates a previously successful AuthorizePayment.
type CancelPayment struct {
	Envelope
	AuthorizationID string `json:"authorizationId"`
	Reason          string `json:"reason"`
}
