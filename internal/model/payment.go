package model

import "time"

// Payment authorization status values. AUTHORIZED can only move to
// CANCELLED; CANCELLED is terminal.
const (
	PaymentAuthorized = "AUTHORIZED"
	PaymentCancelled  = "CANCELLED"
)

// PaymentAuthorization records one accepted authorize-payment step.  Only
// a masked card reference is ever stored.
type PaymentAuthorization struct {
	AuthorizationID string    // payment_authorizations.authorization_id
	CardNumber      string    // payment_authorizations.card_number (masked)
	CardHolderName  string    // payment_authorizations.card_holder_name
	Amount          float64   // payment_authorizations.amount
	Currency        string    // payment_authorizations.currency
	Status          string    // payment_authorizations.status
	AuthorizedAt    time.Time // payment_authorizations.authorized_at
	UpdatedAt       time.Time // payment_authorizations.updated_at
	Version         int64     // payment_authorizations.version
}
