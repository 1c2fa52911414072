// Package payment implements the payment participant. Card validation is
// a local format check only; there is no external gateway. Both commands
// are idempotent: the ledger is consulted before any work and the outcome
// is recorded in the same transaction as the mutation.
package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"bookingsaga/internal/command"
	"bookingsaga/internal/model"
	"bookingsaga/internal/repository"
)

// Service handles authorize-payment and cancel-payment commands.
type Service struct {
	payments         *repository.PaymentRepo
	ledger           *repository.IdempotencyRepo
	failureRate      float64       // probability of a simulated transient failure
	insufficientRate float64       // probability of a simulated insufficient-funds decline
	delay            time.Duration // simulated processing delay
}

// NewService constructs the payment participant. failureRate simulates
// transient service failures; insufficientRate simulates declined cards.
func NewService(payments *repository.PaymentRepo, ledger *repository.IdempotencyRepo, failureRate, insufficientRate float64, delay time.Duration) *Service {
	if payments == nil || ledger == nil {
		panic("nil repository passed to payment.NewService")
	}
	return &Service{
		payments:         payments,
		ledger:           ledger,
		failureRate:      failureRate,
		insufficientRate: insufficientRate,
		delay:            delay,
	}
}

// AuthorizePayment validates the card, creates an AUTHORIZED record and
// stores the outcome in the ledger, all in one transaction. Only a masked
// card reference is persisted.
func (s *Service) AuthorizePayment(ctx context.Context, cmd command.AuthorizePayment) command.Result[command.AuthorizationData] {
	log.Printf("payment: processing authorize-payment for saga %s", cmd.SagaID)

	if rec, err := s.ledger.Get(ctx, cmd.IdempotencyKey); err == nil {
		log.Printf("payment: idempotent replay for key %s", cmd.IdempotencyKey)
		var cached command.Result[command.AuthorizationData]
		if jsonErr := json.Unmarshal(rec.Result, &cached); jsonErr == nil {
			return cached
		}
		log.Printf("payment: failed to decode recorded result for key %s", cmd.IdempotencyKey)
	}

	s.simulateDelay()
	if s.failureRate > 0 && rand.Float64() < s.failureRate {
		return command.Fail[command.AuthorizationData]("Simulated payment service failure", command.CodePaymentServiceError)
	}

	if !isValidCard(cmd.CardNumber) {
		return command.Fail[command.AuthorizationData]("Invalid card number", command.CodeInvalidCard)
	}
	if s.insufficientRate > 0 && rand.Float64() < s.insufficientRate {
		return command.Fail[command.AuthorizationData]("Insufficient funds", command.CodeInsufficientFunds)
	}

	tx, err := s.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return command.Fail[command.AuthorizationData]("Internal server error", command.CodeInternalError)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	auth := &model.PaymentAuthorization{
		AuthorizationID: uuid.NewString(),
		CardNumber:      maskCardNumber(cmd.CardNumber),
		CardHolderName:  cmd.CardHolderName,
		Amount:          cmd.Amount,
		Currency:        cmd.Currency,
		Status:          model.PaymentAuthorized,
	}
	if err := s.payments.CreateTx(ctx, tx, auth); err != nil {
		log.Printf("payment: create authorization failed for saga %s: %v", cmd.SagaID, err)
		return command.Fail[command.AuthorizationData]("Internal server error", command.CodeInternalError)
	}

	result := command.OK(command.AuthorizationData{
		AuthorizationID: auth.AuthorizationID,
		CardNumber:      auth.CardNumber,
		CardHolderName:  auth.CardHolderName,
		Amount:          auth.Amount,
		Currency:        auth.Currency,
		Status:          auth.Status,
		Version:         auth.Version,
	})
	if err := s.record(ctx, tx, cmd.IdempotencyKey, result); err != nil {
		return command.Fail[command.AuthorizationData]("Internal server error", command.CodeInternalError)
	}
	if err := tx.Commit(); err != nil {
		return command.Fail[command.AuthorizationData]("Internal server error", command.CodeInternalError)
	}
	committed = true

	log.Printf("payment: authorized %s for saga %s", auth.AuthorizationID, cmd.SagaID)
	return result
}

// CancelPayment is the compensating action for AuthorizePayment.
// Cancelling an already CANCELLED authorization is an idempotent success;
// any other non-AUTHORIZED status is an invalid-status failure. The status
// change uses an optimistic version check on top of the row lock.
func (s *Service) CancelPayment(ctx context.Context, cmd command.CancelPayment) command.Result[command.Void] {
	log.Printf("payment: processing cancel-payment for authorization %s", cmd.AuthorizationID)

	if rec, err := s.ledger.Get(ctx, cmd.IdempotencyKey); err == nil {
		log.Printf("payment: idempotent replay for key %s", cmd.IdempotencyKey)
		var cached command.Result[command.Void]
		if jsonErr := json.Unmarshal(rec.Result, &cached); jsonErr == nil {
			return cached
		}
		return command.Done()
	}

	s.simulateDelay()

	tx, err := s.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	auth, err := s.payments.GetForUpdateTx(ctx, tx, cmd.AuthorizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return command.Fail[command.Void]("Authorization not found", command.CodeAuthorizationNotFound)
	}
	if err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}

	switch auth.Status {
	case model.PaymentCancelled:
		log.Printf("payment: authorization already cancelled: %s", cmd.AuthorizationID)
	case model.PaymentAuthorized:
		err = s.payments.UpdateStatusTx(ctx, tx, auth.AuthorizationID, model.PaymentCancelled, auth.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Printf("payment: version conflict cancelling authorization %s", cmd.AuthorizationID)
			return command.Fail[command.Void]("Concurrent modification detected", command.CodeOptimisticLockFailure)
		}
		if err != nil {
			return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
		}
	default:
		return command.Fail[command.Void]("Cannot cancel authorization in status: "+auth.Status, command.CodeInvalidStatus)
	}

	result := command.Done()
	if err := s.record(ctx, tx, cmd.IdempotencyKey, result); err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	if err := tx.Commit(); err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	committed = true

	log.Printf("payment: cancelled %s", cmd.AuthorizationID)
	return result
}

func (s *Service) record(ctx context.Context, tx *sql.Tx, key string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("payment: marshal ledger outcome failed for key %s: %v", key, err)
		return err
	}
	if err := s.ledger.SaveTx(ctx, tx, key, payload); err != nil {
		log.Printf("payment: store ledger outcome failed for key %s: %v", key, err)
		return err
	}
	return nil
}

func (s *Service) simulateDelay() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

// isValidCard accepts exactly 16 digits. A real integration would talk to
// a gateway; the format check is all this participant needs.
func isValidCard(cardNumber string) bool {
	if len(cardNumber) != 16 {
		return false
	}
	for _, r := range cardNumber {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// maskCardNumber keeps only the last four digits.
func maskCardNumber(cardNumber string) string {
	if len(cardNumber) < 4 {
		return "****"
	}
	return "**** **** **** " + cardNumber[len(cardNumber)-4:]
}
