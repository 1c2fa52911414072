// Package hotel implements the reservation participant. Both of its
// commands are idempotent: the ledger is consulted before any work and the
// outcome is recorded in the same transaction as the mutation, so a
// duplicate delivery of a command never repeats its side effect.
package hotel

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

const dateLayout = "2006-01-02"

// Service handles reserve-room and release-room commands against the
// hotel inventory.
type Service struct {
	reservations *repository.ReservationRepo
	ledger       *repository.IdempotencyRepo
	failureRate  float64       // probability of a simulated transient failure
	delay        time.Duration // simulated processing delay
}

// NewService constructs the reservation participant. failureRate is the
// probability in [0,1) that a reserve command fails with a simulated
// transient error; delay stalls each command to exercise timeouts.
func NewService(reservations *repository.ReservationRepo, ledger *repository.IdempotencyRepo, failureRate float64, delay time.Duration) *Service {
	if reservations == nil || ledger == nil {
		panic("nil repository passed to hotel.NewService")
	}
	return &Service{
		reservations: reservations,
		ledger:       ledger,
		failureRate:  failureRate,
		delay:        delay,
	}
}

// ReserveRoom reserves a room for the command's date range. Exclusivity is
// enforced by the room_nights uniqueness constraint: when a concurrent or
// earlier reservation already occupies one of the nights, the insert fails
// and the command returns ROOM_NOT_AVAILABLE. The reservation row, its
// occupancy rows and the ledger entry commit as one transaction.
func (s *Service) ReserveRoom(ctx context.Context, cmd command.ReserveRoom) command.Result[command.ReservationData] {
	log.Printf("hotel: processing reserve-room for saga %s", cmd.SagaID)

	if cached, ok := s.replay(ctx, cmd.IdempotencyKey); ok {
		return cached
	}

	s.simulateDelay()
	if s.shouldSimulateFailure() {
		return command.Fail[command.ReservationData]("Simulated hotel service failure", command.CodeHotelServiceError)
	}

	nights, err := expandNights(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return command.Fail[command.ReservationData](err.Error(), command.CodeInternalError)
	}

	tx, err := s.reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return command.Fail[command.ReservationData]("Internal server error", command.CodeInternalError)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	reservation := &model.Reservation{
		ReservationID: uuid.NewString(),
		HotelID:       cmd.HotelID,
		RoomType:      cmd.RoomType,
		CheckIn:       cmd.CheckIn,
		CheckOut:      cmd.CheckOut,
		GuestName:     cmd.GuestName,
		RoomPrice:     cmd.RoomPrice,
		Status:        model.ReservationPending,
	}
	if err := s.reservations.CreateTx(ctx, tx, reservation); err != nil {
		log.Printf("hotel: create reservation failed for saga %s: %v", cmd.SagaID, err)
		return command.Fail[command.ReservationData]("Internal server error", command.CodeInternalError)
	}

	err = s.reservations.AddNightsBulkTx(ctx, tx, cmd.HotelID, cmd.RoomType, reservation.ReservationID, nights)
	if errors.Is(err, repository.ErrNightTaken) {
		log.Printf("hotel: room not available for saga %s", cmd.SagaID)
		return command.Fail[command.ReservationData]("Room not available for the requested dates", command.CodeRoomNotAvailable)
	}
	if err != nil {
		log.Printf("hotel: insert room nights failed for saga %s: %v", cmd.SagaID, err)
		return command.Fail[command.ReservationData]("Internal server error", command.CodeInternalError)
	}

	result := command.OK(command.ReservationData{
		ReservationID: reservation.ReservationID,
		HotelID:       reservation.HotelID,
		RoomType:      reservation.RoomType,
		CheckIn:       reservation.CheckIn,
		CheckOut:      reservation.CheckOut,
		GuestName:     reservation.GuestName,
		RoomPrice:     reservation.RoomPrice,
		Status:        reservation.Status,
		Version:       reservation.Version,
	})
	if err := s.record(ctx, tx, cmd.IdempotencyKey, result); err != nil {
		return command.Fail[command.ReservationData]("Internal server error", command.CodeInternalError)
	}
	if err := tx.Commit(); err != nil {
		return command.Fail[command.ReservationData]("Internal server error", command.CodeInternalError)
	}
	committed = true

	log.Printf("hotel: room reserved %s for saga %s", reservation.ReservationID, cmd.SagaID)
	return result
}

// ReleaseRoom is the compensating action for ReserveRoom. Releasing an
// already RELEASED reservation is an idempotent success; the occupancy
// rows are removed so the nights become bookable again. The status change
// uses an optimistic version check on top of the row lock.
func (s *Service) ReleaseRoom(ctx context.Context, cmd command.ReleaseRoom) command.Result[command.Void] {
	log.Printf("hotel: processing release-room for reservation %s", cmd.ReservationID)

	if rec, err := s.ledger.Get(ctx, cmd.IdempotencyKey); err == nil {
		log.Printf("hotel: idempotent replay for key %s", cmd.IdempotencyKey)
		var cached command.Result[command.Void]
		if jsonErr := json.Unmarshal(rec.Result, &cached); jsonErr == nil {
			return cached
		}
		return command.Done()
	}

	s.simulateDelay()

	tx, err := s.reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	reservation, err := s.reservations.GetForUpdateTx(ctx, tx, cmd.ReservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return command.Fail[command.Void]("Reservation not found", command.CodeReservationNotFound)
	}
	if err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}

	if reservation.Status != model.ReservationReleased {
		err = s.reservations.UpdateStatusTx(ctx, tx, reservation.ReservationID, model.ReservationReleased, reservation.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Printf("hotel: version conflict releasing reservation %s", cmd.ReservationID)
			return command.Fail[command.Void]("Concurrent modification detected", command.CodeOptimisticLockFailure)
		}
		if err != nil {
			return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
		}
		if err := s.reservations.DeleteNightsTx(ctx, tx, reservation.ReservationID); err != nil {
			return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
		}
	} else {
		log.Printf("hotel: reservation already released: %s", cmd.ReservationID)
	}

	result := command.Done()
	if err := s.record(ctx, tx, cmd.IdempotencyKey, result); err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	if err := tx.Commit(); err != nil {
		return command.Fail[command.Void]("Internal server error", command.CodeInternalError)
	}
	committed = true

	log.Printf("hotel: room released %s", cmd.ReservationID)
	return result
}

// replay returns the recorded outcome for a key already in the ledger.
func (s *Service) replay(ctx context.Context, key string) (command.Result[command.ReservationData], bool) {
	rec, err := s.ledger.Get(ctx, key)
	if err != nil {
		return command.Result[command.ReservationData]{}, false
	}
	log.Printf("hotel: idempotent replay for key %s", key)
	var cached command.Result[command.ReservationData]
	if err := json.Unmarshal(rec.Result, &cached); err != nil {
		log.Printf("hotel: failed to decode recorded result for key %s: %v", key, err)
		return command.Result[command.ReservationData]{}, false
	}
	return cached, true
}

// record writes the command outcome into the ledger within the same
// transaction as the mutation it describes.
func (s *Service) record(ctx context.Context, tx *sql.Tx, key string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("hotel: marshal ledger outcome failed for key %s: %v", key, err)
		return err
	}
	if err := s.ledger.SaveTx(ctx, tx, key, payload); err != nil {
		log.Printf("hotel: store ledger outcome failed for key %s: %v", key, err)
		return err
	}
	return nil
}

func (s *Service) simulateDelay() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func (s *Service) shouldSimulateFailure() bool {
	return s.failureRate > 0 && rand.Float64() < s.failureRate
}

// expandNights lists every occupied night in [checkIn, checkOut).
func expandNights(checkIn, checkOut string) ([]string, error) {
	start, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return nil, errors.New("invalid check-in date")
	}
	end, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return nil, errors.New("invalid check-out date")
	}
	if !start.Before(end) {
		return nil, errors.New("check-in must be before check-out")
	}
	var nights []string
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d.Format(dateLayout))
	}
	return nights, nil
}
