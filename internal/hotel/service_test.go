package hotel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"bookingsaga/internal/command"
	"bookingsaga/internal/model"
	"bookingsaga/internal/repository"
)

func newTestService(t *testing.T, failureRate float64) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	service := NewService(repository.NewReservationRepo(db), repository.NewIdempotencyRepo(db), failureRate, 0)
	return service, mock
}

func reserveCmd(sagaID string) command.ReserveRoom {
	return command.ReserveRoom{
		Envelope:  command.NewEnvelope(sagaID, command.OpReserveRoom),
		HotelID:   1,
		RoomType:  "DELUXE",
		CheckIn:   "2026-10-01",
		CheckOut:  "2026-10-03",
		GuestName: "Ada Lovelace",
		RoomPrice: 240.50,
	}
}

func expectLedgerMiss(mock sqlmock.Sqlmock, key string) {
	mock.ExpectQuery("SELECT idempotency_key").
		WithArgs(key).
		WillReturnError(sql.ErrNoRows)
}

func TestReserveRoom_Success(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := reserveCmd("saga-1")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO room_nights").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO idempotency_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	result := service.ReserveRoom(context.Background(), cmd)
	if !result.Success {
		t.Fatalf("ReserveRoom failed: %s (%s)", result.ErrorMessage, result.ErrorCode)
	}
	if result.Data.ReservationID == "" {
		t.Error("reservationId must be set")
	}
	if result.Data.Status != model.ReservationPending {
		t.Errorf("status = %s, want %s", result.Data.Status, model.ReservationPending)
	}
}

func TestReserveRoom_NightTakenRollsBack(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := reserveCmd("saga-2")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO room_nights").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '1-DELUXE-2026-10-01' for key 'uq_room_night'"))
	mock.ExpectRollback()
	mock.ExpectClose()

	result := service.ReserveRoom(context.Background(), cmd)
	if result.Success {
		t.Fatal("expected business failure")
	}
	if result.ErrorCode != command.CodeRoomNotAvailable {
		t.Errorf("errorCode = %s, want %s", result.ErrorCode, command.CodeRoomNotAvailable)
	}
}

func TestReserveRoom_IdempotentReplay(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := reserveCmd("saga-3")

	recorded := command.OK(command.ReservationData{
		ReservationID: "res-recorded",
		HotelID:       1,
		Status:        model.ReservationPending,
	})
	payload, err := json.Marshal(recorded)
	if err != nil {
		t.Fatalf("marshal recorded result: %v", err)
	}

	// Only the ledger lookup runs; no transaction, no mutation.
	mock.ExpectQuery("SELECT idempotency_key").
		WithArgs(cmd.IdempotencyKey).
		WillReturnRows(sqlmock.NewRows([]string{"idempotency_key", "result_payload", "processed_at"}).
			AddRow(cmd.IdempotencyKey, payload, time.Now().UTC()))
	mock.ExpectClose()

	result := service.ReserveRoom(context.Background(), cmd)
	if !result.Success {
		t.Fatalf("replay failed: %s", result.ErrorMessage)
	}
	if result.Data.ReservationID != "res-recorded" {
		t.Errorf("reservationId = %s, want the recorded one", result.Data.ReservationID)
	}
}

func TestReserveRoom_SimulatedFailure(t *testing.T) {
	service, mock := newTestService(t, 1.0)
	cmd := reserveCmd("saga-4")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectClose()

	result := service.ReserveRoom(context.Background(), cmd)
	if result.Success {
		t.Fatal("expected simulated failure")
	}
	if result.ErrorCode != command.CodeHotelServiceError {
		t.Errorf("errorCode = %s, want %s", result.ErrorCode, command.CodeHotelServiceError)
	}
}

func releaseCmd(sagaID, reservationID string) command.ReleaseRoom {
	return command.ReleaseRoom{
		Envelope:      command.NewEnvelope(sagaID, command.OpReleaseRoom),
		ReservationID: reservationID,
		Reason:        "Booking saga compensation",
	}
}

func reservationRow(reservationID, status string, version int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"reservation_id", "hotel_id", "room_type", "check_in", "check_out",
		"guest_name", "room_price", "status", "created_at", "updated_at", "version",
	}).AddRow(reservationID, 1, "DELUXE", "2026-10-01", "2026-10-03",
		"Ada Lovelace", 240.50, status, now, now, version)
}

func TestReleaseRoom_ReleasesAndFreesNights(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := releaseCmd("saga-5", "res-1")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", model.ReservationPending, 0))
	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM room_nights").
		WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO idempotency_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	result := service.ReleaseRoom(context.Background(), cmd)
	if !result.Success {
		t.Fatalf("ReleaseRoom failed: %s (%s)", result.ErrorMessage, result.ErrorCode)
	}
}

func TestReleaseRoom_AlreadyReleasedIsIdempotent(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := releaseCmd("saga-6", "res-1")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", model.ReservationReleased, 1))
	mock.ExpectExec("INSERT INTO idempotency_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	result := service.ReleaseRoom(context.Background(), cmd)
	if !result.Success {
		t.Fatalf("idempotent release failed: %s", result.ErrorMessage)
	}
}

func TestReleaseRoom_NotFound(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := releaseCmd("saga-7", "res-missing")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("res-missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	mock.ExpectClose()

	result := service.ReleaseRoom(context.Background(), cmd)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorCode != command.CodeReservationNotFound {
		t.Errorf("errorCode = %s, want %s", result.ErrorCode, command.CodeReservationNotFound)
	}
}

func TestReleaseRoom_VersionConflict(t *testing.T) {
	service, mock := newTestService(t, 0)
	cmd := releaseCmd("saga-8", "res-1")

	expectLedgerMiss(mock, cmd.IdempotencyKey)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", model.ReservationPending, 0))
	mock.ExpectExec("UPDATE reservations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectClose()

	result := service.ReleaseRoom(context.Background(), cmd)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorCode != command.CodeOptimisticLockFailure {
		t.Errorf("errorCode = %s, want %s", result.ErrorCode, command.CodeOptimisticLockFailure)
	}
}

func TestExpandNights(t *testing.T) {
	nights, err := expandNights("2026-10-01", "2026-10-04")
	if err != nil {
		t.Fatalf("expandNights: %v", err)
	}
	want := []string{"2026-10-01", "2026-10-02", "2026-10-03"}
	if len(nights) != len(want) {
		t.Fatalf("nights = %v, want %v", nights, want)
	}
	for i := range want {
		if nights[i] != want[i] {
			t.Errorf("nights[%d] = %s, want %s", i, nights[i], want[i])
		}
	}

	if _, err := expandNights("2026-10-04", "2026-10-01"); err == nil {
		t.Error("check-in after check-out must be rejected")
	}
	if _, err := expandNights("not-a-date", "2026-10-01"); err == nil {
		t.Error("malformed check-in must be rejected")
	}
}
