package model

import (
	"testing"
	"time"
)

func TestSagaTransitions_OnlyDefinedEdgesAllowed(t *testing.T) {
	all := []SagaState{
		StateStarted, StateRoomReserved, StatePaymentAuthorized,
		StateBookingCompleted, StateRoomReservationFailed,
		StatePaymentAuthorizationFailed, StateCompensating,
		StateBookingCancelled, StateCompensationCompleted,
		StateCompensationFailed,
	}

	for _, from := range all {
		allowed := map[SagaState]bool{}
		for _, to := range SagaTransitions[from] {
			allowed[to] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			if got != allowed[to] {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestSagaTransitions_HappyPath(t *testing.T) {
	path := []SagaState{StateStarted, StateRoomReserved, StatePaymentAuthorized, StateBookingCompleted}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransitionTo(path[i+1]) {
			t.Errorf("expected edge %s -> %s", path[i], path[i+1])
		}
	}
}

func TestSagaTransitions_TerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, s := range TerminalStates {
		if edges := SagaTransitions[s]; len(edges) != 0 {
			t.Errorf("terminal state %s has outgoing edges %v", s, edges)
		}
		if !s.IsTerminal() {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
}

func TestIsTerminal_NonTerminalStates(t *testing.T) {
	for _, s := range []SagaState{StateStarted, StateRoomReserved, StateCompensating, StateCompensationCompleted} {
		if s.IsTerminal() {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestNewSagaInstance(t *testing.T) {
	payload := []byte(`{"hotelId":1}`)
	before := time.Now().UTC()
	saga := NewSagaInstance("saga-1", payload, 3, 30*time.Minute)

	if saga.State != StateStarted {
		t.Errorf("state = %s, want %s", saga.State, StateStarted)
	}
	if string(saga.RequestPayload) != string(payload) {
		t.Errorf("payload = %q", saga.RequestPayload)
	}
	if saga.RetryCount != 0 || saga.MaxRetries != 3 {
		t.Errorf("retry counters = %d/%d", saga.RetryCount, saga.MaxRetries)
	}
	wantExpiry := before.Add(30 * time.Minute)
	if saga.ExpiresAt.Before(wantExpiry) || saga.ExpiresAt.After(wantExpiry.Add(time.Second)) {
		t.Errorf("expiresAt = %v, want about %v", saga.ExpiresAt, wantExpiry)
	}
}

func TestSagaInstance_RetryBudget(t *testing.T) {
	saga := NewSagaInstance("saga-1", nil, 2, time.Minute)

	if !saga.CanRetry() {
		t.Fatal("fresh saga should have retry budget")
	}
	saga.IncrementRetry()
	if !saga.CanRetry() {
		t.Fatal("one retry consumed of two, budget should remain")
	}
	saga.IncrementRetry()
	if saga.CanRetry() {
		t.Fatal("budget exhausted, CanRetry should be false")
	}
	if saga.RetryCount != 2 {
		t.Errorf("retryCount = %d, want 2", saga.RetryCount)
	}
}

func TestSagaInstance_IsExpired(t *testing.T) {
	saga := NewSagaInstance("saga-1", nil, 3, time.Minute)

	if saga.IsExpired(time.Now().UTC()) {
		t.Error("fresh saga should not be expired")
	}
	if !saga.IsExpired(saga.ExpiresAt.Add(time.Second)) {
		t.Error("saga past its deadline should be expired")
	}
}
