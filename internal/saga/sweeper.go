package saga

import (
	"context"
	"log"
	"time"

	"bookingsaga/internal/model"
)

// RetryableStates are the failed states the retry sweep re-drives while a
// saga still has budget and has not expired.
var RetryableStates = []model.SagaState{
	model.StateRoomReservationFailed,
	model.StatePaymentAuthorizationFailed,
	model.StateCompensationFailed,
}

// Sweeper periodically scans persisted saga instances and resumes stuck
// ones through the orchestrator's RetrySaga entry point. It runs two
// independent schedules: the expiry sweep forces progress on instances
// whose deadline has passed, and the retry sweep re-drives failed
// instances that still have budget. Expired instances are left to the
// expiry sweep so the two schedules never process the same saga
// concurrently.
type Sweeper struct {
	store        Store
	orchestrator *Orchestrator
	expiryEvery  time.Duration
	retryEvery   time.Duration
}

// NewSweeper wires a sweeper. Intervals fall back to 30s (expiry) and 60s
// (retry) when non-positive.
func NewSweeper(store Store, orchestrator *Orchestrator, expiryEvery, retryEvery time.Duration) *Sweeper {
	if expiryEvery <= 0 {
		expiryEvery = 30 * time.Second
	}
	if retryEvery <= 0 {
		retryEvery = 60 * time.Second
	}
	return &Sweeper{
		store:        store,
		orchestrator: orchestrator,
		expiryEvery:  expiryEvery,
		retryEvery:   retryEvery,
	}
}

// Start launches both sweep loops and blocks until the context is
// cancelled. Callers run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	expiry := time.NewTicker(s.expiryEvery)
	retry := time.NewTicker(s.retryEvery)
	defer expiry.Stop()
	defer retry.Stop()

	log.Printf("sweeper: running (expiry every %s, retry every %s)", s.expiryEvery, s.retryEvery)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopping: %v", ctx.Err())
			return
		case <-expiry.C:
			s.SweepExpired(ctx)
		case <-retry.C:
			s.SweepRetryable(ctx)
		}
	}
}

// SweepExpired resumes every non-terminal saga whose deadline has passed.
// An expired saga needs forced progress: retried while budget remains,
// compensated once it runs out.
func (s *Sweeper) SweepExpired(ctx context.Context) {
	ids, err := s.store.FindExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("sweeper: expiry scan failed: %v", err)
		return
	}
	for _, id := range ids {
		log.Printf("sweeper: saga %s has timed out", id)
		s.resume(ctx, id)
	}
}

// SweepRetryable resumes failed sagas that still have retry budget and
// have not expired yet.
func (s *Sweeper) SweepRetryable(ctx context.Context) {
	ids, err := s.store.FindRetryable(ctx, RetryableStates, time.Now().UTC())
	if err != nil {
		log.Printf("sweeper: retry scan failed: %v", err)
		return
	}
	for _, id := range ids {
		log.Printf("sweeper: retrying failed saga %s", id)
		s.resume(ctx, id)
	}
}

// resume shields the batch from one instance's panic so a single bad saga
// cannot abort a sweep.
func (s *Sweeper) resume(ctx context.Context, sagaID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sweeper: resuming saga %s panicked: %v", sagaID, r)
		}
	}()
	s.orchestrator.RetrySaga(ctx, sagaID)
}
