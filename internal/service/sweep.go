package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mentorship-system/internal/model"
	"github.com/iliyamo/mentorship-system/internal/repository"
)

// ExpirationSweep completes ACCEPTED relations whose end date has passed.
// Running it again is a no-op for relations it already completed.
type ExpirationSweep struct {
	store repository.Store
	now   Clock
}

func NewExpirationSweep(store repository.Store, clock Clock) *ExpirationSweep {
	if clock == nil {
		clock = SystemClock
	}
	return &ExpirationSweep{store: store, now: clock}
}

// Name identifies the job on the scheduler.
func (s *ExpirationSweep) Name() string { return "complete-expired-relations" }

// Run completes every expired relation in one unit of work and returns how
// many it changed.
func (s *ExpirationSweep) Run(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	now := s.now()
	completed := 0
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		completed = 0
		rels, err := tx.ExpiredAcceptedRelations(ctx, now)
		if err != nil {
			return err
		}
		for i := range rels {
			rel := &rels[i]
			if !rel.State.CanTransitionTo(model.StateCompleted) {
				continue
			}
			rel.State = model.StateCompleted
			if err := tx.UpdateRelation(ctx, rel); err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	if err != nil {
		log.Printf("sweep %s: failed: %v", runID, err)
		return 0, err
	}
	log.Printf("sweep %s: completed %d relation(s) ending before %s", runID, completed, now.Format(time.RFC3339))
	return completed, nil
}

// UnverifiedUserPurge deletes accounts that never confirmed their email
// within the threshold.
type UnverifiedUserPurge struct {
	store     repository.Store
	now       Clock
	threshold time.Duration
}

func NewUnverifiedUserPurge(store repository.Store, clock Clock, threshold time.Duration) *UnverifiedUserPurge {
	if clock == nil {
		clock = SystemClock
	}
	return &UnverifiedUserPurge{store: store, now: clock, threshold: threshold}
}

func (p *UnverifiedUserPurge) Name() string { return "delete-unverified-users" }

// Run deletes users registered before now-threshold that are still
// unverified and returns how many were removed.
func (p *UnverifiedUserPurge) Run(ctx context.Context) (int, error) {
	cutoff := p.now().Add(-p.threshold)
	var n int64
	err := p.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		n, err = tx.DeleteUnverifiedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		log.Printf("purge: failed: %v", err)
		return 0, err
	}
	log.Printf("purge: deleted %d unverified user(s) registered before %s", n, cutoff.Format(time.RFC3339))
	return int(n), nil
}
