package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/common/logger"
	"github.com/MoovFleet/MoovFleet/internal/fleet"
)

// checkInterval is how often the scheduler re-evaluates whether the daily
// run is due.
const checkInterval = 15 * time.Minute

// Scheduler guarantees at most one automatic run per calendar day, at the
// configured local hour. The guard is in-memory and assumes a single
// running instance; an on-demand trigger may still run concurrently, which
// is safe because reconciliation is idempotent.
type Scheduler struct {
	orch *Orchestrator
	hour int
	loc  *time.Location
	log  logger.Logger

	mu          sync.Mutex
	lastRunDate string
}

// NewScheduler builds the daily-run guard.
func NewScheduler(orch *Orchestrator, hour int, loc *time.Location, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{orch: orch, hour: hour, loc: loc, log: log}
}

// Start ticks until ctx is cancelled. Call it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	// also evaluate once at startup so a restart after the configured hour
	// does not lose the day's run
	s.tick(ctx, time.Now().In(s.loc))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().In(s.loc))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if !s.claim(now) {
		return
	}
	if s.log != nil {
		s.log.Infof("scheduled sync starting for %s", now.Format(fleet.DateLayout))
	}
	if _, err := s.orch.Run(ctx, ""); err != nil {
		if s.log != nil {
			s.log.Errorf("scheduled sync failed: %v", err)
		}
		// the day stays claimed: failed automatic runs are retried via the
		// on-demand trigger, not by hammering the platform every 15 minutes
	}
}

// claim marks today as run iff the hour has arrived and today is unclaimed.
func (s *Scheduler) claim(now time.Time) bool {
	if now.Hour() < s.hour {
		return false
	}
	today := now.Format(fleet.DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRunDate == today {
		return false
	}
	s.lastRunDate = today
	return true
}
