// Package scheduler runs periodic maintenance against the quiz engine.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Recalculator is the maintenance surface the scheduler drives.
type Recalculator interface {
	RecalculateWeights(ctx context.Context) (int, error)
}

// Scheduler periodically recomputes item weights so stats-derived
// weights stay consistent after formula changes or manual data edits.
type Scheduler struct {
	scheduler *gocron.Scheduler
	svc       Recalculator
	logger    *slog.Logger
	interval  time.Duration
}

func New(svc Recalculator, logger *slog.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		svc:       svc,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the recalculation job and returns immediately.
func (s *Scheduler) Start() {
	s.scheduler.Every(s.interval).Do(s.recalculate)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) recalculate() {
	updated, err := s.svc.RecalculateWeights(context.Background())
	if err != nil {
		s.logger.Error("scheduled weight recalculation failed", "error", err)
		return
	}
	s.logger.Info("scheduled weight recalculation complete", "items", updated)
}
