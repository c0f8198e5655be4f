// Package scheduler ticks the resumption sweep on a cron schedule so
// deferred bridge legs are picked up without any inbound trigger.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/orchestrator"
)

// DefaultSweepSchedule runs the sweep every 15 minutes
const DefaultSweepSchedule = "*/15 * * * *"

// sweepTimeout caps one sweep run; a stuck run must not hold the
// single-flight lock forever
const sweepTimeout = 25 * time.Minute

// Sweeper is the part of the orchestrator the scheduler drives
type Sweeper interface {
	RunDueSweep(ctx context.Context) error
}

type Worker struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
	logger   logger.Logger
}

func NewWorker(sweeper Sweeper, schedule string, log logger.Logger) *Worker {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Worker{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(),
		logger:   log,
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if err := w.sweeper.RunDueSweep(ctx); err != nil {
			if errors.Is(err, orchestrator.ErrSweepInProgress) {
				// The previous run is still going; this tick is dropped
				// on purpose, never queued behind it
				return
			}
			w.logger.Error("Resumption sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Resumption sweep scheduled (%s)", w.schedule)
	return nil
}

func (w *Worker) Stop() {
	w.cron.Stop()
	w.logger.Info("Resumption sweep worker stopped")
}
