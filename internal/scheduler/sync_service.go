package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"clarisync/internal/logging"
	"clarisync/internal/models"
	"clarisync/internal/service"
)

// SyncRunner runs one sync
type SyncRunner interface {
	SyncNewCalls(ctx context.Context, trigger string, daysBack int) (models.SyncStats, error)
}

// PeriodicSync triggers a sync every interval. Runs that find another run in
// progress are skipped, and a failed run never stops the schedule.
type PeriodicSync struct {
	runner       SyncRunner
	interval     time.Duration
	daysBack     int
	runOnStartup bool
	startupDone  atomic.Bool
	logger       zerolog.Logger
}

// NewPeriodicSync creates a new periodic sync service
func NewPeriodicSync(runner SyncRunner, interval time.Duration, daysBack int, runOnStartup bool) *PeriodicSync {
	return &PeriodicSync{
		runner:       runner,
		interval:     interval,
		daysBack:     daysBack,
		runOnStartup: runOnStartup,
		logger:       logging.Component("scheduler"),
	}
}

// Serve implements suture.Service
func (p *PeriodicSync) Serve(ctx context.Context) error {
	// a restarted service must not repeat the startup run
	if p.runOnStartup && p.startupDone.CompareAndSwap(false, true) {
		p.run(ctx, service.TriggerStartup)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Str("interval", p.interval.String()).Int("days_back", p.daysBack).Msg("sync scheduled")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.run(ctx, service.TriggerScheduled)
		}
	}
}

func (p *PeriodicSync) run(ctx context.Context, trigger string) {
	_, err := p.runner.SyncNewCalls(ctx, trigger, p.daysBack)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		p.logger.Info().Str("trigger", trigger).Msg("previous sync still running, skipping")
	case err != nil:
		p.logger.Error().Err(err).Str("trigger", trigger).Str("error_type", logging.ErrorType(err)).Msg("scheduled sync failed")
	}
}

func (p *PeriodicSync) String() string {
	return "periodic-sync"
}
