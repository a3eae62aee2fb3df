package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clarisync/internal/logging"
	"clarisync/internal/metrics"
	"clarisync/internal/models"
)

// Sync triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerStartup   = "startup"
	TriggerCLI       = "cli"
	TriggerSample    = "sample"
)

// ErrSyncInProgress is returned when a run is requested while another holds the run lock
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncService finds calls the store does not have yet and imports them
type SyncService struct {
	recon  *ReconciliationService
	source CallSource

	runMu   sync.Mutex
	running atomic.Bool

	mu      sync.RWMutex
	lastRun *models.SyncStats

	now    func() time.Time
	logger zerolog.Logger
}

// NewSyncService creates a sync service on top of a reconciliation service
func NewSyncService(recon *ReconciliationService, source CallSource) *SyncService {
	return &SyncService{
		recon:  recon,
		source: source,
		now:    time.Now,
		logger: logging.Component("sync"),
	}
}

// Reconciliation returns the underlying import engine
func (s *SyncService) Reconciliation() *ReconciliationService {
	return s.recon
}

// Running reports whether a run currently holds the run lock
func (s *SyncService) Running() bool {
	return s.running.Load()
}

// LastRun returns the stats of the most recent finished run
func (s *SyncService) LastRun() (models.SyncStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return models.SyncStats{}, false
	}
	return *s.lastRun, true
}

func (s *SyncService) tryLock() bool {
	if !s.runMu.TryLock() {
		return false
	}
	s.running.Store(true)
	return true
}

func (s *SyncService) unlock() {
	s.running.Store(false)
	s.runMu.Unlock()
}

// Difference returns the ids in recent that are not in existing, keeping the
// order of recent and dropping repeats
func Difference(recent []string, existing map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(recent))
	diff := make([]string, 0, len(recent))
	for _, id := range recent {
		if _, ok := existing[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		diff = append(diff, id)
	}
	return diff
}

// SyncNewCalls imports every call from the last daysBack days that is not
// stored yet. A summary is logged and recorded even when the run fails or
// panics; the returned stats reflect whatever progress was made.
func (s *SyncService) SyncNewCalls(ctx context.Context, trigger string, daysBack int) (stats models.SyncStats, err error) {
	if !s.tryLock() {
		metrics.RecordSyncSkipped(trigger)
		s.logger.Warn().Str("trigger", trigger).Msg("sync already in progress, skipping")
		return models.SyncStats{}, ErrSyncInProgress
	}
	defer s.unlock()

	stats = models.SyncStats{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		DaysBack:  daysBack,
		StartTime: s.now(),
	}
	var progress models.ImportResult

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		stats.CallsImported = progress.Successful
		stats.ParticipantsImported = progress.Participants
		stats.Errors = progress.Failed
		// a batch-level panic counts as one more error
		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			stats.Errors++
		}
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			stats.Error = err.Error()
		}
		end := s.now()
		stats.EndTime = &end

		s.recordRun(stats)
		metrics.RecordSyncRun(trigger, stats.Duration(), err)
	}()

	s.logger.Info().Str("run_id", stats.RunID).Str("trigger", trigger).Int("days_back", daysBack).Msg("starting sync")

	existing := s.recon.ListExistingCallIDs(ctx)
	recent := s.source.ListRecentCallIDs(ctx, daysBack)
	newIDs := Difference(recent, existing)
	stats.NewCallsFound = len(newIDs)

	s.logger.Info().Int("recent", len(recent)).Int("new", len(newIDs)).Msg("computed new calls")

	if len(newIDs) == 0 {
		s.logger.Info().Msg("no new calls to import")
		return stats, nil
	}

	s.recon.importInto(ctx, newIDs, &progress)
	return stats, nil
}

// RunSampleSync performs the same diff and import as SyncNewCalls but
// reports the counts instead of only logging them. Any failure produces a
// result carrying the error with zeroed counts.
func (s *SyncService) RunSampleSync(ctx context.Context, daysBack int) (result models.SampleSyncResult) {
	if !s.tryLock() {
		metrics.RecordSyncSkipped(TriggerSample)
		return models.SampleSyncResult{Error: ErrSyncInProgress.Error()}
	}
	defer s.unlock()

	start := s.now()
	defer func() {
		var err error
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			s.logger.Error().Err(err).Msg("sample sync failed")
			result = models.SampleSyncResult{Error: err.Error()}
		}
		metrics.RecordSyncRun(TriggerSample, s.now().Sub(start), err)
	}()

	existing := s.recon.ListExistingCallIDs(ctx)
	recent := s.source.ListRecentCallIDs(ctx, daysBack)
	newIDs := Difference(recent, existing)

	s.logger.Info().
		Int("total", len(recent)).
		Int("new", len(newIDs)).
		Msg("sample sync computed new calls")

	result = models.SampleSyncResult{
		TotalCalls:    len(recent),
		ExistingCalls: len(existing),
		NewCalls:      len(newIDs),
	}
	if len(newIDs) == 0 {
		return result
	}

	imported := s.recon.Import(ctx, newIDs)
	result.ImportedCalls = imported.Successful
	result.FailedCalls = imported.Failed
	return result
}

func (s *SyncService) recordRun(stats models.SyncStats) {
	s.mu.Lock()
	s.lastRun = &stats
	s.mu.Unlock()

	event := s.logger.Info()
	if stats.Error != "" {
		event = s.logger.Error().Str("error", stats.Error)
	}
	event.
		Str("run_id", stats.RunID).
		Str("trigger", stats.Trigger).
		Str("duration", stats.Duration().String()).
		Int("new_calls_found", stats.NewCallsFound).
		Int("calls_imported", stats.CallsImported).
		Int("participants_imported", stats.ParticipantsImported).
		Int("errors", stats.Errors).
		Msg("sync summary")
}
