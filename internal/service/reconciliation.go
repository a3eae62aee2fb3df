package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clarisync/internal/clari"
	"clarisync/internal/logging"
	"clarisync/internal/metrics"
	"clarisync/internal/models"
)

var (
	errFetchFailed   = errors.New("no call data returned")
	errNoRowsWritten = errors.New("call write reported no rows")
)

// PanicError wraps a value recovered from a panic during one call's import
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// CallStore is the storage used by the import pipeline
type CallStore interface {
	ListCallIDs(ctx context.Context) ([]string, error)
	CallExists(ctx context.Context, callID string) (bool, error)
	InsertCall(ctx context.Context, record *models.CallRecord) (int64, error)
	UpdateCall(ctx context.Context, record *models.CallRecord) (int64, error)
	DeleteParticipants(ctx context.Context, callID string) (int64, error)
	InsertParticipants(ctx context.Context, participants []models.ParticipantRecord) (int64, error)
}

// CallSource provides call ids and raw call payloads
type CallSource interface {
	ListRecentCallIDs(ctx context.Context, daysBack int) []string
	FetchCallDetails(ctx context.Context, callID string) (map[string]any, bool)
}

// RecordTransformer maps raw payloads to rows
type RecordTransformer interface {
	TransformCall(callID string, raw map[string]any) models.CallRecord
	ExtractParticipants(callID string, raw map[string]any) []models.ParticipantRecord
}

// ReconciliationService imports calls into the store, updating rows that
// already exist and regenerating their participants
type ReconciliationService struct {
	store       CallStore
	source      CallSource
	transformer RecordTransformer
	pacing      time.Duration
	sleep       clari.SleepFunc
	logger      zerolog.Logger
}

// Option customizes a ReconciliationService
type Option func(*ReconciliationService)

// WithPacingDelay sets the fixed delay between calls
func WithPacingDelay(d time.Duration) Option {
	return func(s *ReconciliationService) { s.pacing = d }
}

// WithSleep replaces the wait used for pacing
func WithSleep(fn clari.SleepFunc) Option {
	return func(s *ReconciliationService) { s.sleep = fn }
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(store CallStore, source CallSource, transformer RecordTransformer, opts ...Option) *ReconciliationService {
	s := &ReconciliationService{
		store:       store,
		source:      source,
		transformer: transformer,
		pacing:      time.Second,
		sleep:       clari.SleepContext,
		logger:      logging.Component("reconciliation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListExistingCallIDs returns the set of stored call ids. A storage failure
// is logged and yields an empty set.
func (s *ReconciliationService) ListExistingCallIDs(ctx context.Context) map[string]struct{} {
	ids, err := s.store.ListCallIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("error_type", logging.ErrorType(err)).Msg("failed to list existing calls, treating store as empty")
		return map[string]struct{}{}
	}

	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	s.logger.Info().Int("count", len(existing)).Msg("found existing calls")
	return existing
}

// ImportCalls imports each id in order and returns the success and failure
// counts. One call failing never stops the batch.
func (s *ReconciliationService) ImportCalls(ctx context.Context, callIDs []string) (success, failure int) {
	result := s.Import(ctx, callIDs)
	return result.Successful, result.Failed
}

// Import is ImportCalls with the participant count included
func (s *ReconciliationService) Import(ctx context.Context, callIDs []string) models.ImportResult {
	var result models.ImportResult
	s.importInto(ctx, callIDs, &result)
	return result
}

// importInto updates result after every call so callers see partial
// progress even if the batch is interrupted
func (s *ReconciliationService) importInto(ctx context.Context, callIDs []string, result *models.ImportResult) {
	s.logger.Info().Int("count", len(callIDs)).Msg("starting import")

	for i, callID := range callIDs {
		if ctx.Err() != nil {
			s.logger.Warn().Int("remaining", len(callIDs)-i).Msg("import interrupted")
			break
		}

		s.logger.Info().Str("call_id", callID).Int("index", i+1).Int("total", len(callIDs)).Msg("processing call")

		participants, err := s.importOne(ctx, callID)
		if err != nil {
			result.Failed++
			metrics.RecordCallFailed(failureReason(err))
			s.logger.Error().
				Str("call_id", callID).
				Str("error_type", logging.ErrorType(err)).
				Err(err).
				Msg("failed to import call")
		} else {
			result.Successful++
			result.Participants += participants
			metrics.RecordCallImported(participants)
			s.logger.Info().Str("call_id", callID).Int("participants", participants).Msg("call imported")
		}

		if i < len(callIDs)-1 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				s.logger.Warn().Int("remaining", len(callIDs)-i-1).Msg("import interrupted")
				break
			}
		}
	}

	s.logger.Info().Int("successful", result.Successful).Int("failed", result.Failed).Msg("import completed")
}

// importOne fetches, transforms and writes one call. It returns the number
// of participant rows written.
func (s *ReconciliationService) importOne(ctx context.Context, callID string) (participants int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	raw, ok := s.source.FetchCallDetails(ctx, callID)
	if !ok {
		return 0, errFetchFailed
	}

	record := s.transformer.TransformCall(callID, raw)
	rows := s.transformer.ExtractParticipants(callID, raw)

	exists, err := s.store.CallExists(ctx, callID)
	if err != nil {
		return 0, err
	}

	var written int64
	if exists {
		s.logger.Info().Str("call_id", callID).Msg("call already exists, updating")
		if written, err = s.store.UpdateCall(ctx, &record); err != nil {
			return 0, err
		}
		if written == 0 {
			return 0, errNoRowsWritten
		}
		if _, err := s.store.DeleteParticipants(ctx, callID); err != nil {
			return 0, err
		}
	} else {
		if written, err = s.store.InsertCall(ctx, &record); err != nil {
			return 0, err
		}
		if written == 0 {
			return 0, errNoRowsWritten
		}
	}

	n, err := s.store.InsertParticipants(ctx, rows)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func failureReason(err error) string {
	var panicErr *PanicError
	switch {
	case errors.Is(err, errFetchFailed):
		return "fetch"
	case errors.Is(err, errNoRowsWritten):
		return "no_rows"
	case errors.As(err, &panicErr):
		return "panic"
	default:
		return "write"
	}
}
