package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"clarisync/internal/logging"
	"clarisync/internal/models"
	"clarisync/internal/service"
)

// Sync runs a manual sync over the configured window
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	// a dropped client must not abort a run that is already writing
	ctx := context.WithoutCancel(r.Context())

	stats, err := h.sync.SyncNewCalls(ctx, service.TriggerManual, h.daysBack)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		h.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error().Err(err).Str("error_type", logging.ErrorType(err)).Msg("manual sync failed")
		h.writeJSON(w, http.StatusInternalServerError, models.SyncResponse{
			Status:    "error",
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
			Data:      stats,
		})
	default:
		h.writeJSON(w, http.StatusOK, models.SyncResponse{
			Status:    "success",
			Message:   fmt.Sprintf("imported %d of %d new calls", stats.CallsImported, stats.NewCallsFound),
			Timestamp: time.Now().UTC(),
			Data:      stats,
		})
	}
}

// SampleSync runs a sync over ?days=N and returns the counts
func (h *Handler) SampleSync(w http.ResponseWriter, r *http.Request) {
	days, err := h.intParam(r, "days", 1, fmt.Sprintf("min=1,max=%d", h.cfg.MaxSampleSyncDays))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", h.cfg.MaxSampleSyncDays))
		return
	}

	result := h.sync.RunSampleSync(context.WithoutCancel(r.Context()), days)
	switch {
	case result.Error == service.ErrSyncInProgress.Error():
		h.writeError(w, http.StatusConflict, result.Error)
	case result.Error != "":
		h.writeJSON(w, http.StatusInternalServerError, models.SyncResponse{
			Status:    "error",
			Message:   result.Error,
			Timestamp: time.Now().UTC(),
			Data:      result,
		})
	default:
		h.writeJSON(w, http.StatusOK, models.SyncResponse{
			Status:    "success",
			Message:   fmt.Sprintf("sample sync over %d days completed", days),
			Timestamp: time.Now().UTC(),
			Data:      result,
		})
	}
}

// Import imports the call ids in the request body
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("error decoding request")
		h.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "call_ids must be a non-empty list of ids of at least 10 characters")
		return
	}
	if len(req.CallIDs) > h.cfg.MaxImportBatchSize {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d call_ids per request", h.cfg.MaxImportBatchSize))
		return
	}

	result := h.sync.Reconciliation().Import(context.WithoutCancel(r.Context()), req.CallIDs)
	h.writeJSON(w, http.StatusOK, models.SyncResponse{
		Status:    "success",
		Message:   fmt.Sprintf("imported %d of %d calls", result.Successful, len(req.CallIDs)),
		Timestamp: time.Now().UTC(),
		Data:      result,
	})
}

// statusResponse is the body of GET /status
type statusResponse struct {
	Status        string            `json:"status"`
	Database      string            `json:"database"`
	ExistingCalls int               `json:"existing_calls"`
	SyncRunning   bool              `json:"sync_running"`
	LastRun       *models.SyncStats `json:"last_run,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Status reports store reachability and the most recent run
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:      "healthy",
		Database:    "connected",
		SyncRunning: h.sync.Running(),
		Timestamp:   time.Now().UTC(),
	}
	if last, ok := h.sync.LastRun(); ok {
		resp.LastRun = &last
	}

	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("database ping failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	} else if count, err := h.store.CountCalls(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to count calls")
		resp.Status = "degraded"
	} else {
		resp.ExistingCalls = count
	}

	h.writeJSON(w, status, resp)
}
