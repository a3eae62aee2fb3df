package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"clarisync/internal/config"
	"clarisync/internal/logging"
	"clarisync/internal/models"
	"clarisync/internal/service"
	"clarisync/internal/transform"
)

// Store is the read side of the call store used by the status and debug views
type Store interface {
	Ping(ctx context.Context) error
	CountCalls(ctx context.Context) (int, error)
	RecentCalls(ctx context.Context, limit int) ([]models.CallRecord, error)
	ListParticipants(ctx context.Context, callID string) ([]models.ParticipantRecord, error)
}

// Deps are the collaborators a Handler serves requests with
type Deps struct {
	Sync        *service.SyncService
	Store       Store
	Source      service.CallSource
	Transformer service.RecordTransformer
	Names       transform.NameResolver
	Server      config.ServerConfig
	DaysBack    int
}

// Handler serves the trigger, status and debug endpoints
type Handler struct {
	sync        *service.SyncService
	store       Store
	source      service.CallSource
	transformer service.RecordTransformer
	names       transform.NameResolver
	cfg         config.ServerConfig
	daysBack    int
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		sync:        deps.Sync,
		store:       deps.Store,
		source:      deps.Source,
		transformer: deps.Transformer,
		names:       deps.Names,
		cfg:         deps.Server,
		daysBack:    deps.DaysBack,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logging.Component("http"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("error encoding response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

// intParam reads an integer query parameter and checks it against rule.
// A missing parameter yields def.
func (h *Handler) intParam(r *http.Request, name string, def int, rule string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if err := h.validate.Var(n, rule); err != nil {
		return 0, err
	}
	return n, nil
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>clarisync</title></head>
<body>
<h1>clarisync</h1>
<ul>
<li><a href="/health">/health</a></li>
<li><a href="/status">/status</a></li>
<li><a href="/sync">/sync</a></li>
<li><a href="/sync/sample?days=1">/sync/sample?days=1</a></li>
<li><a href="/debug/existing">/debug/existing</a></li>
<li><a href="/debug/recent?days=1">/debug/recent?days=1</a></li>
<li><a href="/debug/calls">/debug/calls</a></li>
<li><a href="/metrics">/metrics</a></li>
</ul>
</body>
</html>
`

// Index lists the available endpoints
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexPage))
}
