package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clarisync/internal/logging"
	"clarisync/internal/middleware"
)

// NewRouter wires every endpoint and the middleware chain
func NewRouter(h *Handler) http.Handler {
	limiter := middleware.NewLimiter(h.cfg)
	syncLimit := limiter.Sync()

	router := mux.NewRouter()
	router.Use(middleware.Logger(logging.Component("http")))
	router.Use(limiter.Global())

	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Handle("/sync", syncLimit(http.HandlerFunc(h.Sync))).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/sync/sample", syncLimit(http.HandlerFunc(h.SampleSync))).Methods(http.MethodGet, http.MethodPost)
	router.Handle("/import", syncLimit(http.HandlerFunc(h.Import))).Methods(http.MethodPost)

	debug := router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/existing", h.Existing).Methods(http.MethodGet)
	debug.HandleFunc("/recent", h.Recent).Methods(http.MethodGet)
	debug.HandleFunc("/calls", h.StoredCalls).Methods(http.MethodGet)
	debug.HandleFunc("/calls/{id}/raw", h.RawCall).Methods(http.MethodGet)
	debug.HandleFunc("/calls/{id}/transformed", h.TransformedCall).Methods(http.MethodGet)
	debug.HandleFunc("/calls/{id}/conversation", h.Conversation).Methods(http.MethodGet)
	debug.HandleFunc("/calls/{id}/participants", h.StoredParticipants).Methods(http.MethodGet)

	return middleware.RequestID(middleware.SecurityHeaders(middleware.CORS(h.cfg.AllowedOrigins)(router)))
}
