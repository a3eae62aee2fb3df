package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"clarisync/internal/config"
)

// Limiter builds per-IP rate limiting middleware from server settings
type Limiter struct {
	cfg config.ServerConfig
}

// NewLimiter creates a limiter
func NewLimiter(cfg config.ServerConfig) *Limiter {
	return &Limiter{cfg: cfg}
}

func passthrough(next http.Handler) http.Handler { return next }

// limitExceeded writes the 429 body
func limitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": "rate limit exceeded",
	})
}

func byIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return passthrough
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// Global applies the per-day and per-hour limits to every request
func (l *Limiter) Global() func(http.Handler) http.Handler {
	if l.cfg.RateLimitDisabled {
		return passthrough
	}
	daily := byIP(l.cfg.RateLimitPerDay, 24*time.Hour)
	hourly := byIP(l.cfg.RateLimitPerHour, time.Hour)
	return func(next http.Handler) http.Handler {
		return daily(hourly(next))
	}
}

// Sync applies the tighter limit used on the trigger endpoints
func (l *Limiter) Sync() func(http.Handler) http.Handler {
	if l.cfg.RateLimitDisabled {
		return passthrough
	}
	return byIP(l.cfg.SyncLimitPerHour, time.Hour)
}
