package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer is the lifecycle part of *http.Server
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService keeps the API server under the supervisor. Cancelling the
// context drains in-flight requests, including a running manual sync,
// for at most shutdownTimeout.
type HTTPService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

func NewHTTPService(server HTTPServer, addr string, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &HTTPService{server: server, addr: addr, shutdownTimeout: shutdownTimeout, logger: logger}
}

// Serve implements suture.Service
func (h *HTTPService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		err := h.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()
	h.logger.Info().Str("addr", h.addr).Msg("api listening")

	select {
	case err := <-listenErr:
		if err == nil {
			return nil
		}
		h.logger.Error().Err(err).Str("addr", h.addr).Msg("api stopped unexpectedly")
		return fmt.Errorf("listen on %s: %w", h.addr, err)

	case <-ctx.Done():
	}

	started := time.Now()
	drainCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(drainCtx); err != nil {
		h.logger.Warn().Err(err).Dur("timeout", h.shutdownTimeout).Msg("api drain incomplete")
		return fmt.Errorf("drain api requests: %w", err)
	}
	<-listenErr
	h.logger.Info().Dur("drained_in", time.Since(started)).Msg("api stopped")
	return ctx.Err()
}

func (h *HTTPService) String() string {
	return "api:" + h.addr
}
