// Package scheduler runs the long-lived parts of the process under a suture
// supervisor: the HTTP server and the periodic sync.
package scheduler

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Supervisor defaults, matching suture's own
const (
	DefaultFailureThreshold = 5.0
	DefaultFailureDecay     = 30.0
	DefaultFailureBackoff   = 15 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
)

// EventHook logs supervisor events through zerolog
func EventHook(logger zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		event := logger.Warn()
		if e.Type() == suture.EventTypeServicePanic {
			event = logger.Error()
		}
		event.Fields(e.Map()).Msg(e.String())
	}
}

// NewSupervisor creates the root supervisor
func NewSupervisor(logger zerolog.Logger, shutdownTimeout time.Duration) *suture.Supervisor {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return suture.New("clarisync", suture.Spec{
		EventHook:        EventHook(logger),
		FailureThreshold: DefaultFailureThreshold,
		FailureDecay:     DefaultFailureDecay,
		FailureBackoff:   DefaultFailureBackoff,
		Timeout:          shutdownTimeout,
	})
}
