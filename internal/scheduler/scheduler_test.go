package scheduler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarisync/internal/models"
	"clarisync/internal/service"
)

type recordingRunner struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (r *recordingRunner) SyncNewCalls(ctx context.Context, trigger string, daysBack int) (models.SyncStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, trigger)
	return models.SyncStats{Trigger: trigger, DaysBack: daysBack}, r.err
}

func (r *recordingRunner) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.triggers...)
}

func TestPeriodicSyncRunsOnStartupThenOnSchedule(t *testing.T) {
	runner := &recordingRunner{}
	svc := NewPeriodicSync(runner, 10*time.Millisecond, 7, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return len(runner.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	triggers := runner.snapshot()
	assert.Equal(t, service.TriggerStartup, triggers[0])
	for _, trigger := range triggers[1:] {
		assert.Equal(t, service.TriggerScheduled, trigger)
	}
}

func TestPeriodicSyncStartupRunHappensOnce(t *testing.T) {
	runner := &recordingRunner{}
	svc := NewPeriodicSync(runner, time.Hour, 7, true)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		require.Eventually(t, func() bool { return len(runner.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
	}

	assert.Equal(t, []string{service.TriggerStartup}, runner.snapshot())
}

func TestPeriodicSyncKeepsGoingAfterFailures(t *testing.T) {
	runner := &recordingRunner{err: errors.New("boom")}
	svc := NewPeriodicSync(runner, 5*time.Millisecond, 7, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool { return len(runner.snapshot()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.NotContains(t, runner.snapshot(), service.TriggerStartup)
}

type fakeServer struct {
	stop       chan struct{}
	listenErr  error
	shutdownCh chan struct{}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	close(f.shutdownCh)
	close(f.stop)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := &fakeServer{stop: make(chan struct{}), shutdownCh: make(chan struct{})}
	var buf bytes.Buffer
	svc := NewHTTPService(server, ":8080", time.Second, zerolog.New(&buf))
	assert.Equal(t, "api::8080", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	select {
	case <-server.shutdownCh:
	default:
		t.Fatal("Shutdown was not called")
	}
	assert.Contains(t, buf.String(), `"addr":":8080"`)
	assert.Contains(t, buf.String(), `"message":"api stopped"`)
}

func TestHTTPServiceListenFailure(t *testing.T) {
	server := &fakeServer{listenErr: errors.New("address in use")}
	var buf bytes.Buffer
	err := NewHTTPService(server, ":8080", time.Second, zerolog.New(&buf)).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on :8080: address in use")
	assert.Contains(t, buf.String(), "api stopped unexpectedly")
}

func TestSupervisorRunsServices(t *testing.T) {
	var buf bytes.Buffer
	sup := NewSupervisor(zerolog.New(&buf), time.Second)

	runner := &recordingRunner{}
	sup.Add(NewPeriodicSync(runner, time.Hour, 3, true))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	require.Eventually(t, func() bool { return len(runner.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-errCh
}
