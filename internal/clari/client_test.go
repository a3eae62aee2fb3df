package clari

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarisync/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var sleeps []time.Duration
	cfg := &config.ClariConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		APIPassword: "test-password",
		MaxRetries:  3,
		RetryDelay:  30 * time.Second,
		ListLimit:   1000,
	}
	all := append([]Option{WithSleep(func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	})}, opts...)
	return NewClient(cfg, all...), &sleeps
}

func TestCallDetailsSendsAuthHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call-details", r.URL.Path)
		assert.Equal(t, "call-0000000001", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "test-password", r.Header.Get("X-Api-Password"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"call":{"id":"call-0000000001","metrics":{"call_duration":42}}}`))
	})

	call, ok := client.FetchCallDetails(context.Background(), "call-0000000001")
	require.True(t, ok)
	assert.Equal(t, "call-0000000001", call["id"])
	metrics, ok := call["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("42"), metrics["call_duration"])
}

func TestCallDetailsKeepsLargeNumericIDs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"call":{"transcript":[{"personId":9007199254740993},{"personId":9007199254740992}]}}`))
	})

	call, ok := client.FetchCallDetails(context.Background(), "call-0000000001")
	require.True(t, ok)

	transcript, ok := call["transcript"].([]any)
	require.True(t, ok)
	require.Len(t, transcript, 2)
	first := transcript[0].(map[string]any)["personId"]
	second := transcript[1].(map[string]any)["personId"]
	assert.Equal(t, json.Number("9007199254740993"), first)
	assert.Equal(t, json.Number("9007199254740992"), second)
}

func TestCallDetailsRetriesTransientStatus(t *testing.T) {
	var attempts int32
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	call, err := client.CallDetails(context.Background(), "call-0000000001")

	assert.Nil(t, call)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, *sleeps)
}

func TestCallDetailsRecoversAfterRateLimit(t *testing.T) {
	var attempts int32
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"call":{"id":"abc"}}`))
	})

	call, ok := client.FetchCallDetails(context.Background(), "call-0000000001")
	require.True(t, ok)
	assert.Equal(t, "abc", call["id"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Len(t, *sleeps, 1)
}

func TestCallDetailsPermanentStatusNotRetried(t *testing.T) {
	var attempts int32
	client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.CallDetails(context.Background(), "call-0000000001")

	assert.ErrorIs(t, err, ErrPermanentStatus)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Empty(t, *sleeps)
}

func TestCallDetailsMalformedBodyRetried(t *testing.T) {
	var attempts int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_, _ = w.Write([]byte(`{not json`))
	})

	_, ok := client.FetchCallDetails(context.Background(), "call-0000000001")
	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestCallDetailsMissingEnvelopeNotRetried(t *testing.T) {
	for _, body := range []string{`{"something":"else"}`, `{"call":{}}`, `{"call":null}`} {
		var attempts int32
		client, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			_, _ = w.Write([]byte(body))
		})

		_, err := client.CallDetails(context.Background(), "call-0000000001")
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
		assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), body)
		assert.Empty(t, *sleeps, body)
	}
}

func TestCallDetailsStopsOnCancel(t *testing.T) {
	var attempts int32
	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := client.CallDetails(ctx, "call-0000000001")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestListRecentCallIDs(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calls", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-03-03T12:00:00", q.Get("start_date"))
		assert.Equal(t, "2026-03-10T12:00:00", q.Get("end_date"))
		assert.Equal(t, "1000", q.Get("limit"))
		_, _ = w.Write([]byte(`{"calls":[{"id":"c-2"},{"id":"c-1"},{"id":12345},{"id":null}]}`))
	}, WithClock(func() time.Time { return now }))

	ids := client.ListRecentCallIDs(context.Background(), 7)
	assert.Equal(t, []string{"c-2", "c-1", "12345"}, ids)
}

func TestListRecentCallIDsSoftFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ids := client.ListRecentCallIDs(context.Background(), 7)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
