// Package clari is a client for the Clari Copilot REST API, the source of
// call records for the sync.
package clari

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"clarisync/internal/config"
	"clarisync/internal/logging"
	"clarisync/internal/metrics"
)

const (
	endpointCallDetails = "call-details"
	endpointCalls       = "calls"

	// listTimeLayout matches the naive ISO timestamps the listing endpoint accepts
	listTimeLayout = "2006-01-02T15:04:05"

	maxErrorBodySize = 64 * 1024
)

var (
	// ErrPermanentStatus is returned for non-200 responses that are not retried
	ErrPermanentStatus = errors.New("permanent error status from call source")

	// ErrRetriesExhausted is returned when every attempt hit a transient failure
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrMalformedPayload is returned for a 200 response without a usable call object
	ErrMalformedPayload = errors.New("response has no call object")
)

// StatusError is a non-200 response from the call source
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("call source returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt (429 or 5xx)
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Is makes errors.Is(err, ErrPermanentStatus) true for non-retryable statuses
func (e *StatusError) Is(target error) bool {
	return target == ErrPermanentStatus && !e.Retryable()
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client talks to the call source over authenticated GET requests
type Client struct {
	baseURL     string
	apiKey      string
	apiPassword string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	listLimit   int
	logger      zerolog.Logger
	sleep       SleepFunc
	now         func() time.Time
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithSleep replaces the wait used between retries
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClock replaces the clock used to compute listing windows
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client from configuration
func NewClient(cfg *config.ClariConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiPassword: cfg.APIPassword,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		listLimit:   cfg.ListLimit,
		logger:      logging.Component("clari"),
		sleep:       SleepContext,
		now:         time.Now,
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchCallDetails returns the call object for callID, or false when it could
// not be fetched. Failures are logged by CallDetails.
func (c *Client) FetchCallDetails(ctx context.Context, callID string) (map[string]any, bool) {
	call, err := c.CallDetails(ctx, callID)
	if err != nil {
		return nil, false
	}
	return call, true
}

// CallDetails fetches one call. 429, 5xx, transport and decode failures are
// retried after a fixed delay, up to maxRetries attempts in total. Any other
// non-200 status fails immediately with ErrPermanentStatus, and a JSON body
// with a missing or empty call object with ErrMalformedPayload.
func (c *Client) CallDetails(ctx context.Context, callID string) (map[string]any, error) {
	params := url.Values{}
	params.Set("id", callID)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var envelope struct {
			Call map[string]any `json:"call"`
		}
		status, err := c.get(ctx, endpointCallDetails, "/call-details", params, &envelope)
		if err == nil && len(envelope.Call) == 0 {
			err = ErrMalformedPayload
		}
		if err == nil {
			return envelope.Call, nil
		}

		if errors.Is(err, ErrPermanentStatus) || errors.Is(err, ErrMalformedPayload) {
			c.logger.Warn().
				Str("call_id", callID).
				Int("status", status).
				Err(err).
				Msg("call fetch failed, not retrying")
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.logger.Warn().
			Str("call_id", callID).
			Int("attempt", attempt).
			Int("max_attempts", c.maxRetries).
			Int("status", status).
			Str("error_type", logging.ErrorType(err)).
			Err(err).
			Msg("transient error fetching call")

		if attempt == c.maxRetries {
			break
		}

		metrics.RecordRemoteRetry(endpointCallDetails)
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return nil, err
		}
	}

	c.logger.Error().
		Str("call_id", callID).
		Int("attempts", c.maxRetries).
		Err(lastErr).
		Msg("giving up on call")
	return nil, fmt.Errorf("%w: call %s after %d attempts: %w", ErrRetriesExhausted, callID, c.maxRetries, lastErr)
}

// ListRecentCallIDs returns ids of calls in [now-daysBack, now], in source
// order. Any failure is logged and yields an empty slice.
func (c *Client) ListRecentCallIDs(ctx context.Context, daysBack int) []string {
	end := c.now()
	start := end.AddDate(0, 0, -daysBack)

	params := url.Values{}
	params.Set("start_date", start.Format(listTimeLayout))
	params.Set("end_date", end.Format(listTimeLayout))
	params.Set("limit", strconv.Itoa(c.listLimit))

	var resp struct {
		Calls []struct {
			ID callID `json:"id"`
		} `json:"calls"`
	}
	status, err := c.get(ctx, endpointCalls, "/calls", params, &resp)
	if err != nil {
		c.logger.Error().
			Int("days_back", daysBack).
			Int("status", status).
			Str("error_type", logging.ErrorType(err)).
			Err(err).
			Msg("failed to list recent calls")
		return []string{}
	}

	ids := make([]string, 0, len(resp.Calls))
	for _, call := range resp.Calls {
		if call.ID != "" {
			ids = append(ids, string(call.ID))
		}
	}

	c.logger.Info().Int("days_back", daysBack).Int("count", len(ids)).Msg("listed recent calls")
	return ids
}

// get issues one authenticated GET and decodes a 200 body into out
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (int, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Api-Password", c.apiPassword)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordRemoteRequest(endpoint, 0)
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest(endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	// numbers stay json.Number so large speaker ids keep every digit
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// callID accepts both string and numeric ids in listing responses
type callID string

func (id *callID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*id = callID(str)
		return nil
	}
	*id = callID(s)
	return nil
}
