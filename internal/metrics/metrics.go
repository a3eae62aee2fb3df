// Package metrics exposes Prometheus instrumentation for the sync pipeline
// and the HTTP surface. All collectors register on the default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync runs
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clarisync_sync_runs_total",
			Help: "Total number of sync runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: "success", "error", "skipped"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clarisync_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clarisync_last_successful_sync_timestamp",
			Help: "Unix timestamp of the last sync run that finished without a batch-level error",
		},
	)

	// Import pipeline
	CallsImportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clarisync_calls_imported_total",
			Help: "Total number of calls written to the store",
		},
	)

	CallsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clarisync_calls_failed_total",
			Help: "Total number of calls that failed to import",
		},
		[]string{"reason"}, // "fetch", "write", "no_rows", "panic"
	)

	ParticipantsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clarisync_participants_written_total",
			Help: "Total number of participant rows written",
		},
	)

	// Remote source
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clarisync_remote_requests_total",
			Help: "Total number of requests to the call source by endpoint and status class",
		},
		[]string{"endpoint", "status_class"}, // status_class: "2xx", "4xx", "5xx", "error"
	)

	RemoteRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clarisync_remote_retries_total",
			Help: "Total number of retried requests to the call source",
		},
		[]string{"endpoint"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clarisync_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clarisync_api_request_duration_seconds",
			Help:    "HTTP API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordSyncRun records the outcome of one sync run
func RecordSyncRun(trigger string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SyncRunsTotal.WithLabelValues(trigger, outcome).Inc()
	SyncDuration.Observe(duration.Seconds())
	if err == nil {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordSyncSkipped records a trigger rejected because a run was in progress
func RecordSyncSkipped(trigger string) {
	SyncRunsTotal.WithLabelValues(trigger, "skipped").Inc()
}

// RecordCallImported records one successfully written call and its participants
func RecordCallImported(participants int) {
	CallsImportedTotal.Inc()
	ParticipantsWrittenTotal.Add(float64(participants))
}

// RecordCallFailed records one call that could not be imported
func RecordCallFailed(reason string) {
	CallsFailedTotal.WithLabelValues(reason).Inc()
}

// RecordRemoteRequest records one request to the call source. A zero status
// means the request never produced a response.
func RecordRemoteRequest(endpoint string, status int) {
	RemoteRequestsTotal.WithLabelValues(endpoint, StatusClass(status)).Inc()
}

// RecordRemoteRetry records one retry against the call source
func RecordRemoteRetry(endpoint string) {
	RemoteRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordAPIRequest records HTTP API request metrics
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
