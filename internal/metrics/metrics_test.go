package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{404, "4xx"},
		{429, "4xx"},
		{503, "5xx"},
		{0, "error"},
		{999, "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusClass(tt.status), "status %d", tt.status)
	}
}

func TestRecordSyncRun(t *testing.T) {
	before := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("test", "success"))
	beforeErr := testutil.ToFloat64(SyncRunsTotal.WithLabelValues("test", "error"))

	RecordSyncRun("test", time.Second, nil)
	RecordSyncRun("test", time.Second, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(SyncRunsTotal.WithLabelValues("test", "success")))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(SyncRunsTotal.WithLabelValues("test", "error")))
	assert.Greater(t, testutil.ToFloat64(LastSuccessfulSync), float64(0))
}

func TestRecordCallImported(t *testing.T) {
	calls := testutil.ToFloat64(CallsImportedTotal)
	participants := testutil.ToFloat64(ParticipantsWrittenTotal)

	RecordCallImported(3)

	assert.Equal(t, calls+1, testutil.ToFloat64(CallsImportedTotal))
	assert.Equal(t, participants+3, testutil.ToFloat64(ParticipantsWrittenTotal))
}

func TestRecordRemoteRequest(t *testing.T) {
	before := testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("call-details", "5xx"))
	RecordRemoteRequest("call-details", 503)
	assert.Equal(t, before+1, testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("call-details", "5xx")))
}
