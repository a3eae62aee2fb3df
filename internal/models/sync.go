package models

import "time"

// SyncStats holds the counters for one sync run. It is never persisted.
type SyncStats struct {
	RunID                string     `json:"run_id"`
	Trigger              string     `json:"trigger"`
	DaysBack             int        `json:"days_back"`
	NewCallsFound        int        `json:"new_calls_found"`
	CallsImported        int        `json:"calls_imported"`
	ParticipantsImported int        `json:"participants_imported"`
	Errors               int        `json:"errors"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	Error                string     `json:"error,omitempty"`
}

// Duration returns the elapsed run time, or zero while the run is still going
func (s SyncStats) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SampleSyncResult is returned by a sample sync instead of only being logged
type SampleSyncResult struct {
	TotalCalls    int    `json:"total_calls"`
	ExistingCalls int    `json:"existing_calls"`
	NewCalls      int    `json:"new_calls"`
	ImportedCalls int    `json:"imported_calls"`
	FailedCalls   int    `json:"failed_calls"`
	Error         string `json:"error,omitempty"`
}

// ImportResult reports the outcome of importing a list of call ids
type ImportResult struct {
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
	Participants int `json:"participants"`
}

// ImportRequest represents the incoming body for a manual import
type ImportRequest struct {
	CallIDs []string `json:"call_ids" validate:"required,min=1,max=500,dive,min=10,max=255"`
}

// SyncResponse represents the body returned by the trigger endpoints
type SyncResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}
