package logging

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{})

	logger := Component("test")
	logger.Info().Str("call_id", "abc").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "abc", entry["call_id"])
	assert.Contains(t, entry, "time")
}

func TestRedact(t *testing.T) {
	fields := map[string]interface{}{
		"clari.api_key":      "abc",
		"clari.api_password": "pw",
		"database.dsn":       "postgres://u:p@h/db",
		"sync.days_back":     7,
	}

	safe := Redact(fields)

	assert.Equal(t, Redacted, safe["clari.api_key"])
	assert.Equal(t, Redacted, safe["clari.api_password"])
	assert.Equal(t, Redacted, safe["database.dsn"])
	assert.Equal(t, 7, safe["sync.days_back"])
	assert.Equal(t, "abc", fields["clari.api_key"], "input must not be modified")
}
