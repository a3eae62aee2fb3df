package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "https://rest-api.copilot.clari.com", cfg.Clari.BaseURL)
	assert.Equal(t, 3, cfg.Clari.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Clari.RetryDelay)
	assert.Equal(t, 1000, cfg.Clari.ListLimit)
	assert.Equal(t, 7, cfg.Sync.DaysBack)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, time.Second, cfg.Sync.PacingDelay)
	assert.Equal(t, "standard", cfg.Sync.FieldSet)
	assert.Equal(t, []string{"yourcompany.com", "internal", "employee"}, cfg.Participants.InternalMarkers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/calls?sslmode=disable")
	t.Setenv("CLARI_API_KEY", "key-123")
	t.Setenv("CLARI_RETRY_DELAY", "2s")
	t.Setenv("CLARI_MAX_RETRIES", "5")
	t.Setenv("SYNC_DAYS_BACK", "14")
	t.Setenv("SYNC_FIELD_SET", "comprehensive")
	t.Setenv("INTERNAL_DOMAIN_MARKERS", "acme.io, staff ,")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/calls?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "key-123", cfg.Clari.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Clari.RetryDelay)
	assert.Equal(t, 5, cfg.Clari.MaxRetries)
	assert.Equal(t, 14, cfg.Sync.DaysBack)
	assert.Equal(t, "comprehensive", cfg.Sync.FieldSet)
	assert.Equal(t, []string{"acme.io", "staff"}, cfg.Participants.InternalMarkers)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
sync:
  days_back: 3
  interval: 6h
clari:
  list_limit: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Sync.DaysBack)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 250, cfg.Clari.ListLimit)
	// untouched values keep their defaults
	assert.Equal(t, 3, cfg.Clari.MaxRetries)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  days_back: 3\n"), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SYNC_DAYS_BACK", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Sync.DaysBack)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad field set", func(c *Config) { c.Sync.FieldSet = "everything" }},
		{"zero days back", func(c *Config) { c.Sync.DaysBack = 0 }},
		{"zero retries", func(c *Config) { c.Clari.MaxRetries = 0 }},
		{"bad base url", func(c *Config) { c.Clari.BaseURL = "not a url" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	require.NoError(t, defaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "clari.api_key", envTransformFunc("CLARI_API_KEY"))
	assert.Equal(t, "database.dsn", envTransformFunc("DATABASE_URL"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}
