package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Clari        ClariConfig        `koanf:"clari"`
	Sync         SyncConfig         `koanf:"sync"`
	Participants ParticipantsConfig `koanf:"participants"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port               int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout        time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	AllowedOrigins     []string      `koanf:"allowed_origins"`
	RateLimitPerHour   int           `koanf:"rate_limit_per_hour" validate:"min=0"`
	RateLimitPerDay    int           `koanf:"rate_limit_per_day" validate:"min=0"`
	SyncLimitPerHour   int           `koanf:"sync_limit_per_hour" validate:"min=0"`
	RateLimitDisabled  bool          `koanf:"rate_limit_disabled"`
	MaxSampleSyncDays  int           `koanf:"max_sample_sync_days" validate:"min=1"`
	MaxImportBatchSize int           `koanf:"max_import_batch_size" validate:"min=1"`
}

// DatabaseConfig selects the relational store
type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

// ClariConfig holds the remote call source settings
type ClariConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	APIKey         string        `koanf:"api_key"`
	APIPassword    string        `koanf:"api_password"`
	MaxRetries     int           `koanf:"max_retries" validate:"min=1,max=10"`
	RetryDelay     time.Duration `koanf:"retry_delay" validate:"min=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"min=0"`
	ListLimit      int           `koanf:"list_limit" validate:"min=1"`
}

// SyncConfig controls the scheduled sync
type SyncConfig struct {
	Enabled      bool          `koanf:"enabled"`
	RunOnStartup bool          `koanf:"run_on_startup"`
	DaysBack     int           `koanf:"days_back" validate:"min=1"`
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	PacingDelay  time.Duration `koanf:"pacing_delay" validate:"min=0"`
	FieldSet     string        `koanf:"field_set" validate:"oneof=standard comprehensive"`
}

// ParticipantsConfig controls participant identity resolution
type ParticipantsConfig struct {
	MappingFile     string   `koanf:"mapping_file"`
	InternalMarkers []string `koanf:"internal_markers"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Minute, // manual syncs block the request
			IdleTimeout:        60 * time.Second,
			AllowedOrigins:     []string{"*"},
			RateLimitPerHour:   50,
			RateLimitPerDay:    200,
			SyncLimitPerHour:   10,
			MaxSampleSyncDays:  90,
			MaxImportBatchSize: 500,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./clarisync.db",
		},
		Clari: ClariConfig{
			BaseURL:        "https://rest-api.copilot.clari.com",
			MaxRetries:     3,
			RetryDelay:     30 * time.Second,
			RequestTimeout: 0, // transport default
			ListLimit:      1000,
		},
		Sync: SyncConfig{
			Enabled:     true,
			DaysBack:    7,
			Interval:    24 * time.Hour,
			PacingDelay: time.Second,
			FieldSet:    "standard",
		},
		Participants: ParticipantsConfig{
			MappingFile:     "personid_mapping.csv",
			InternalMarkers: []string{"yourcompany.com", "internal", "employee"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks struct tags on the whole configuration
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Fields flattens the configuration for logging. Sensitive values are
// expected to be hidden by the caller.
func (c *Config) Fields() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                c.Server.Port,
		"server.allowed_origins":     c.Server.AllowedOrigins,
		"server.rate_limit_disabled": c.Server.RateLimitDisabled,
		"database.driver":            c.Database.Driver,
		"database.dsn":               c.Database.DSN,
		"clari.base_url":             c.Clari.BaseURL,
		"clari.api_key":              c.Clari.APIKey,
		"clari.api_password":         c.Clari.APIPassword,
		"clari.max_retries":          c.Clari.MaxRetries,
		"clari.retry_delay":          c.Clari.RetryDelay.String(),
		"sync.enabled":               c.Sync.Enabled,
		"sync.days_back":             c.Sync.DaysBack,
		"sync.interval":              c.Sync.Interval.String(),
		"sync.pacing_delay":          c.Sync.PacingDelay.String(),
		"sync.field_set":             c.Sync.FieldSet,
		"participants.mapping_file":  c.Participants.MappingFile,
		"logging.level":              c.Logging.Level,
	}
}
