package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/clarisync/config.yaml",
}

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variable names to koanf paths
var envMappings = map[string]string{
	"port":                     "server.port",
	"allowed_origins":          "server.allowed_origins",
	"rate_limit_per_hour":      "server.rate_limit_per_hour",
	"rate_limit_per_day":       "server.rate_limit_per_day",
	"sync_rate_limit_per_hour": "server.sync_limit_per_hour",
	"rate_limit_disabled":      "server.rate_limit_disabled",
	"database_driver":          "database.driver",
	"database_url":             "database.dsn",
	"clari_base_url":           "clari.base_url",
	"clari_api_key":            "clari.api_key",
	"clari_api_password":       "clari.api_password",
	"clari_max_retries":        "clari.max_retries",
	"clari_retry_delay":        "clari.retry_delay",
	"clari_request_timeout":    "clari.request_timeout",
	"clari_list_limit":         "clari.list_limit",
	"sync_enabled":             "sync.enabled",
	"sync_run_on_startup":      "sync.run_on_startup",
	"sync_days_back":           "sync.days_back",
	"sync_interval":            "sync.interval",
	"sync_pacing_delay":        "sync.pacing_delay",
	"sync_field_set":           "sync.field_set",
	"participant_mapping_file": "participants.mapping_file",
	"internal_domain_markers":  "participants.internal_markers",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
}

// sliceConfigPaths are parsed from comma-separated strings when set via env
var sliceConfigPaths = []string{
	"server.allowed_origins",
	"participants.internal_markers",
}

// Load loads configuration from defaults, an optional YAML file, and the
// environment, in increasing priority. A .env file is read first if present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envTransformFunc maps an environment variable to its koanf path. Unknown
// variables map to "" and are skipped by the provider.
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}

		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
