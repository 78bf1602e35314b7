package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PATHREF_[SECTION]_[KEY] (e.g., PATHREF_OBSERVABILITY_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "PATHREF_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "PATHREF_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "PATHREF_PATHS_DATABASE_DIR")

	// Database
	setEnvBool(&cfg.DB.Enabled, "PATHREF_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "PATHREF_DB_PATH")
	setEnvString(&cfg.DB.Project, "PATHREF_DB_PROJECT")

	// Discovery
	setEnvBool(&cfg.Discovery.GoModules, "PATHREF_DISCOVERY_GO_MODULES")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "PATHREF_WATCH_DEBOUNCE")

	// References
	setEnvBoolPtr(&cfg.References.Soft, "PATHREF_REFERENCES_SOFT")
	setEnvBoolPtr(&cfg.References.IncludeLibraries, "PATHREF_REFERENCES_INCLUDE_LIBRARIES")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "PATHREF_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "PATHREF_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PATHREF_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvFloat64(&cfg.Observability.RateLimit, "PATHREF_OBSERVABILITY_RATE_LIMIT")
	setEnvInt(&cfg.Observability.Burst, "PATHREF_OBSERVABILITY_BURST")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
