package config

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides lets deployment environments override file settings
// without editing the config. Variables use the SITEGEN_ prefix.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.ContentDir, "SITEGEN_CONTENT_DIR")
	setString(&cfg.TemplatesDir, "SITEGEN_TEMPLATES_DIR")
	setString(&cfg.OutputDir, "SITEGEN_OUTPUT_DIR")
	setString(&cfg.BaseURL, "SITEGEN_BASE_URL")
	setString(&cfg.DefaultTemplate, "SITEGEN_DEFAULT_TEMPLATE")
	setString(&cfg.Incremental.StatePath, "SITEGEN_STATE_PATH")
	setString(&cfg.Events.NATSURL, "SITEGEN_NATS_URL")
	setString(&cfg.Events.Subject, "SITEGEN_NATS_SUBJECT")
	setString(&cfg.Watch.MetricsAddr, "SITEGEN_METRICS_ADDR")
	setBool(&cfg.Incremental.Enabled, "SITEGEN_INCREMENTAL")
	setInt(&cfg.Workers, "SITEGEN_WORKERS")
	setDuration(&cfg.Watch.Debounce, "SITEGEN_WATCH_DEBOUNCE")
	setDuration(&cfg.Watch.FullRebuildInterval, "SITEGEN_FULL_REBUILD_INTERVAL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
