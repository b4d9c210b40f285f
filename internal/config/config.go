// Package config loads run configuration from a YAML policy/connection
// file, with SHADOWGRAPH_*-prefixed environment variables overriding
// individual fields. Grounded on the teacher's internal/config/config.go
// (yaml.Unmarshal into a flat struct) and main.go's env-var-with-
// fallback-default idiom.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"shadowgraph/internal/models"
)

// Config is the full run configuration: connection details plus the
// enrichment policy.
type Config struct {
	DatabaseURL            string                  `yaml:"database_url"`
	APIBaseURL             string                  `yaml:"api_base_url"`
	PlatformBaseURL        string                  `yaml:"platform_base_url"`
	RateLimitMax           int                     `yaml:"rate_limit_max"`
	RateLimitWindowSeconds int                     `yaml:"rate_limit_window_seconds"`
	RateLimitStatePath     string                  `yaml:"rate_limit_state_path"`
	Policy                 models.EnrichmentPolicy `yaml:"policy"`
}

// defaults mirrors spec.md §3's documented policy defaults plus the
// sliding-window limits spec.md §4.2 uses in its own examples (15
// requests per 900s window).
func defaults() Config {
	return Config{
		PlatformBaseURL:        "https://example-platform.test",
		RateLimitMax:           15,
		RateLimitWindowSeconds: 900,
		RateLimitStatePath:     "ratelimit_state.json",
		Policy:                 models.DefaultPolicy(),
	}
}

// Load reads path as YAML, falling back to defaults() for anything the
// file omits, then applies SHADOWGRAPH_*-prefixed environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHADOWGRAPH_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SHADOWGRAPH_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("SHADOWGRAPH_PLATFORM_BASE_URL"); v != "" {
		cfg.PlatformBaseURL = v
	}
	if v := os.Getenv("SHADOWGRAPH_RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitMax = n
		}
	}
	if v := os.Getenv("SHADOWGRAPH_RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitWindowSeconds = n
		}
	}
	if v := os.Getenv("SHADOWGRAPH_RATE_LIMIT_STATE_PATH"); v != "" {
		cfg.RateLimitStatePath = v
	}
	if v := os.Getenv("SHADOWGRAPH_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Policy.MaxAgeDays = n
		}
	}
	if v := os.Getenv("SHADOWGRAPH_DELTA_THRESHOLD_PCT"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Policy.DeltaThresholdPct = n
		}
	}
}
