package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := defaults()
	if cfg.RateLimitMax != 15 {
		t.Errorf("got %d, want 15", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindowSeconds != 900 {
		t.Errorf("got %d, want 900", cfg.RateLimitWindowSeconds)
	}
	if cfg.PlatformBaseURL == "" {
		t.Error("PlatformBaseURL should not be empty")
	}
	if cfg.Policy.MaxAgeDays == 0 {
		t.Error("Policy should come from models.DefaultPolicy(), not zero value")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SHADOWGRAPH_DATABASE_URL", "postgres://x/y")
	t.Setenv("SHADOWGRAPH_API_BASE_URL", "https://api.example.test")
	t.Setenv("SHADOWGRAPH_PLATFORM_BASE_URL", "https://platform.example.test")
	t.Setenv("SHADOWGRAPH_RATE_LIMIT_MAX", "42")
	t.Setenv("SHADOWGRAPH_RATE_LIMIT_WINDOW_SECONDS", "120")
	t.Setenv("SHADOWGRAPH_RATE_LIMIT_STATE_PATH", "/tmp/state.json")
	t.Setenv("SHADOWGRAPH_MAX_AGE_DAYS", "14")
	t.Setenv("SHADOWGRAPH_DELTA_THRESHOLD_PCT", "12.5")

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.DatabaseURL != "postgres://x/y" {
		t.Errorf("DatabaseURL: got %q", cfg.DatabaseURL)
	}
	if cfg.APIBaseURL != "https://api.example.test" {
		t.Errorf("APIBaseURL: got %q", cfg.APIBaseURL)
	}
	if cfg.PlatformBaseURL != "https://platform.example.test" {
		t.Errorf("PlatformBaseURL: got %q", cfg.PlatformBaseURL)
	}
	if cfg.RateLimitMax != 42 {
		t.Errorf("RateLimitMax: got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindowSeconds != 120 {
		t.Errorf("RateLimitWindowSeconds: got %d", cfg.RateLimitWindowSeconds)
	}
	if cfg.RateLimitStatePath != "/tmp/state.json" {
		t.Errorf("RateLimitStatePath: got %q", cfg.RateLimitStatePath)
	}
	if cfg.Policy.MaxAgeDays != 14 {
		t.Errorf("Policy.MaxAgeDays: got %d", cfg.Policy.MaxAgeDays)
	}
	if cfg.Policy.DeltaThresholdPct != 12.5 {
		t.Errorf("Policy.DeltaThresholdPct: got %f", cfg.Policy.DeltaThresholdPct)
	}
}

func TestApplyEnvOverrides_EmptyLeavesDefaults(t *testing.T) {
	cfg := defaults()
	before := cfg.RateLimitMax
	applyEnvOverrides(&cfg)
	if cfg.RateLimitMax != before {
		t.Errorf("no env vars set: RateLimitMax should be unchanged, got %d want %d", cfg.RateLimitMax, before)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("no env vars set: DatabaseURL should remain empty, got %q", cfg.DatabaseURL)
	}
}
