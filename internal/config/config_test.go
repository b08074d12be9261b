package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/ai" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.TTL != 24*time.Hour || cfg.Cache.MaxSize != 500 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.RateLimit.Unauthenticated != (TierLimits{PerMinute: 3, PerHour: 10, PerDay: 30}) {
		t.Errorf("Unauthenticated = %+v", cfg.RateLimit.Unauthenticated)
	}
	if cfg.RateLimit.Authenticated != (TierLimits{PerMinute: 20, PerHour: 400, PerDay: 1500}) {
		t.Errorf("Authenticated = %+v", cfg.RateLimit.Authenticated)
	}
	if cfg.RateLimit.Premium != (TierLimits{PerMinute: 30, PerHour: 600, PerDay: 2000}) {
		t.Errorf("Premium = %+v", cfg.RateLimit.Premium)
	}
	if cfg.Upstream.WebhookURL != "" {
		t.Errorf("WebhookURL default = %q; want unset", cfg.Upstream.WebhookURL)
	}
	if cfg.Upstream.ExtractorTimeout >= cfg.Upstream.Timeout {
		t.Error("extractor timeout default must be shorter than the workflow timeout")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("API_BASE_PATH", "ai/v2/")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("AI_RATELIMIT_UNAUTH_MINUTE", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("OTEL_ENABLED", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; warning must normalize to warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q; unknown mode must fall back to release", cfg.GinMode)
	}
	if cfg.APIBasePath != "/ai/v2" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.RateLimit.Unauthenticated.PerMinute != 5 {
		t.Errorf("unauth per-minute = %d", cfg.RateLimit.Unauthenticated.PerMinute)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.OTEL.Enabled {
		t.Error("OTEL.Enabled = false; want true for yes")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad cache backend", "CACHE_BACKEND", "memcached"},
		{"zero tier limit", "AI_RATELIMIT_UNAUTH_MINUTE", "0"},
		{"zero edge burst", "RATE_BURST", "0"},
		{"negative edge rps", "RATE_RPS", "-1"},
		{"zero cache size", "CACHE_MAX_SIZE", "0"},
		{"extractor slower than workflow", "N8N_EXTRACTOR_TIMEOUT", "2m"},
		{"sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv(c.key, c.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%s: expected error", c.key, c.value)
			}
		})
	}
}

func TestRateLimitConfig_Limits(t *testing.T) {
	rl := RateLimitConfig{
		Unauthenticated: TierLimits{PerMinute: 1},
		Authenticated:   TierLimits{PerMinute: 2},
		Premium:         TierLimits{PerMinute: 3},
	}
	cases := []struct {
		tier string
		want int
	}{
		{"authenticated", 2},
		{"premium", 3},
		{"unauthenticated", 1},
		{"", 1},
		{"gold", 1},
	}
	for _, c := range cases {
		if got := rl.Limits(c.tier).PerMinute; got != c.want {
			t.Errorf("Limits(%q).PerMinute = %d; want %d", c.tier, got, c.want)
		}
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api", "/api"},
		{"/api/ai/", "/api/ai"},
		{"  /api  ", "/api"},
	}
	for _, c := range cases {
		if got := normalizeBasePath(c.in); got != c.want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}
