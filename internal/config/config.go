// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes gateway settings
// such as server timeouts, logging, ledger storage, per-tier rate limits,
// response caching, and upstream workflow endpoints.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backend selectors accepted by CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// TierLimits holds the request thresholds for one caller tier.
// A window admits at most the configured number of requests; the N+1-th
// request inside the window is rejected.
type TierLimits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// RateLimitConfig defines the three-tier admission thresholds plus the
// edge token-bucket settings applied before tier accounting.
type RateLimitConfig struct {
	Unauthenticated TierLimits
	Authenticated   TierLimits
	Premium         TierLimits // reserved for future use

	// Edge burst protection (token bucket, per identity).
	EdgeRPS   float64 // tokens per second (>= 0)
	EdgeBurst int     // bucket size (>= 1)
}

// CacheConfig defines the AI response cache settings.
type CacheConfig struct {
	Backend  string        // "memory" or "redis"
	TTL      time.Duration // entry lifetime, e.g. 24h
	MaxSize  int           // memory backend only: max entries before LRU eviction
	RedisURL string        // redis backend only, e.g. "redis://localhost:6379/0"
}

// UpstreamConfig defines the n8n-style workflow endpoints the gateway proxies.
type UpstreamConfig struct {
	WebhookURL       string        // full insight workflow (slow)
	ExtractorURL     string        // parameter-only workflow (fast)
	Timeout          time.Duration // read timeout for the full workflow
	ExtractorTimeout time.Duration // read timeout for parameter extraction
	ConnectTimeout   time.Duration // dial timeout shared by both clients
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "insights-gateway")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed the upstream timeout
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Ledger
	DBPath string // SQLite path for the usage ledger

	// Gateway
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Upstream  UpstreamConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/ai")),

		// Ledger
		DBPath: getenv("DB_PATH", "usage.db"),

		// Rate limiting (beta-phase defaults mirror production tiers)
		RateLimit: RateLimitConfig{
			Unauthenticated: TierLimits{
				PerMinute: getint("AI_RATELIMIT_UNAUTH_MINUTE", 3),
				PerHour:   getint("AI_RATELIMIT_UNAUTH_HOURLY", 10),
				PerDay:    getint("AI_RATELIMIT_UNAUTH_DAILY", 30),
			},
			Authenticated: TierLimits{
				PerMinute: getint("AI_RATELIMIT_AUTH_MINUTE", 20),
				PerHour:   getint("AI_RATELIMIT_AUTH_HOURLY", 400),
				PerDay:    getint("AI_RATELIMIT_AUTH_DAILY", 1500),
			},
			Premium: TierLimits{
				PerMinute: getint("AI_RATELIMIT_PREMIUM_MINUTE", 30),
				PerHour:   getint("AI_RATELIMIT_PREMIUM_HOURLY", 600),
				PerDay:    getint("AI_RATELIMIT_PREMIUM_DAILY", 2000),
			},
			EdgeRPS:   getfloat("RATE_RPS", 5.0),
			EdgeBurst: getint("RATE_BURST", 10),
		},

		// Cache
		Cache: CacheConfig{
			Backend:  strings.ToLower(getenv("CACHE_BACKEND", CacheBackendMemory)),
			TTL:      getdur("CACHE_TTL", 24*time.Hour),
			MaxSize:  getint("CACHE_MAX_SIZE", 500),
			RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		},

		// Upstream workflows
		Upstream: UpstreamConfig{
			WebhookURL:       getenv("N8N_WEBHOOK_URL", ""),
			ExtractorURL:     getenv("N8N_EXTRACTOR_URL", ""),
			Timeout:          getdur("N8N_TIMEOUT", 30*time.Second),
			ExtractorTimeout: getdur("N8N_EXTRACTOR_TIMEOUT", 500*time.Millisecond),
			ConnectTimeout:   getdur("N8N_CONNECT_TIMEOUT", 5*time.Second),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "insights-gateway"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	for _, t := range []TierLimits{
		cfg.RateLimit.Unauthenticated,
		cfg.RateLimit.Authenticated,
		cfg.RateLimit.Premium,
	} {
		if t.PerMinute < 1 || t.PerHour < 1 || t.PerDay < 1 {
			return cfg, errors.New("tier rate limits must be >= 1")
		}
	}
	if cfg.RateLimit.EdgeRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateLimit.EdgeBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	switch cfg.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return cfg, errors.New("CACHE_BACKEND must be one of: memory, redis")
	}
	if cfg.Cache.TTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Cache.MaxSize < 1 {
		return cfg, errors.New("CACHE_MAX_SIZE must be >= 1")
	}
	if cfg.Cache.Backend == CacheBackendRedis && strings.TrimSpace(cfg.Cache.RedisURL) == "" {
		return cfg, errors.New("REDIS_URL must not be empty when CACHE_BACKEND=redis")
	}
	if cfg.Upstream.Timeout <= 0 || cfg.Upstream.ExtractorTimeout <= 0 || cfg.Upstream.ConnectTimeout <= 0 {
		return cfg, errors.New("upstream timeouts must be positive durations")
	}
	if cfg.Upstream.ExtractorTimeout >= cfg.Upstream.Timeout {
		return cfg, errors.New("N8N_EXTRACTOR_TIMEOUT must be shorter than N8N_TIMEOUT")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Limits returns the thresholds for a named tier, defaulting to the
// unauthenticated tier for unknown names.
func (r RateLimitConfig) Limits(tier string) TierLimits {
	switch tier {
	case "authenticated":
		return r.Authenticated
	case "premium":
		return r.Premium
	default:
		return r.Unauthenticated
	}
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
