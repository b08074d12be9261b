// Command server runs the AI insights gateway: an HTTP facade in front of the
// n8n insight workflow that adds tiered rate limiting, two-level response
// caching, and usage accounting.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/tripwise/insights-gateway/docs" // swagger spec, generated
	"github.com/tripwise/insights-gateway/internal/cache"
	"github.com/tripwise/insights-gateway/internal/config"
	httpapi "github.com/tripwise/insights-gateway/internal/http"
	"github.com/tripwise/insights-gateway/internal/observability"
	"github.com/tripwise/insights-gateway/internal/repo"
	"github.com/tripwise/insights-gateway/internal/sysutil"
	"github.com/tripwise/insights-gateway/internal/upstream"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Msg("starting insights gateway")

	// Tracing
	ctx := context.Background()
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Usage ledger
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("ledger database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("ledger migration failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin failed, continuing without query spans")
		}
	}

	// Response cache
	var store cache.Store
	var redisStore *cache.RedisStore
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisStore, err = cache.NewRedisStore(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis cache init failed")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("redis unreachable")
		}
		cancel()
		store = redisStore
		log.Info().Str("backend", store.Kind()).Dur("ttl", cfg.Cache.TTL).Msg("response cache ready")
	default:
		store = cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.MaxSize)
		log.Info().Str("backend", store.Kind()).Dur("ttl", cfg.Cache.TTL).Int("max_size", cfg.Cache.MaxSize).Msg("response cache ready")
	}

	// Upstream workflows
	client := upstream.NewClient(cfg.Upstream)
	if client.Configured() {
		log.Info().Str("webhook", client.MaskedWebhookURL()).Msg("insight workflow configured")
	} else {
		log.Warn().Msg("N8N_WEBHOOK_URL not set; insight requests will return 503")
	}
	if !client.ExtractorConfigured() {
		log.Info().Msg("extractor workflow not set; semantic caching degrades to prompt keys")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, store, client, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("stopped")
}
