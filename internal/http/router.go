// Package httpapi wires the HTTP transport (Gin) to the gateway services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, compression,
// identity resolution, both rate limiters, CORS, and security headers.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tripwise/insights-gateway/internal/cache"
	"github.com/tripwise/insights-gateway/internal/config"
	"github.com/tripwise/insights-gateway/internal/http/handlers"
	"github.com/tripwise/insights-gateway/internal/http/middleware"
	"github.com/tripwise/insights-gateway/internal/ratelimit"
	"github.com/tripwise/insights-gateway/internal/services"
	"github.com/tripwise/insights-gateway/internal/upstream"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the gateway API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limit
//  6. Gzip compression (insight payloads are prose-heavy)
//  7. Metrics
//  8. Identity: resolve the caller for limiters, ledger, and logs
//  9. Edge token-bucket limiter (flood guard, whole surface)
//  10. CORS and security headers
//
// The tiered quota limiter is attached to the insight route only; ops views
// are not metered against AI quotas.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store cache.Store, client *upstream.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.Identity())

	edge := middleware.NewEdgeLimiter(cfg.RateLimit.EdgeRPS, cfg.RateLimit.EdgeBurst)
	r.Use(edge.Handler())

	// CORS posture (safe defaults: allow all when none configured).
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Email", "X-User-Tier"}
	exposeHeaders := []string{"X-Request-ID", "X-Cache-Status", "X-Cache-Key-Type", "Content-Length"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache/upstream
	usageSvc := &services.UsageService{DB: db}
	insightSvc := &services.InsightService{Cache: store, Client: client, Usage: usageSvc}
	h := handlers.New(insightSvc, usageSvc, store)

	quota := &middleware.TierLimiter{
		Limiter: ratelimit.New(cfg.RateLimit),
		Usage:   usageSvc,
	}

	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/ai"
	{
		api.POST("/insights", quota.Handler(), h.GenerateInsight)

		api.GET("/usage/stats", h.UsageStats)
		api.GET("/usage/daily", h.UsageDaily)
		api.GET("/usage/top-users", h.UsageTopUsers)
		api.GET("/usage/top-ips", h.UsageTopIPs)
		api.GET("/usage/recent", h.UsageRecent)

		api.GET("/cache/stats", h.CacheStats)
		api.DELETE("/cache", h.CacheFlush)
	}
}

// limitBody caps the request body size using http.MaxBytesReader; reads past
// the cap error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
