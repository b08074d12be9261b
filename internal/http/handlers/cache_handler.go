// Cache admin HTTP handlers (ops surface).
//
// This file exposes the cache maintenance endpoints:
//   - GET    /cache/stats  (hit/miss counters, entry count, backend kind)
//   - DELETE /cache        (flush all insight entries)
//
// Flushing is coarse on purpose: the cache is best effort and entries are
// regenerated on demand, so the only admin verb needed is "drop everything"
// (e.g. after a workflow prompt change made cached insights stale).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripwise/insights-gateway/internal/http/middleware"
)

// CacheStatsResponse reports cache effectiveness for one process.
type CacheStatsResponse struct {
	Backend string  `json:"backend" example:"memory"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int64   `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// CacheStats godoc
// @ID          cacheStats
// @Summary     Cache statistics
// @Description Hit/miss counters are process-local even for the Redis backend.
// @Tags        Cache
// @Produce     json
// @Success     200  {object}  handlers.CacheStatsResponse
// @Router      /cache/stats [get]
func (h *Handlers) CacheStats(c *gin.Context) {
	s := h.cache.Stats(c.Request.Context())
	ok(c, http.StatusOK, CacheStatsResponse{
		Backend: h.cache.Kind(),
		Hits:    s.Hits,
		Misses:  s.Misses,
		Size:    s.Size,
		HitRate: s.HitRate(),
	})
}

// CacheFlush godoc
// @ID          cacheFlush
// @Summary     Flush the insight cache
// @Tags        Cache
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /cache [delete]
func (h *Handlers) CacheFlush(c *gin.Context) {
	h.cache.EvictAll(c.Request.Context())
	middleware.LoggerFrom(c).Info().Str("backend", h.cache.Kind()).Msg("cache flushed")
	ok(c, http.StatusOK, gin.H{"status": "flushed"})
}
