// Insight HTTP handler.
//
// This file exposes the main gateway endpoint:
//   - POST /insights  (generate or serve a cached trip insight)
//
// The handler is transport-thin: it validates input, calls the insight
// service, and translates the result into HTTP, including the cache
// diagnostic headers clients and dashboards rely on.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripwise/insights-gateway/internal/cache"
	"github.com/tripwise/insights-gateway/internal/http/middleware"
	"github.com/tripwise/insights-gateway/internal/services"
)

const (
	headerCacheStatus  = "X-Cache-Status"
	headerCacheKeyType = "X-Cache-Key-Type"
)

// Handlers groups the gateway's HTTP endpoints. It depends on the services
// layer and the cache store; no business logic lives here.
type Handlers struct {
	insights *services.InsightService
	usage    *services.UsageService
	cache    cache.Store
}

// New constructs a Handlers instance bound to the given services.
func New(insights *services.InsightService, usage *services.UsageService, store cache.Store) *Handlers {
	return &Handlers{insights: insights, usage: usage, cache: store}
}

// InsightRequest is the JSON payload for requesting a trip insight.
type InsightRequest struct {
	// Message is the free-form trip prompt.
	Message string `json:"message" binding:"required" example:"Trip from Kyiv to Lviv for 2 passengers"`
	// Language is a BCP 47 tag; reduced to its base language, default "en".
	Language string `json:"language" example:"en"`
}

// GenerateInsight godoc
// @ID          generateInsight
// @Summary     Generate a trip insight
// @Description Serves the insight from cache when an equivalent request was seen
// @Description before (semantically via extracted trip parameters, or literally
// @Description via the normalized prompt), otherwise generates it upstream.
// @Description The X-Cache-Status response header reports HIT-SEMANTIC,
// @Description HIT-PROMPT, or MISS; X-Cache-Key-Type reports parameter or prompt.
// @Tags        Insights
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Authenticated user ID (set by the edge)"
// @Param       body       body    handlers.InsightRequest  true  "Trip prompt payload"
//
// @Success     200  {string}  string                  "Insight payload (raw workflow response)"
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or malformed message"
// @Failure     429  {object}  handlers.ErrorResponse  "Quota exceeded"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream workflow failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Workflow not configured"
// @Router      /insights [post]
func (h *Handlers) GenerateInsight(c *gin.Context) {
	var req InsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		return
	}

	p := middleware.PrincipalFrom(c)
	result, err := h.insights.Generate(c.Request.Context(), p, req.Message, req.Language)
	if err != nil {
		var ue *services.UpstreamError
		switch {
		case errors.Is(err, services.ErrEmptyPrompt):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		case errors.Is(err, services.ErrNotConfigured):
			fail(c, http.StatusServiceUnavailable, ErrCodeNotConfigured, "insight generation is not configured")
		case errors.As(err, &ue):
			middleware.LoggerFrom(c).Error().Err(err).Msg("insight generation failed")
			fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "insight generation failed")
		default:
			middleware.LoggerFrom(c).Error().Err(err).Msg("insight generation failed")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	c.Header(headerCacheStatus, result.CacheStatus)
	c.Header(headerCacheKeyType, result.KeyType)
	// The workflow response is returned verbatim; it is JSON for current
	// workflows and a raw string for legacy ones.
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(result.Body))
}
