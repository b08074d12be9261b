// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file enforces the tiered multi-window admission policy on the AI
// endpoints. It is distinct from the edge token-bucket limiter (edge.go): the
// edge limiter is cheap flood protection for the whole surface, while this
// one implements the per-caller quota product policy (N requests per minute,
// hour, and day by tier) with the detailed 429 contract clients render.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tripwise/insights-gateway/internal/ratelimit"
	"github.com/tripwise/insights-gateway/internal/services"
)

var admissionRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_admission_rejections_total",
		Help: "Requests rejected by the tiered admission limiter.",
	},
	[]string{"tier", "granularity"},
)

// quotaRejection is the 429 response body. Field names and the granularity
// wire values are a published client contract; do not rename.
type quotaRejection struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	LimitType string      `json:"limitType"`
	ResetTime string      `json:"resetTime"`
	Tier      string      `json:"tier"`
	Limits    quotaLimits `json:"limits"`
}

type quotaLimits struct {
	PerMinute int `json:"perMinute"`
	PerHour   int `json:"perHour"`
	PerDay    int `json:"perDay"`
}

// TierLimiter applies the tiered admission policy per resolved principal.
// Usage is optional; when set, rejected requests are recorded in the ledger
// as rate_limited so abuse shows up in the ops views.
type TierLimiter struct {
	Limiter *ratelimit.Limiter
	Usage   *services.UsageService
}

// Handler returns the Gin middleware. Requires Identity() earlier in the
// chain. On rejection it writes the structured 429 body with the violated
// granularity, reset time (RFC 3339, UTC), tier, and the tier's full limit
// set, plus a Retry-After header.
func (t *TierLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		d := t.Limiter.Admit(p.Identity(), p.Tier())
		if d.Allowed {
			c.Next()
			return
		}

		admissionRejections.WithLabelValues(d.Tier, string(d.Violated)).Inc()
		t.recordRejection(c)

		retryAfter := int(time.Until(d.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, quotaRejection{
			Error:     "Rate limit exceeded",
			Message:   "Too many AI requests. Please try again later.",
			LimitType: string(d.Violated),
			ResetTime: d.ResetAt.UTC().Format(time.RFC3339),
			Tier:      d.Tier,
			Limits: quotaLimits{
				PerMinute: d.Limits.PerMinute,
				PerHour:   d.Limits.PerHour,
				PerDay:    d.Limits.PerDay,
			},
		})
	}
}

// recordRejection writes the rate_limited ledger row. The request is being
// aborted, so consuming the body here is safe; parse failures just leave the
// prompt fields empty.
func (t *TierLimiter) recordRejection(c *gin.Context) {
	if t.Usage == nil {
		return
	}
	var req struct {
		Message  string `json:"message"`
		Language string `json:"language"`
	}
	if raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20)); err == nil {
		_ = json.Unmarshal(bytes.TrimSpace(raw), &req)
	}
	if req.Language == "" {
		req.Language = "en"
	}
	t.Usage.RecordRateLimited(c.Request.Context(), PrincipalFrom(c), req.Message, req.Language)
}
