// Usage ledger HTTP handlers (ops surface).
//
// This file exposes read-only aggregate views over the usage ledger:
//   - GET /usage/stats      (aggregate snapshot)
//   - GET /usage/daily      (per-day totals)
//   - GET /usage/top-users  (highest-volume authenticated callers)
//   - GET /usage/top-ips    (highest-volume addresses, abuse detection)
//   - GET /usage/recent     (newest ledger rows)
//
// These endpoints are meant for operators and internal dashboards; the router
// mounts them alongside the public insight endpoint and access control is the
// edge's concern.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripwise/insights-gateway/internal/http/middleware"
	"github.com/tripwise/insights-gateway/internal/utils"
)

const (
	defaultWindowDays = 7
	maxWindowDays     = 90
	defaultTopLimit   = 10
	maxListLimit      = 100
)

// UsageStats godoc
// @ID          usageStats
// @Summary     Aggregate usage snapshot
// @Description Request totals, distinct users, error and cache-hit rates for
// @Description the trailing 24h/30d windows.
// @Tags        Usage
// @Produce     json
// @Success     200  {object}  services.UsageSummary
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /usage/stats [get]
func (h *Handlers) UsageStats(c *gin.Context) {
	summary, err := h.usage.Summary(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("usage summary failed")
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not compute usage stats")
		return
	}
	ok(c, http.StatusOK, summary)
}

// UsageDaily godoc
// @ID          usageDaily
// @Summary     Per-day request totals
// @Tags        Usage
// @Produce     json
// @Param       days  query  int  false  "Trailing window in days"  minimum(1) maximum(90) default(7)
// @Success     200  {array}   repo.DailyCount
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /usage/daily [get]
func (h *Handlers) UsageDaily(c *gin.Context) {
	days := utils.ClampInt(utils.AtoiDefault(c.Query("days"), defaultWindowDays), 1, maxWindowDays)
	rows, err := h.usage.Daily(c.Request.Context(), days)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("daily usage query failed")
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not compute usage stats")
		return
	}
	ok(c, http.StatusOK, rows)
}

// UsageTopUsers godoc
// @ID          usageTopUsers
// @Summary     Highest-volume authenticated callers
// @Tags        Usage
// @Produce     json
// @Param       days   query  int  false  "Trailing window in days"  minimum(1) maximum(90) default(7)
// @Param       limit  query  int  false  "Max rows"                 minimum(1) maximum(100) default(10)
// @Success     200  {array}   repo.UserCount
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /usage/top-users [get]
func (h *Handlers) UsageTopUsers(c *gin.Context) {
	days := utils.ClampInt(utils.AtoiDefault(c.Query("days"), defaultWindowDays), 1, maxWindowDays)
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), defaultTopLimit), 1, maxListLimit)
	rows, err := h.usage.TopUsers(c.Request.Context(), days, limit)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("top users query failed")
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not compute usage stats")
		return
	}
	ok(c, http.StatusOK, rows)
}

// UsageTopIPs godoc
// @ID          usageTopIPs
// @Summary     Highest-volume client addresses
// @Tags        Usage
// @Produce     json
// @Param       days   query  int  false  "Trailing window in days"  minimum(1) maximum(90) default(7)
// @Param       limit  query  int  false  "Max rows"                 minimum(1) maximum(100) default(10)
// @Success     200  {array}   repo.AddrCount
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /usage/top-ips [get]
func (h *Handlers) UsageTopIPs(c *gin.Context) {
	days := utils.ClampInt(utils.AtoiDefault(c.Query("days"), defaultWindowDays), 1, maxWindowDays)
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), defaultTopLimit), 1, maxListLimit)
	rows, err := h.usage.TopIPs(c.Request.Context(), days, limit)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("top ips query failed")
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not compute usage stats")
		return
	}
	ok(c, http.StatusOK, rows)
}

// UsageRecent godoc
// @ID          usageRecent
// @Summary     Newest ledger rows
// @Tags        Usage
// @Produce     json
// @Param       limit  query  int  false  "Max rows"  minimum(1) maximum(100) default(20)
// @Success     200  {array}   domain.UsageLog
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /usage/recent [get]
func (h *Handlers) UsageRecent(c *gin.Context) {
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 20), 1, maxListLimit)
	rows, err := h.usage.Recent(c.Request.Context(), limit)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("recent usage query failed")
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not compute usage stats")
		return
	}
	ok(c, http.StatusOK, rows)
}
