package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tripwise/insights-gateway/internal/domain"
	"github.com/tripwise/insights-gateway/internal/repo"
)

const (
	// maxStoredPromptLen bounds the prompt column; longer prompts are stored
	// truncated with a trailing ellipsis while PromptLength keeps the original
	// size.
	maxStoredPromptLen = 1000

	// maxStoredErrorLen bounds the error_message column.
	maxStoredErrorLen = 500
)

// UsageService writes and reads the usage ledger. Writes are strictly best
// effort: a ledger failure is logged and swallowed so accounting can never
// block or fail an AI request.
type UsageService struct {
	DB *gorm.DB
}

func usageTracer() trace.Tracer { return otel.Tracer("services/UsageService") }

// Begin appends a pending ledger row for an accepted request and returns its
// id, or 0 when the write failed (Finish treats 0 as a no-op).
func (s *UsageService) Begin(ctx context.Context, p domain.Principal, prompt, language string) uint {
	ctx, span := usageTracer().Start(ctx, "UsageService.Begin")
	defer span.End()

	entry := &domain.UsageLog{
		IPAddress:    p.IP,
		Prompt:       truncate(prompt, maxStoredPromptLen),
		PromptLength: len(prompt),
		Language:     language,
		Status:       domain.StatusPending,
	}
	if p.UserID != "" {
		entry.UserID = &p.UserID
	}
	if p.Email != "" {
		entry.UserEmail = &p.Email
	}

	id, err := repo.CreateUsageLog(ctx, s.DB, entry)
	if err != nil {
		log.Warn().Err(err).Msg("usage ledger write failed")
		return 0
	}
	span.SetAttributes(attribute.Int64("usage.id", int64(id)))
	return id
}

// Finish finalizes the row created by Begin with the terminal status and wall
// time. Safe to call with id 0 (Begin failed) and with an empty errMsg.
func (s *UsageService) Finish(ctx context.Context, id uint, status, errMsg string, elapsed time.Duration) {
	if id == 0 {
		return
	}
	ctx, span := usageTracer().Start(ctx, "UsageService.Finish")
	defer span.End()

	var msg *string
	if errMsg != "" {
		m := truncate(errMsg, maxStoredErrorLen)
		msg = &m
	}
	if err := repo.FinalizeUsageLog(ctx, s.DB, id, status, msg, elapsed.Milliseconds()); err != nil {
		log.Warn().Err(err).Uint("id", id).Msg("usage ledger finalize failed")
	}
}

// RecordRateLimited appends an already-final rate_limited row. Rejected
// requests never reach the pipeline, so there is no pending phase to finalize.
func (s *UsageService) RecordRateLimited(ctx context.Context, p domain.Principal, prompt, language string) {
	zero := int64(0)
	entry := &domain.UsageLog{
		IPAddress:    p.IP,
		Prompt:       truncate(prompt, maxStoredPromptLen),
		PromptLength: len(prompt),
		Language:     language,
		Status:       domain.StatusRateLimited,
		DurationMs:   &zero,
	}
	if p.UserID != "" {
		entry.UserID = &p.UserID
	}
	if p.Email != "" {
		entry.UserEmail = &p.Email
	}
	if _, err := repo.CreateUsageLog(ctx, s.DB, entry); err != nil {
		log.Warn().Err(err).Msg("usage ledger write failed")
	}
}

// UsageSummary is the aggregate snapshot served by the ops stats endpoint.
type UsageSummary struct {
	Requests24h      int64   `json:"requests_24h"`
	Requests30d      int64   `json:"requests_30d"`
	DistinctUsers24h int64   `json:"distinct_users_24h"`
	Errors24h        int64   `json:"errors_24h"`
	RateLimited24h   int64   `json:"rate_limited_24h"`
	CacheHits24h     int64   `json:"cache_hits_24h"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	ErrorRate        float64 `json:"error_rate"`
}

// Summary computes the aggregate snapshot. CacheHitRate is cached successes
// over all successes; ErrorRate is errors over all requests in the window.
func (s *UsageService) Summary(ctx context.Context) (*UsageSummary, error) {
	ctx, span := usageTracer().Start(ctx, "UsageService.Summary")
	defer span.End()

	now := time.Now().UTC()
	day := now.Add(-24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	out := &UsageSummary{}
	var err error
	if out.Requests24h, err = repo.CountSince(ctx, s.DB, day); err != nil {
		return nil, err
	}
	if out.Requests30d, err = repo.CountSince(ctx, s.DB, month); err != nil {
		return nil, err
	}
	if out.DistinctUsers24h, err = repo.DistinctUsersSince(ctx, s.DB, day); err != nil {
		return nil, err
	}
	if out.Errors24h, err = repo.CountErrorsSince(ctx, s.DB, day); err != nil {
		return nil, err
	}
	if out.RateLimited24h, err = repo.CountByStatusSince(ctx, s.DB, domain.StatusRateLimited, day); err != nil {
		return nil, err
	}
	if out.CacheHits24h, err = repo.CountByStatusSince(ctx, s.DB, domain.StatusSuccessCached, day); err != nil {
		return nil, err
	}

	fresh, err := repo.CountByStatusSince(ctx, s.DB, domain.StatusSuccess, day)
	if err != nil {
		return nil, err
	}
	if total := out.CacheHits24h + fresh; total > 0 {
		out.CacheHitRate = float64(out.CacheHits24h) / float64(total)
	}
	if out.Requests24h > 0 {
		out.ErrorRate = float64(out.Errors24h) / float64(out.Requests24h)
	}
	return out, nil
}

// Daily returns per-day request totals for the trailing window.
func (s *UsageService) Daily(ctx context.Context, days int) ([]repo.DailyCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return repo.DailyCounts(ctx, s.DB, since)
}

// TopUsers returns the highest-volume authenticated callers for the window.
func (s *UsageService) TopUsers(ctx context.Context, days, limit int) ([]repo.UserCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return repo.TopUsers(ctx, s.DB, since, limit)
}

// TopIPs returns the highest-volume client addresses for the window.
func (s *UsageService) TopIPs(ctx context.Context, days, limit int) ([]repo.AddrCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return repo.TopIPs(ctx, s.DB, since, limit)
}

// Recent returns the newest ledger rows.
func (s *UsageService) Recent(ctx context.Context, limit int) ([]domain.UsageLog, error) {
	return repo.RecentUsage(ctx, s.DB, limit)
}

// truncate bounds s to max bytes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
