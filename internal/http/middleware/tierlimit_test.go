package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tripwise/insights-gateway/internal/config"
	"github.com/tripwise/insights-gateway/internal/domain"
	"github.com/tripwise/insights-gateway/internal/ratelimit"
	"github.com/tripwise/insights-gateway/internal/services"
)

func tierTestConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Unauthenticated: config.TierLimits{PerMinute: 2, PerHour: 10, PerDay: 30},
		Authenticated:   config.TierLimits{PerMinute: 5, PerHour: 400, PerDay: 1500},
		Premium:         config.TierLimits{PerMinute: 8, PerHour: 600, PerDay: 2000},
	}
}

func newQuotaRouter(t *testing.T, usage *services.UsageService) *gin.Engine {
	t.Helper()
	quota := &TierLimiter{Limiter: ratelimit.New(tierTestConfig()), Usage: usage}
	r := gin.New()
	r.Use(Identity())
	r.POST("/insights", quota.Handler(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func postInsight(r *gin.Engine, body string, set func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/insights", bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.1:1000"
	req.Header.Set("Content-Type", "application/json")
	if set != nil {
		set(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTierLimiter_RejectsWithContractBody(t *testing.T) {
	r := newQuotaRouter(t, nil)

	for i := 0; i < 2; i++ {
		if w := postInsight(r, `{"message":"trip"}`, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := postInsight(r, `{"message":"trip"}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d; want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}

	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		LimitType string `json:"limitType"`
		ResetTime string `json:"resetTime"`
		Tier      string `json:"tier"`
		Limits    struct {
			PerMinute int `json:"perMinute"`
			PerHour   int `json:"perHour"`
			PerDay    int `json:"perDay"`
		} `json:"limits"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal 429 body: %v", err)
	}
	if body.Error != "Rate limit exceeded" {
		t.Fatalf("error = %q", body.Error)
	}
	if body.LimitType != "per-minute" {
		t.Fatalf("limitType = %q; want per-minute", body.LimitType)
	}
	if body.Tier != "unauthenticated" {
		t.Fatalf("tier = %q", body.Tier)
	}
	if body.Limits.PerMinute != 2 || body.Limits.PerHour != 10 || body.Limits.PerDay != 30 {
		t.Fatalf("limits = %+v", body.Limits)
	}
	reset, err := time.Parse(time.RFC3339, body.ResetTime)
	if err != nil {
		t.Fatalf("resetTime %q is not RFC 3339: %v", body.ResetTime, err)
	}
	if until := time.Until(reset); until <= 0 || until > time.Minute+time.Second {
		t.Fatalf("resetTime %v not within the next minute", reset)
	}
}

func TestTierLimiter_AuthenticatedGetsOwnBudget(t *testing.T) {
	r := newQuotaRouter(t, nil)

	asUser := func(req *http.Request) { req.Header.Set("X-User-ID", "u1") }

	// Exhaust the anonymous budget from the same IP.
	postInsight(r, `{"message":"trip"}`, nil)
	postInsight(r, `{"message":"trip"}`, nil)
	if w := postInsight(r, `{"message":"trip"}`, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("anonymous status = %d; want 429", w.Code)
	}

	// The authenticated caller on the same IP has an independent, larger budget.
	for i := 0; i < 5; i++ {
		if w := postInsight(r, `{"message":"trip"}`, asUser); w.Code != http.StatusOK {
			t.Fatalf("authenticated request %d status = %d", i+1, w.Code)
		}
	}
	if w := postInsight(r, `{"message":"trip"}`, asUser); w.Code != http.StatusTooManyRequests {
		t.Fatalf("6th authenticated status = %d; want 429", w.Code)
	}
}

func TestTierLimiter_RecordsRejectionInLedger(t *testing.T) {
	dsn := fmt.Sprintf("file:tierlimit_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.UsageLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	usage := &services.UsageService{DB: db}

	r := newQuotaRouter(t, usage)
	postInsight(r, `{"message":"trip to lviv"}`, nil)
	postInsight(r, `{"message":"trip to lviv"}`, nil)
	postInsight(r, `{"message":"trip to lviv","language":"uk"}`, nil)

	var rows []domain.UsageLog
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ledger rows = %d; want 1 (only the rejection)", len(rows))
	}
	if rows[0].Status != domain.StatusRateLimited {
		t.Fatalf("status = %q", rows[0].Status)
	}
	if rows[0].Prompt != "trip to lviv" || rows[0].Language != "uk" {
		t.Fatalf("prompt/language = %q/%q", rows[0].Prompt, rows[0].Language)
	}
}
