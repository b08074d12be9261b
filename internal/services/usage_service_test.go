package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tripwise/insights-gateway/internal/domain"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.UsageLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUsageService_BeginFinishRoundTrip(t *testing.T) {
	db := newServiceDB(t)
	svc := &UsageService{DB: db}
	ctx := context.Background()

	p := domain.Principal{UserID: "u1", Email: "u1@example.com", IP: "10.0.0.1"}
	id := svc.Begin(ctx, p, "trip from kyiv to lviv", "en")
	if id == 0 {
		t.Fatal("Begin returned 0")
	}

	var row domain.UsageLog
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Status != domain.StatusPending {
		t.Fatalf("status = %q; want pending", row.Status)
	}
	if row.UserID == nil || *row.UserID != "u1" || row.UserEmail == nil || *row.UserEmail != "u1@example.com" {
		t.Fatalf("identity not persisted: %+v", row)
	}
	if row.PromptLength != len("trip from kyiv to lviv") {
		t.Fatalf("prompt_length = %d", row.PromptLength)
	}

	svc.Finish(ctx, id, domain.StatusSuccess, "", 1500*time.Millisecond)
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if row.Status != domain.StatusSuccess {
		t.Fatalf("status = %q; want success", row.Status)
	}
	if row.DurationMs == nil || *row.DurationMs != 1500 {
		t.Fatalf("duration_ms = %v", row.DurationMs)
	}
	if row.ErrorMessage != nil {
		t.Fatalf("error_message = %v; want nil", row.ErrorMessage)
	}
}

func TestUsageService_TruncatesLongPrompts(t *testing.T) {
	db := newServiceDB(t)
	svc := &UsageService{DB: db}

	long := strings.Repeat("x", 1500)
	id := svc.Begin(context.Background(), domain.Principal{IP: "10.0.0.1"}, long, "en")

	var row domain.UsageLog
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if len(row.Prompt) != 1000 {
		t.Fatalf("stored prompt length = %d; want 1000", len(row.Prompt))
	}
	if !strings.HasSuffix(row.Prompt, "...") {
		t.Fatal("truncated prompt must end with ellipsis")
	}
	if row.PromptLength != 1500 {
		t.Fatalf("prompt_length = %d; want original 1500", row.PromptLength)
	}
}

func TestUsageService_FinishZeroIDIsNoop(t *testing.T) {
	db := newServiceDB(t)
	svc := &UsageService{DB: db}

	// Must not panic or write anything.
	svc.Finish(context.Background(), 0, domain.StatusSuccess, "", time.Second)

	var n int64
	db.Model(&domain.UsageLog{}).Count(&n)
	if n != 0 {
		t.Fatalf("rows = %d; want 0", n)
	}
}

func TestUsageService_RecordRateLimited(t *testing.T) {
	db := newServiceDB(t)
	svc := &UsageService{DB: db}

	svc.RecordRateLimited(context.Background(), domain.Principal{IP: "10.0.0.1"}, "trip", "en")

	var row domain.UsageLog
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Status != domain.StatusRateLimited {
		t.Fatalf("status = %q", row.Status)
	}
	if row.DurationMs == nil || *row.DurationMs != 0 {
		t.Fatalf("duration_ms = %v; want 0 (already final)", row.DurationMs)
	}
}

func TestUsageService_SummaryRates(t *testing.T) {
	db := newServiceDB(t)
	svc := &UsageService{DB: db}
	ctx := context.Background()

	finishAs := func(status string) {
		id := svc.Begin(ctx, domain.Principal{IP: "10.0.0.1"}, "trip", "en")
		svc.Finish(ctx, id, status, "", time.Second)
	}

	finishAs(domain.StatusSuccess)
	finishAs(domain.StatusSuccessCached)
	finishAs(domain.StatusSuccessCached)
	finishAs(domain.StatusSuccessCached)
	finishAs(domain.StatusError)
	svc.RecordRateLimited(ctx, domain.Principal{IP: "10.0.0.2"}, "trip", "en")

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Requests24h != 6 {
		t.Fatalf("Requests24h = %d; want 6", sum.Requests24h)
	}
	if sum.CacheHits24h != 3 {
		t.Fatalf("CacheHits24h = %d; want 3", sum.CacheHits24h)
	}
	// 3 cached of 4 total successes.
	if sum.CacheHitRate != 0.75 {
		t.Fatalf("CacheHitRate = %v; want 0.75", sum.CacheHitRate)
	}
	if sum.Errors24h != 1 || sum.RateLimited24h != 1 {
		t.Fatalf("Errors24h = %d, RateLimited24h = %d", sum.Errors24h, sum.RateLimited24h)
	}
	if want := 1.0 / 6.0; sum.ErrorRate != want {
		t.Fatalf("ErrorRate = %v; want %v", sum.ErrorRate, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 1000); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	got := truncate(strings.Repeat("a", 1001), 1000)
	if len(got) != 1000 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate long = len %d, suffix %q", len(got), got[len(got)-3:])
	}
}
