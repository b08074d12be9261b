// Package repo implements the persistence layer for the usage ledger,
// backed by GORM. This file provides the UsageLog repository: the two-phase
// append path (create pending, finalize once) and the time-bounded aggregate
// queries behind the ops endpoints.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tripwise/insights-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// DailyCount is one day's request total, for dashboard charts.
type DailyCount struct {
	Day   string `json:"day"` // "2006-01-02"
	Count int64  `json:"count"`
}

// UserCount is one identity's request total within a query window.
type UserCount struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Count     int64  `json:"count"`
}

// AddrCount is one IP address's request total within a query window.
type AddrCount struct {
	IPAddress string `json:"ip_address"`
	Count     int64  `json:"count"`
}

// CreateUsageLog appends a ledger row and returns its id. The caller is
// expected to pass a row in StatusPending; Timestamp defaults to now (UTC)
// when unset.
func CreateUsageLog(ctx context.Context, db *gorm.DB, entry *domain.UsageLog) (uint, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// FinalizeUsageLog performs the single pending→final transition for id.
// Returns ErrNotFound when no row with that id exists.
func FinalizeUsageLog(ctx context.Context, db *gorm.DB, id uint, status string, errorMessage *string, durationMs int64) error {
	res := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"response_status": status,
			"error_message":   errorMessage,
			"duration_ms":     durationMs,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSince returns the total number of ledger rows after the cutoff.
func CountSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("timestamp > ?", since).
		Count(&n).Error
	return n, err
}

// CountByUserSince returns one identity's row count after the cutoff.
func CountByUserSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("user_id = ? AND timestamp > ?", userID, since).
		Count(&n).Error
	return n, err
}

// CountByIPSince returns one address's row count after the cutoff.
func CountByIPSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("ip_address = ? AND timestamp > ?", ip, since).
		Count(&n).Error
	return n, err
}

// CountByStatusSince returns the row count for one status after the cutoff.
func CountByStatusSince(ctx context.Context, db *gorm.DB, status string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("response_status = ? AND timestamp > ?", status, since).
		Count(&n).Error
	return n, err
}

// CountErrorsSince counts rows whose status starts with "error" after the
// cutoff, matching the historical status taxonomy.
func CountErrorsSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("response_status LIKE ? AND timestamp > ?", "error%", since).
		Count(&n).Error
	return n, err
}

// DistinctUsersSince counts distinct authenticated identities after the cutoff.
func DistinctUsersSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Where("user_id IS NOT NULL AND timestamp > ?", since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

// DailyCounts returns per-day request totals after the cutoff, most recent
// day first.
func DailyCounts(ctx context.Context, db *gorm.DB, since time.Time) ([]DailyCount, error) {
	var out []DailyCount
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select("DATE(timestamp) AS day, COUNT(*) AS count").
		Where("timestamp > ?", since).
		Group("DATE(timestamp)").
		Order("day DESC").
		Scan(&out).Error
	return out, err
}

// TopUsers returns the highest-volume authenticated identities after the
// cutoff, descending by count.
func TopUsers(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]UserCount, error) {
	var out []UserCount
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select("user_id, user_email, COUNT(*) AS count").
		Where("user_id IS NOT NULL AND timestamp > ?", since).
		Group("user_id, user_email").
		Order("count DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// TopIPs returns the highest-volume addresses after the cutoff, descending
// by count. Used for abuse detection.
func TopIPs(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]AddrCount, error) {
	var out []AddrCount
	err := db.WithContext(ctx).
		Model(&domain.UsageLog{}).
		Select("ip_address, COUNT(*) AS count").
		Where("timestamp > ?", since).
		Group("ip_address").
		Order("count DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// RecentUsage returns the newest ledger rows, most recent first.
func RecentUsage(ctx context.Context, db *gorm.DB, limit int) ([]domain.UsageLog, error) {
	var out []domain.UsageLog
	err := db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
