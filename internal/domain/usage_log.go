// Package domain defines the persistence and wire-level types of the AI
// gateway: the usage ledger model, extracted route parameters, and the
// upstream workflow response envelope.
package domain

import "time"

// Ledger statuses. Every entry starts as pending and is finalized exactly
// once with one of the terminal statuses.
const (
	StatusPending       = "pending"
	StatusSuccess       = "success"
	StatusSuccessCached = "success_cached"
	StatusError         = "error"
	StatusRateLimited   = "rate_limited"
)

// UsageLog is one append-only ledger row per AI request. Rows are written in
// two phases: created with StatusPending when the request is accepted, then
// finalized with the outcome and duration. Rows are never mutated after
// finalization.
//
// Fields:
//   - UserID / UserEmail: identity of the caller when authenticated.
//   - IPAddress: client IP (always recorded, used for abuse detection).
//   - Prompt: truncated prompt text (privacy/size bound); PromptLength keeps
//     the original length.
//   - Status: pending → success | success_cached | error | rate_limited.
//   - DurationMs: wall time of the request once finalized.
type UsageLog struct {
	ID           uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	UserID       *string   `json:"user_id,omitempty"  gorm:"type:varchar(64);index:idx_usage_user_ts,priority:1"`
	UserEmail    *string   `json:"user_email,omitempty" gorm:"type:varchar(255)"`
	IPAddress    string    `json:"ip_address"    gorm:"type:varchar(45);not null;index:idx_usage_ip_ts,priority:1"`
	Prompt       string    `json:"prompt"        gorm:"type:varchar(1000);not null"`
	PromptLength int       `json:"prompt_length" gorm:"not null"`
	Language     string    `json:"language"      gorm:"type:varchar(10);not null"`
	Status       string    `json:"status"        gorm:"column:response_status;type:varchar(50);not null"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`
	Timestamp    time.Time `json:"timestamp"     gorm:"not null;index;index:idx_usage_user_ts,priority:2;index:idx_usage_ip_ts,priority:2"`
	DurationMs   *int64    `json:"duration_ms,omitempty"`
}

// TableName returns the database table name for UsageLog.
func (UsageLog) TableName() string { return "ai_usage_log" }
