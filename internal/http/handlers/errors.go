// Package handlers defines the HTTP-layer error codes used across endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them
// programmatically, so renaming one is a breaking change. Handlers pick the
// most specific matching code and pass it to fail() with the HTTP status.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeNotConfigured  = "not_configured"
	ErrCodeUpstreamFailed = "upstream_failed"
	ErrCodeStatsFailed    = "stats_failed"
)
