// Package services implements the gateway's application layer: the insight
// orchestration pipeline and the usage ledger. This file centralizes common
// service-level error values so they can be consistently returned by service
// methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyPrompt is returned when an insight request carries a blank
	// message.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNotConfigured is returned when the insight workflow URL is unset;
	// the feature is unavailable rather than failing.
	ErrNotConfigured = errors.New("insight workflow is not configured")
)

// UpstreamError wraps a failed insight workflow call (timeout, transport
// fault, or non-2xx status). The wrapped cause is logged internally and must
// never be surfaced verbatim to clients.
type UpstreamError struct {
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string { return "insight workflow call failed: " + e.Err.Error() }

// Unwrap exposes the cause for errors.Is/As checks.
func (e *UpstreamError) Unwrap() error { return e.Err }
