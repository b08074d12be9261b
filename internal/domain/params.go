package domain

import (
	"strconv"
	"strings"
)

// RouteParameters is the structured trip descriptor extracted from a free-form
// prompt, either by the fast extractor workflow or embedded in the full
// workflow response. It exists only to build semantic cache keys and is never
// persisted.
type RouteParameters struct {
	FromCity       string `json:"fromCity"`
	ToCity         string `json:"toCity"`
	PassengerCount int    `json:"passengerCount,omitempty"`
	TripType       string `json:"tripType,omitempty"` // e.g. "budget", "comfort", "fast"
}

// Valid reports whether the parameters are usable for semantic caching:
// both cities must be non-empty after trimming.
func (p *RouteParameters) Valid() bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.FromCity) != "" && strings.TrimSpace(p.ToCity) != ""
}

// CanonicalKey builds the normalized parameter string used as cache key
// input. Format: "from->to[|pN][|triptype]". Missing cities normalize to the
// literal "unknown"; the passenger segment appears only for positive counts.
func (p *RouteParameters) CanonicalKey() string {
	var b strings.Builder
	b.WriteString(normalizeCity(p.FromCity))
	b.WriteString("->")
	b.WriteString(normalizeCity(p.ToCity))

	if p.PassengerCount > 0 {
		b.WriteString("|p")
		b.WriteString(strconv.Itoa(p.PassengerCount))
	}
	if t := strings.ToLower(strings.TrimSpace(p.TripType)); t != "" {
		b.WriteString("|")
		b.WriteString(t)
	}
	return b.String()
}

// normalizeCity lower-cases and trims a city name; empty input becomes the
// literal token "unknown" (kept for parity with historical cache contents).
func normalizeCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return "unknown"
	}
	return c
}

// InsightResponse is the envelope returned by the full insight workflow.
// Older workflow versions return a raw string body instead; callers fall back
// to prompt-keyed caching when this shape cannot be parsed.
type InsightResponse struct {
	// Parameters carries the extracted trip descriptor when the workflow
	// performed extraction alongside generation. Nil on older workflows.
	Parameters *RouteParameters `json:"parameters,omitempty"`

	// Response is the generated insight content (cached and returned as-is).
	Response string `json:"response"`

	// Success reports whether the workflow completed.
	Success bool `json:"success"`

	// Error holds the workflow failure reason when Success is false.
	Error string `json:"error,omitempty"`
}

// Valid reports whether the envelope represents a usable generation result.
func (r *InsightResponse) Valid() bool {
	return r != nil && r.Success && strings.TrimSpace(r.Response) != ""
}

// HasParameters reports whether the envelope carries cache-usable parameters.
func (r *InsightResponse) HasParameters() bool {
	return r != nil && r.Parameters.Valid()
}

// ExtractorResponse is the envelope returned by the parameter-only workflow.
type ExtractorResponse struct {
	Success    bool             `json:"success"`
	Parameters *RouteParameters `json:"parameters,omitempty"`
	Error      string           `json:"error,omitempty"`
}
