// Package upstream implements the HTTP clients for the two n8n workflow
// endpoints the gateway depends on: the full insight workflow (slow,
// multi-second LLM generation) and the parameter extractor (fast,
// sub-second). Each has its own http.Client so the extractor's short
// timeout can never stretch to the generation timeout, and timeouts are
// enforced at the client level rather than cooperatively.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tripwise/insights-gateway/internal/config"
	"github.com/tripwise/insights-gateway/internal/domain"
)

const userAgent = "insights-gateway/1.0"

// maxResponseBytes caps how much of an upstream body is read; workflow
// responses are JSON or short prose, never multi-megabyte payloads.
const maxResponseBytes = 4 << 20

// StatusError reports a non-2xx upstream response. The body is not retained;
// upstream internals must not leak toward clients.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// workflowRequest is the JSON payload both workflows accept.
type workflowRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

// Client calls the insight and extractor workflows.
type Client struct {
	webhookURL   string
	extractorURL string

	insight   *http.Client // generation: tens of seconds
	extractor *http.Client // extraction: hundreds of milliseconds
}

// NewClient builds a Client from configuration. URLs may be empty; use
// Configured/ExtractorConfigured before calling the respective endpoint.
func NewClient(cfg config.UpstreamConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: 4,
	}
	return &Client{
		webhookURL:   cfg.WebhookURL,
		extractorURL: cfg.ExtractorURL,
		insight:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		extractor:    &http.Client{Timeout: cfg.ExtractorTimeout, Transport: transport},
	}
}

// Configured reports whether the insight workflow URL is set.
func (c *Client) Configured() bool { return strings.TrimSpace(c.webhookURL) != "" }

// ExtractorConfigured reports whether the extractor workflow URL is set.
func (c *Client) ExtractorConfigured() bool { return strings.TrimSpace(c.extractorURL) != "" }

// MaskedWebhookURL returns the webhook URL reduced to scheme and host,
// for startup logging.
func (c *Client) MaskedWebhookURL() string {
	u := c.webhookURL
	if i := strings.Index(u, "://"); i >= 0 {
		if j := strings.Index(u[i+3:], "/"); j >= 0 {
			return u[:i+3+j] + "/***"
		}
	}
	return u
}

// GenerateInsight calls the full workflow and returns the raw response body
// together with the parsed envelope when the body matches the structured
// shape. Older workflows return a raw string; for those parsed is nil and
// callers fall back to prompt-keyed caching.
func (c *Client) GenerateInsight(ctx context.Context, message, language string) (body string, parsed *domain.InsightResponse, err error) {
	raw, err := c.post(ctx, c.insight, c.webhookURL, message, language)
	if err != nil {
		return "", nil, err
	}

	var envelope domain.InsightResponse
	if jerr := json.Unmarshal(raw, &envelope); jerr != nil {
		// Expected for legacy workflows; not an error condition.
		log.Debug().Err(jerr).Msg("insight response is not a structured envelope")
		return string(raw), nil, nil
	}
	return string(raw), &envelope, nil
}

// ExtractParameters calls the fast parameter-only workflow. It returns nil
// parameters (without error) when the workflow reports success=false or
// omits them; transport failures and timeouts are returned as errors for the
// caller to swallow.
func (c *Client) ExtractParameters(ctx context.Context, message, language string) (*domain.RouteParameters, error) {
	raw, err := c.post(ctx, c.extractor, c.extractorURL, message, language)
	if err != nil {
		return nil, err
	}

	var envelope domain.ExtractorResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		log.Debug().Str("error", envelope.Error).Msg("parameter extraction returned success=false")
		return nil, nil
	}
	return envelope.Parameters, nil
}

// post sends the workflow payload and returns the response body.
// Non-2xx statuses become *StatusError.
func (c *Client) post(ctx context.Context, hc *http.Client, url, message, language string) ([]byte, error) {
	payload, err := json.Marshal(workflowRequest{Message: message, Language: language})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
