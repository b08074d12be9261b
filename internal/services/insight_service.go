package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripwise/insights-gateway/internal/cache"
	"github.com/tripwise/insights-gateway/internal/domain"
	"github.com/tripwise/insights-gateway/internal/upstream"
)

// X-Cache-Status header values.
const (
	CacheHitSemantic = "HIT-SEMANTIC" // served from the parameter-keyed entry
	CacheHitPrompt   = "HIT-PROMPT"   // served from the prompt-keyed entry
	CacheMiss        = "MISS"         // generated upstream
)

// X-Cache-Key-Type header values.
const (
	KeyTypeParameter = "parameter"
	KeyTypePrompt    = "prompt"
)

// InsightResult is the outcome of one served insight request.
type InsightResult struct {
	// Body is the raw workflow response, returned to the client verbatim.
	Body string

	// CacheStatus is one of CacheHitSemantic, CacheHitPrompt, CacheMiss.
	CacheStatus string

	// KeyType names the key family that served (or populated) the response.
	KeyType string
}

// InsightService runs the request pipeline: parameter extraction, two-key
// cache lookup, upstream generation, cache population, and ledger accounting.
type InsightService struct {
	Cache  cache.Store
	Client *upstream.Client
	Usage  *UsageService
}

func insightTracer() trace.Tracer { return otel.Tracer("services/InsightService") }

// Generate serves one insight request for the given caller.
//
// Lookup order is semantic first (parameter key from the fast extractor),
// then literal (normalized prompt key), then upstream. Extraction is best
// effort: any extractor failure degrades to the literal path without
// surfacing an error. A miss populates both key families when parameters are
// known, so either phrasing of the same trip hits next time.
func (s *InsightService) Generate(ctx context.Context, p domain.Principal, prompt, lang string) (*InsightResult, error) {
	ctx, span := insightTracer().Start(ctx, "InsightService.Generate")
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if !s.Client.Configured() {
		return nil, ErrNotConfigured
	}
	lang = cache.NormalizeLanguage(lang)
	span.SetAttributes(attribute.String("insight.language", lang))

	started := time.Now()
	logID := s.Usage.Begin(ctx, p, prompt, lang)

	// Best-effort semantic lookup. Extractor faults (timeout, transport,
	// malformed body) must never fail the request.
	params := s.extract(ctx, prompt, lang)
	if params.Valid() {
		key := cache.ParameterKey(params, lang)
		if body, ok := s.Cache.Get(ctx, key); ok {
			cacheLookups.WithLabelValues("hit_semantic").Inc()
			span.SetAttributes(attribute.String("cache.status", CacheHitSemantic))
			s.Usage.Finish(ctx, logID, domain.StatusSuccessCached, "", time.Since(started))
			return &InsightResult{Body: body, CacheStatus: CacheHitSemantic, KeyType: KeyTypeParameter}, nil
		}
	}

	promptKey := cache.PromptKey(prompt, lang)
	if body, ok := s.Cache.Get(ctx, promptKey); ok {
		cacheLookups.WithLabelValues("hit_prompt").Inc()
		span.SetAttributes(attribute.String("cache.status", CacheHitPrompt))
		s.Usage.Finish(ctx, logID, domain.StatusSuccessCached, "", time.Since(started))
		return &InsightResult{Body: body, CacheStatus: CacheHitPrompt, KeyType: KeyTypePrompt}, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	// Detach from request cancellation for the generation call: a client that
	// gives up mid-generation should still populate the cache for the next
	// caller. The upstream client timeout bounds the call either way.
	callCtx := context.WithoutCancel(ctx)
	body, parsed, err := s.Client.GenerateInsight(callCtx, prompt, lang)
	if err != nil {
		upstreamDuration.WithLabelValues("error").Observe(time.Since(started).Seconds())
		span.SetAttributes(attribute.String("cache.status", CacheMiss))
		s.Usage.Finish(callCtx, logID, domain.StatusError, err.Error(), time.Since(started))
		return nil, &UpstreamError{Err: err}
	}
	upstreamDuration.WithLabelValues("success").Observe(time.Since(started).Seconds())

	keyType := KeyTypePrompt
	if parsed.HasParameters() {
		// Generation-side extraction wins over the fast extractor; it saw the
		// full workflow context.
		s.Cache.Put(callCtx, cache.ParameterKey(parsed.Parameters, lang), body)
		keyType = KeyTypeParameter
	} else if params.Valid() {
		s.Cache.Put(callCtx, cache.ParameterKey(params, lang), body)
		keyType = KeyTypeParameter
	}
	s.Cache.Put(callCtx, promptKey, body)

	span.SetAttributes(attribute.String("cache.status", CacheMiss))
	s.Usage.Finish(callCtx, logID, domain.StatusSuccess, "", time.Since(started))
	return &InsightResult{Body: body, CacheStatus: CacheMiss, KeyType: keyType}, nil
}

// extract calls the fast parameter workflow, swallowing every failure.
func (s *InsightService) extract(ctx context.Context, prompt, lang string) *domain.RouteParameters {
	if !s.Client.ExtractorConfigured() {
		return nil
	}
	params, err := s.Client.ExtractParameters(ctx, prompt, lang)
	if err != nil {
		extractorFailures.Inc()
		log.Debug().Err(err).Msg("parameter extraction unavailable, falling back to prompt key")
		return nil
	}
	return params
}
