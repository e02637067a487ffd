package classification

import (
	"context"
	"time"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
	"swipe_server/pkg/logger"
	"swipe_server/pkg/metrics"
)

// =============================================================================
// LLM Enrichment (Stage 2)
// =============================================================================

// FallbackFunc supplies the classification used whenever the model cannot.
type FallbackFunc func(email *domain.NormalizedEmail) domain.ClassificationResult

// EnricherConfig configures the enrichment layer.
type EnricherConfig struct {
	CacheTTL    time.Duration    // default 15m
	CallTimeout time.Duration    // per model call, default 30s
	Now         func() time.Time // injected clock for the response cache
}

// Enricher layers model output over a heuristic fallback and caches successes.
type Enricher struct {
	completer   out.LLMCompleter
	cache       *ResponseCache
	callTimeout time.Duration
}

// NewEnricher creates the enrichment layer. A nil completer means heuristic-only mode.
func NewEnricher(completer out.LLMCompleter, cfg EnricherConfig) *Enricher {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Enricher{
		completer:   completer,
		cache:       NewResponseCache(cfg.CacheTTL, cfg.Now),
		callTimeout: cfg.CallTimeout,
	}
}

// Enabled reports whether a model credential is configured.
func (e *Enricher) Enabled() bool {
	return e.completer != nil
}

// Cache exposes the response cache for stats.
func (e *Enricher) Cache() *ResponseCache {
	return e.cache
}

// Classify returns the enriched classification, or fallback(email) on any model failure.
// It never returns an error; failures are logged and not cached.
func (e *Enricher) Classify(ctx context.Context, email *domain.NormalizedEmail, fallback FallbackFunc) domain.ClassificationResult {
	if !e.Enabled() {
		metrics.RecordClassification(metrics.OutcomeHeuristic)
		return fallback(email)
	}

	key := CacheKey(e.completer.Model(), PromptVersion, email)
	if cached, ok := e.cache.Get(key); ok {
		metrics.RecordClassification(metrics.OutcomeCacheHit)
		return cached
	}

	base := fallback(email)
	log := logger.WithContext(ctx).WithField("email_id", email.ID)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	reply, err := e.completer.Complete(callCtx, BuildPrompt(email))
	if err != nil {
		metrics.RecordLLMCall("error", time.Since(start))
		metrics.RecordClassification(metrics.OutcomeLLMFallback)
		log.WithError(err).Warn("classification call failed, using heuristic result")
		return base
	}
	metrics.RecordLLMCall("ok", time.Since(start))

	result, err := ParseReply(reply, base)
	if err != nil {
		metrics.RecordClassification(metrics.OutcomeLLMFallback)
		log.WithError(err).WithField("reply_len", len(reply)).Warn("unparseable classification reply, using heuristic result")
		return base
	}

	e.cache.Set(key, result)
	if result.Skip {
		metrics.RecordClassification(metrics.OutcomeSkipped)
	} else {
		metrics.RecordClassification(metrics.OutcomeLLM)
	}
	log.WithDuration(time.Since(start)).Debug("classified as %s (skip=%v)", result.Type, result.Skip)
	return result
}
