// Package metrics exposes Prometheus collectors for the classification pipeline and deck.
package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification outcomes.
const (
	OutcomeHeuristic   = "heuristic"    // no credential, heuristic only
	OutcomeCacheHit    = "cache_hit"    // served from the response cache
	OutcomeLLM         = "llm"          // enriched by the model
	OutcomeLLMFallback = "llm_fallback" // model failed, heuristic returned
	OutcomeSkipped     = "skipped"      // model marked the email irrelevant
)

var (
	// classification outcomes by source
	ClassificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipe_classification_total",
			Help: "Emails classified, by outcome",
		},
		[]string{"outcome"},
	)

	// model call latency, milliseconds
	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swipe_llm_call_latency_ms",
			Help:    "Classification model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
	)

	// deck rebuild duration, seconds
	DeckRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swipe_deck_refresh_duration_seconds",
			Help:    "Time to fetch, classify and sort a deck",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"source"},
	)

	DeckSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swipe_deck_cards",
			Help: "Number of cards in the most recent deck",
		},
		[]string{"source"},
	)

	ApplyCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipe_apply_total",
			Help: "Apply requests, by result",
		},
		[]string{"result"}, // result: created, duplicate, not_found, failed
	)
)

// RecordClassification counts one classification by outcome.
func RecordClassification(outcome string) {
	ClassificationCount.WithLabelValues(outcome).Inc()
}

// RecordLLMCall records model call latency.
func RecordLLMCall(status string, duration time.Duration) {
	LLMCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordDeckRefresh records a deck rebuild.
func RecordDeckRefresh(source string, duration time.Duration, cards int) {
	DeckRefreshDuration.WithLabelValues(source).Observe(duration.Seconds())
	DeckSize.WithLabelValues(source).Set(float64(cards))
}

// RecordApply counts one apply request by result.
func RecordApply(result string) {
	ApplyCount.WithLabelValues(result).Inc()
}

// HTTPRequestDuration is request latency in seconds by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "swipe_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RegisterDBStats exports connection pool stats for db under name.
// Registering the same name twice is a no-op.
func RegisterDBStats(name string, db *sql.DB) {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		panic(err)
	}
}
