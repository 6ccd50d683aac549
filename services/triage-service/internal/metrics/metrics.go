package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Model call latency (seconds)
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_model_call_duration_seconds",
			Help:    "Model gateway call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11), // 100ms to ~100s
		},
		[]string{"task", "status"},
	)

	// Parse outcomes per task
	ParseOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_parse_outcome_total",
			Help: "Model output parse outcomes",
		},
		[]string{"task", "outcome"}, // outcome: valid, empty, failed, fallback
	)

	SearchRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_search_requests_total",
			Help: "Keyword search requests",
		},
		[]string{"result"}, // result: hit, empty, error
	)

	EmbeddingCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_embedding_cache_total",
			Help: "Embedding cache lookups",
		},
		[]string{"result"}, // result: hit, miss, error
	)

	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_emails_processed_total",
			Help: "Emails processed by classification or extraction",
		},
		[]string{"stage", "status"}, // status: success, failed
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordModelCall(task, status string, duration time.Duration) {
	ModelCallDuration.WithLabelValues(task, status).Observe(duration.Seconds())
}

func IncrementParseOutcome(task, outcome string) {
	ParseOutcomeCount.WithLabelValues(task, outcome).Inc()
}

func IncrementSearch(result string) {
	SearchRequestCount.WithLabelValues(result).Inc()
}

func IncrementEmbeddingCache(result string) {
	EmbeddingCacheCount.WithLabelValues(result).Inc()
}

func IncrementEmailProcessed(stage, status string) {
	EmailProcessedCount.WithLabelValues(stage, status).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
