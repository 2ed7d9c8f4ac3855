// Package metrics provides Prometheus metrics for the ingestion and query pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ekaya_rag"

var (
	// IngestTotal counts ingestion requests.
	// Labels: result (success, validation_error, error)
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of ingestion requests by result",
		},
		[]string{"result"},
	)

	// IngestDuration tracks ingestion latency.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Duration of ingestion requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ChunksCreated counts chunks committed by ingestion.
	ChunksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_created_total",
			Help:      "Total number of chunks committed",
		},
	)

	// QueryTotal counts query requests.
	// Labels: outcome (cache_hit, answered, refused, validation_error, error)
	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of query requests by outcome",
		},
		[]string{"outcome"},
	)

	// QueryDuration tracks query latency.
	// Labels: cached (true, false)
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Duration of query requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"cached"},
	)

	// QueryCoalesced counts queries served by another in-flight request for the same key.
	QueryCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "coalesced_total",
			Help:      "Total number of queries that shared an in-flight result",
		},
	)

	// AuditLogFailures counts query log writes that failed.
	AuditLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "audit_log_failures_total",
			Help:      "Total number of failed query log writes",
		},
	)

	// CacheOperations counts cache lookups and writes.
	// Labels: op (get, set), result (hit, miss, ok, error)
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of cache operations by result",
		},
		[]string{"op", "result"},
	)

	// ProviderCalls counts embedding and generation calls.
	// Labels: op (embedding, generation), provider, result (success, error)
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider calls by result",
		},
		[]string{"op", "provider", "result"},
	)

	// ProviderDuration tracks provider call latency including retries.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op", "provider"},
	)

	// ProviderRetries counts retried provider calls.
	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Total number of provider call retries",
		},
		[]string{"op"},
	)
)

// ObserveProviderCall records the outcome and latency of a provider call.
func ObserveProviderCall(op, provider string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ProviderCalls.WithLabelValues(op, provider, result).Inc()
	ProviderDuration.WithLabelValues(op, provider).Observe(time.Since(start).Seconds())
}
