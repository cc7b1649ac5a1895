// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package metrics defines the Prometheus instrumentation for Songrec.
//
// Metrics are registered with the default registry on package load and
// exposed by the HTTP API on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"algorithm", "outcome"}, // outcome: "success", "empty", "no_new_tracks", "validation", "error"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songrec_recommendation_duration_seconds",
			Help:    "Duration of recommendation generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	RecommendationResultSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songrec_recommendation_result_size",
			Help:    "Number of tracks returned per recommendation request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"algorithm"},
	)

	ScorerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songrec_scorer_duration_seconds",
			Help:    "Duration of a single scorer invocation in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"scorer"},
	)

	ClusterModelAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "songrec_cluster_model_available",
			Help: "Whether the pretrained cluster model is loaded (1) or absent (0)",
		},
	)

	// Feature Cache Metrics
	FeatureCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songrec_feature_cache_hits_total",
			Help: "Total number of feature vector cache hits",
		},
	)

	FeatureCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songrec_feature_cache_misses_total",
			Help: "Total number of feature vector cache misses",
		},
	)

	FeatureCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "songrec_feature_cache_entries",
			Help: "Current number of cached feature vectors",
		},
	)

	FeatureFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songrec_feature_fetch_failures_total",
			Help: "Total number of feature fetches dropped because the catalog failed",
		},
	)

	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_catalog_requests_total",
			Help: "Total number of catalog API requests",
		},
		[]string{"operation", "result"}, // result: "success", "failure", "not_found", "retry"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songrec_catalog_request_duration_seconds",
			Help:    "Duration of catalog API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_catalog_cache_hits_total",
			Help: "Total number of persistent catalog cache hits",
		},
		[]string{"kind"}, // kind: "features", "track"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_model_reloads_total",
			Help: "Total number of cluster model reload checks",
		},
		[]string{"result"}, // result: "installed", "unchanged", "missing", "error"
	)

	// User Quota Metrics
	QuotaDecrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_quota_decrements_total",
			Help: "Total number of quota decrement attempts",
		},
		[]string{"result"}, // result: "decremented", "exhausted", "duplicate", "error"
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songrec_events_processed_total",
			Help: "Total number of events processed by consumers",
		},
		[]string{"topic", "result"}, // result: "ack", "nack", "rejected"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)
)

// RecordRecommendation records the outcome of a recommendation request.
func RecordRecommendation(algorithm, outcome string, duration time.Duration, resultSize int) {
	RecommendationRequests.WithLabelValues(algorithm, outcome).Inc()
	RecommendationDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	if outcome == "success" || outcome == "empty" {
		RecommendationResultSize.WithLabelValues(algorithm).Observe(float64(resultSize))
	}
}

// RecordScorer records how long a scorer took.
func RecordScorer(scorer string, duration time.Duration) {
	ScorerDuration.WithLabelValues(scorer).Observe(duration.Seconds())
}

// SetClusterModelAvailable updates the cluster model availability gauge.
func SetClusterModelAvailable(available bool) {
	if available {
		ClusterModelAvailable.Set(1)
		return
	}
	ClusterModelAvailable.Set(0)
}

// RecordFeatureCacheLookup records a feature cache hit or miss.
func RecordFeatureCacheLookup(hit bool) {
	if hit {
		FeatureCacheHits.Inc()
		return
	}
	FeatureCacheMisses.Inc()
}

// RecordCatalogRequest records a catalog API call.
func RecordCatalogRequest(operation, result string, duration time.Duration) {
	CatalogRequests.WithLabelValues(operation, result).Inc()
	CatalogRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
