// Package metrics holds the Prometheus collectors for the recommendation service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Corpus metrics
	CorpusLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_corpus_loads_total",
			Help: "Total number of corpus fetch attempts by result",
		},
		[]string{"result"}, // "success", "unavailable", "parse_error"
	)

	CorpusLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sommelier_corpus_load_duration_seconds",
			Help:    "Duration of corpus fetch and parse in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CorpusRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sommelier_corpus_rows",
			Help: "Number of rows in the cached corpus",
		},
	)

	// Ranking metrics
	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sommelier_rank_duration_seconds",
			Help:    "Duration of a corpus similarity scan in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// Upstream AI metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_upstream_requests_total",
			Help: "Total number of requests to the AI API",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sommelier_upstream_request_duration_seconds",
			Help:    "Duration of AI API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sommelier_embedding_cache_hits_total",
			Help: "Total number of query embedding cache hits",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sommelier_embedding_cache_misses_total",
			Help: "Total number of query embedding cache misses",
		},
	)

	// HTTP metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sommelier_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sommelier_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordUpstream records one AI API call.
func RecordUpstream(endpoint string, status int, d time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordAPIRequest records one handled HTTP request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
