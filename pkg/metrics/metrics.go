package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP

// HttpRequestsTotal counts served requests
// Labels: service, method, path, status
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration is the request latency histogram
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"service", "method", "path"},
)

var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// Upstream catalog

// UpstreamRequestsTotal counts outbound calls by operation and outcome
// Labels: operation (search, product), outcome (ok, http_error, network_error)
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total number of requests sent to the upstream food catalog",
	},
	[]string{"operation", "outcome"},
)

var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of upstream food catalog requests in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"operation"},
)

// Cache

var CacheHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of fresh cache hits",
	},
	[]string{"space"},
)

var CacheMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses, expired entries included",
	},
	[]string{"space"},
)

var CacheErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of cache backend errors",
	},
	[]string{"space", "operation"},
)

// Rate limiting

var RateLimitRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the fixed-window limiter",
	},
	[]string{"operation"},
)

// Products

var ProductsUpserted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "products_upserted_total",
		Help: "Total number of canonical product rows written",
	},
	[]string{"source"},
)

// Seeding

// SeedStepsTotal counts seed invocations by outcome (advanced, done, error)
var SeedStepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "seed_steps_total",
		Help: "Total number of seed steps by outcome",
	},
	[]string{"outcome"},
)
