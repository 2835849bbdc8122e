// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the molmute service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and path.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molmute_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "path"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "molmute_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	// GenerationRequestsTotal counts requests sent to the generation backend.
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molmute_generation_requests_total",
			Help: "Generation backend requests",
		},
		[]string{"provider", "model", "status"},
	)

	// GenerationLatency records generation backend latency in seconds.
	GenerationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "molmute_generation_latency_seconds",
			Help:    "Generation backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// StructureValidationsTotal counts structure validator calls by outcome
	// (valid, invalid, error).
	StructureValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molmute_structure_validations_total",
			Help: "Structure validator calls",
		},
		[]string{"outcome"},
	)

	// AnalysesTotal counts completed analyses by terminal status.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molmute_analyses_total",
			Help: "Analyses by terminal status",
		},
		[]string{"status", "variant"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molmute_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GenerationRequestsTotal,
		GenerationLatency,
		StructureValidationsTotal,
		AnalysesTotal,
		RateLimitRejectedTotal,
	)
}
