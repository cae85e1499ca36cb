package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	httpRequestsTotal         *prometheus.CounterVec
	httpLatencySeconds        *prometheus.HistogramVec
	evaluationOutcomesTotal   *prometheus.CounterVec
	evaluationAttemptsTotal   *prometheus.CounterVec
	evaluationDurationSeconds prometheus.Histogram
	evaluationQueueDepth      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used for pipeline observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		evaluationOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_outcomes_total",
			Help: "Total number of evaluation records reaching a terminal status.",
		}, []string{"outcome"})

		evaluationAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_attempts_total",
			Help: "Total number of model assessment attempts by result.",
		}, []string{"result"})

		evaluationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Time from pickup to terminal status for one evaluation.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		})

		evaluationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evaluation_queue_depth",
			Help: "Number of evaluations scheduled and not yet terminal.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, evaluationOutcomesTotal, evaluationAttemptsTotal, evaluationDurationSeconds, evaluationQueueDepth)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// EvaluationOutcomes exposes the terminal outcome counter.
func EvaluationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationOutcomesTotal
}

// EvaluationAttempts exposes the assessment attempt counter.
func EvaluationAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationAttemptsTotal
}

// EvaluationDuration exposes the pickup-to-terminal histogram.
func EvaluationDuration() prometheus.Histogram {
	RegisterMetrics()
	return evaluationDurationSeconds
}

// EvaluationQueue exposes the in-flight gauge.
func EvaluationQueue() prometheus.Gauge {
	RegisterMetrics()
	return evaluationQueueDepth
}
