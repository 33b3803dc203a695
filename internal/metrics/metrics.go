package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routine_planner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routine_planner_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Domain metrics
	renewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routine_planner_renewals_total",
			Help: "Periods processed by the renewal job, by outcome",
		},
		[]string{"outcome"},
	)

	renewalRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routine_planner_renewal_run_duration_seconds",
			Help:    "Duration of a full renewal run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	repairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routine_planner_repairs_total",
			Help: "Plan repairs by failure reason and outcome",
		},
		[]string{"reason", "outcome"},
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routine_planner_external_call_duration_seconds",
			Help:    "Latency of advisor and plan generator calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
		},
		[]string{"client", "result"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, durationSeconds float64) {
	status := "unknown"
	if statusCode >= 200 && statusCode < 300 {
		status = "2xx"
	} else if statusCode >= 300 && statusCode < 400 {
		status = "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		status = "4xx"
	} else if statusCode >= 500 {
		status = "5xx"
	}

	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordRenewal counts one period outcome: renewed, skipped_existing,
// skipped_no_pattern, failed, generation_failed.
func RecordRenewal(outcome string) {
	renewalsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRenewalRun(d time.Duration) {
	renewalRunDuration.Observe(d.Seconds())
}

func RecordRepair(reason, outcome string) {
	repairsTotal.WithLabelValues(reason, outcome).Inc()
}

// ObserveExternalCall times a call to an LLM-backed collaborator.
func ObserveExternalCall(client string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	externalCallDuration.WithLabelValues(client, result).Observe(d.Seconds())
}

// GinMiddleware records every request under its route template, so
// /routines/days/:dayId is one series rather than one per id.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
