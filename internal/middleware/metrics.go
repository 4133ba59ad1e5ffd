package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 요청 총 수
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawwatch",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP 요청 처리 시간
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pawwatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pawwatch",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	reportsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawwatch",
			Name:      "reports_submitted_total",
			Help:      "Total number of dog reports committed through intake",
		},
		[]string{"status"},
	)

	reportValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawwatch",
			Name:      "report_validation_failures_total",
			Help:      "Total number of report form fields rejected by validation",
		},
		[]string{"field"},
	)

	reportSubmissionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawwatch",
			Name:      "report_submissions_rejected_total",
			Help:      "Total number of report submissions refused before validation",
		},
		[]string{"reason"},
	)

	visitorSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pawwatch",
			Name:      "visitor_sessions_active",
			Help:      "Number of live visitor sessions",
		},
	)

	projectionSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pawwatch",
			Name:      "projection_size_reports",
			Help:      "Number of reports drawn per view refresh",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"filter"},
	)
)

// MetricsMiddleware는 HTTP 요청에 대한 Prometheus 메트릭을 수집합니다.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

func RecordReportSubmitted(status string) {
	reportsSubmittedTotal.WithLabelValues(status).Inc()
}

func RecordValidationFailure(fields []string) {
	for _, f := range fields {
		reportValidationFailuresTotal.WithLabelValues(f).Inc()
	}
}

// RecordSubmissionRejected counts submits refused for reason "in_flight" or
// "rate_limited".
func RecordSubmissionRejected(reason string) {
	reportSubmissionsRejectedTotal.WithLabelValues(reason).Inc()
}

func SetActiveSessions(n int) {
	visitorSessionsActive.Set(float64(n))
}

func RecordProjection(filter string, size int) {
	projectionSize.WithLabelValues(filter).Observe(float64(size))
}
