package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_session_outcomes_total",
			Help: "Terminal training session outcomes by status",
		},
		[]string{"status"},
	)

	EvidenceGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "training_evidence_generated_total",
			Help: "Evidence records created",
		},
	)

	ComplianceUploadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_upload_attempts_total",
			Help: "Compliance upload attempts by result code",
		},
		[]string{"result"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SessionOutcomeTotal)
	prometheus.MustRegister(EvidenceGeneratedTotal)
	prometheus.MustRegister(ComplianceUploadTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
