package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	AdmissionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_admissions_total",
			Help: "Reservation admission decisions by outcome",
		},
		[]string{"outcome"},
	)
)

// NormalizePath keeps the first path segment so that ids do not blow up
// label cardinality (/reservations/abc -> reservations).
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if idx := strings.Index(p, "/"); idx >= 0 {
		p = p[:idx]
	}
	if p == "" {
		return "root"
	}
	return p
}

// Middleware records request count and latency for every route except
// /metrics itself.
func Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		path := NormalizePath(c.Request.URL.Path)
		status := strconv.Itoa(c.Writer.Status())
		RequestTotal.WithLabelValues(service, c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(service, c.Request.Method, path).Observe(duration)
	}
}

// Handler exposes the prometheus registry for GET /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
