// Package metrics exposes Prometheus collectors for the HTTP surface and the
// settlement pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printarcade_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printarcade_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	webhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printarcade_webhook_events_total",
			Help: "Webhook deliveries by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	discountsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printarcade_game_discounts_total",
			Help: "Game completions by game type and earned discount percent",
		},
		[]string{"game_type", "percent"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printarcade_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordWebhook(provider, outcome string) {
	webhookOutcomes.WithLabelValues(provider, outcome).Inc()
}

func RecordDiscount(gameType string, percent float64) {
	discountsGranted.WithLabelValues(gameType, strconv.FormatFloat(percent, 'f', -1, 64)).Inc()
}

func RecordRateLimited(endpoint string) {
	rateLimited.WithLabelValues(endpoint).Inc()
}
