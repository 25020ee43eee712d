package httpserver

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"printarcade/internal/domain"
	"printarcade/internal/metrics"
)

// rateLimit keys requests by client IP. A failing store lets the request
// through.
func rateLimit(l limiter, endpoint string, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		d, err := l.Allow(c.Request.Context(), c.ClientIP(), endpoint)
		if err != nil {
			logger.Printf("ratelimit: endpoint=%s fail open error=%v", endpoint, err)
			c.Next()
			return
		}
		if !d.Allowed {
			metrics.RecordRateLimited(endpoint)
			retry := int(d.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			renderError(c, logger, domain.RateLimitedError("too many requests"))
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Next()
	}
}
