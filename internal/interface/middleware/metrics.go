package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/newsletter/internal/metrics"
)

// Metrics records request durations by route template. Unmatched routes are
// grouped under "unmatched" to keep label cardinality bounded.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
