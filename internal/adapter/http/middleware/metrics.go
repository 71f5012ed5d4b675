package middleware

import (
	"time"

	"valutatrade-hub/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per route template.
func Metrics(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
