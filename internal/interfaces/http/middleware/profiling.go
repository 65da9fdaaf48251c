package middleware

import (
	"context"

	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling attaches Pyroscope labels (route template and method) to the
// goroutine serving each request. Unmatched routes are left unlabeled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
