package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roast-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	LogKeyRoastCount = "roastCount"
	LogKeyDegraded   = "roastDegraded"
	LogKeyTruncated  = "roastTruncated"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"principal":   PrincipalFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if n, ok := c.Get(LogKeyRoastCount); ok {
			fields["roast_count"] = n
		}
		if v, ok := c.Get(LogKeyDegraded); ok {
			fields["degraded"] = v
		}
		if v, ok := c.Get(LogKeyTruncated); ok {
			fields["truncated"] = v
		}
		telemetry.Info("request.complete", fields)
	}
}
