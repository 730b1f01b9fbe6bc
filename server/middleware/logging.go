// Package middleware holds the Gin middleware used by the status server.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/demandflow/logger"
)

const slowRequest = 500 * time.Millisecond

// RequestLogger logs every request with method, path, status and latency.
// /health is skipped since probes hit it constantly.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}
		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        path,
			"status":      status,
			"duration_ms": latency.Milliseconds(),
			"client":      c.ClientIP(),
		}
		if id, ok := c.Get(ContextKeyRequestID); ok {
			fields[ContextKeyRequestID] = id
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		logByStatus(log, fields, status)
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
