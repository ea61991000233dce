package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/shared/telemetry"
)

// Context keys handlers may set so the request log can carry them.
const (
	ConversionIDKey = "conversionId"
	FileNameKey     = "fileName"
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
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.GetString(ConversionIDKey); id != "" {
			fields["conversion_id"] = id
		}
		if name := c.GetString(FileNameKey); name != "" {
			fields["file_name"] = name
		}
		telemetry.Info("request.complete", fields)
	}
}
