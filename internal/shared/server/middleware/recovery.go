package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/shared/server/respond"
	"descomplicacv/internal/shared/telemetry"
)

// Recovery turns a panic in a conversion handler into a 500 envelope.
// When the PDF body has already started streaming the response is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if id := c.GetString(ConversionIDKey); id != "" {
				fields["conversion_id"] = id
			}
			if name := c.GetString(FileNameKey); name != "" {
				fields["file_name"] = name
			}
			if c.Writer.Written() {
				fields["partial_response"] = true
				telemetry.Error("conversion.panic", fields)
				c.Abort()
				return
			}
			telemetry.Error("conversion.panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal", "the résumé could not be converted", nil)
		}()
		c.Next()
	}
}
