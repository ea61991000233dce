package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/telemetry"
)

// ConversionIDHeader names the history record behind a convert response.
const ConversionIDHeader = "X-Conversion-Id"

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Converted tags the response with the conversion id. Call it before the body is written.
func Converted(c *gin.Context, conversionID string) {
	if conversionID != "" {
		c.Header(ConversionIDHeader, conversionID)
	}
}

// PDF sends a converted résumé as an attachment named fileName.
// A failed write happens after the status line went out, so it is only logged.
func PDF(c *gin.Context, data []byte, fileName string) {
	if err := fileutil.DownloadFile(c.Writer, data, fileName); err != nil {
		telemetry.Error("pdf.write_failed", map[string]any{
			"request_id":    c.GetString("requestId"),
			"conversion_id": c.GetString("conversionId"),
			"file_name":     fileName,
			"bytes":         len(data),
			"error":         err,
		})
	}
}
