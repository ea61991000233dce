package conversions

import (
	"time"

	"descomplicacv/internal/extract"
)

// Conversion statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Conversion is one résumé submitted to the API and the outcome of converting it.
type Conversion struct {
	ID           string
	FileName     string
	SourceFormat string
	ContentType  string
	SizeBytes    int64
	Checksum     string
	Status       string
	Summary      *extract.Summary
	ErrorMessage string
	OutputKey    string
	OutputBytes  int64
	DurationMs   float64
	CreatedAt    time.Time
}

// Archived reports whether the generated PDF can be downloaded again.
func (c Conversion) Archived() bool {
	return c.Status == StatusCompleted && c.OutputKey != ""
}
