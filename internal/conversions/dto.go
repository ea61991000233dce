package conversions

import (
	"time"

	"descomplicacv/internal/extract"
)

// ConversionResponse is the outward-facing representation of a conversion.
type ConversionResponse struct {
	ConversionID string           `json:"conversionId"`
	FileName     string           `json:"fileName"`
	Format       string           `json:"format"`
	SizeBytes    int64            `json:"sizeBytes"`
	Status       string           `json:"status"`
	Summary      *extract.Summary `json:"summary,omitempty"`
	Error        string           `json:"error,omitempty"`
	OutputBytes  int64            `json:"outputBytes,omitempty"`
	DownloadURL  string           `json:"downloadUrl,omitempty"`
	DurationMs   float64          `json:"durationMs"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// convertResponse is the JSON answer to POST /convert-cv: the summary fields at top level plus the record ID.
type convertResponse struct {
	extract.Summary
	ConversionID string `json:"conversionId"`
}

// MarshalJSON keeps conversionId next to the promoted summary keys.
func (r convertResponse) MarshalJSON() ([]byte, error) {
	return r.Summary.MarshalJSONWith("conversionId", r.ConversionID)
}

func toResponse(conv Conversion) ConversionResponse {
	resp := ConversionResponse{
		ConversionID: conv.ID,
		FileName:     conv.FileName,
		Format:       conv.SourceFormat,
		SizeBytes:    conv.SizeBytes,
		Status:       conv.Status,
		Summary:      conv.Summary,
		Error:        conv.ErrorMessage,
		OutputBytes:  conv.OutputBytes,
		DurationMs:   conv.DurationMs,
		CreatedAt:    conv.CreatedAt,
	}
	if conv.Archived() {
		resp.DownloadURL = "/conversions/" + conv.ID + "/download"
	}
	return resp
}
