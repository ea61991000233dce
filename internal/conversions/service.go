package conversions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"descomplicacv/internal/extract"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/render"
	"descomplicacv/internal/shared/metrics"
	"descomplicacv/internal/shared/storage/object"
	"descomplicacv/internal/shared/telemetry"
	"descomplicacv/internal/shared/util"
)

// Upload is a résumé received by the API.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Result is a finished conversion: its record, the analysis and the standardized PDF.
type Result struct {
	Conversion Conversion
	Document   extract.Document
	PDF        []byte
}

// Service contains the conversion workflow.
type Service struct {
	Repo          Repo
	Store         object.ObjectStore
	SamplePDFPath string
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Convert analyzes the upload, renders the standardized PDF, archives it and records the outcome.
// Uploads with an unsupported extension are rejected before anything is recorded.
func (s *Service) Convert(ctx context.Context, up Upload) (Result, error) {
	if strings.TrimSpace(up.FileName) == "" {
		return Result{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	format, err := extract.FormatOf(up.FileName)
	if err != nil {
		metrics.IncConversionRejected()
		return Result{}, err
	}

	start := time.Now()
	metrics.IncConversionStarted()

	conv := Conversion{
		ID:           uuid.NewString(),
		FileName:     up.FileName,
		SourceFormat: format,
		ContentType:  up.ContentType,
		SizeBytes:    int64(len(up.Data)),
		Checksum:     util.Checksum(up.Data),
		CreatedAt:    s.now(),
	}

	doc, err := extract.Analyze(ctx, up.Data, up.FileName)
	if err != nil {
		return Result{Conversion: s.fail(ctx, conv, start, err)}, err
	}
	pdfBytes, err := render.PDF(resumeFor(doc, up.FileName, conv.CreatedAt))
	if err != nil {
		return Result{Conversion: s.fail(ctx, conv, start, err)}, err
	}

	conv.Status = StatusCompleted
	conv.Summary = &doc.Summary
	conv.OutputBytes = int64(len(pdfBytes))
	conv.OutputKey = s.archive(ctx, conv.ID, up.FileName, pdfBytes)
	conv.DurationMs = metrics.SinceMillis(start)
	s.record(ctx, conv)
	metrics.IncConversionCompleted()
	metrics.ObserveConversionDurationMs(conv.DurationMs)
	return Result{Conversion: conv, Document: doc, PDF: pdfBytes}, nil
}

func (s *Service) fail(ctx context.Context, conv Conversion, start time.Time, cause error) Conversion {
	conv.Status = StatusFailed
	conv.ErrorMessage = cause.Error()
	conv.DurationMs = metrics.SinceMillis(start)
	if ctx.Err() == nil {
		s.record(ctx, conv)
	}
	metrics.IncConversionFailed()
	metrics.ObserveConversionDurationMs(conv.DurationMs)
	return conv
}

// archive stores the generated PDF. A storage failure leaves the conversion without a download.
func (s *Service) archive(ctx context.Context, id, fileName string, pdfBytes []byte) string {
	if s.Store == nil {
		return ""
	}
	key, _, _, err := s.Store.Save(ctx, id, fileutil.ConvertedFileName(fileName), bytes.NewReader(pdfBytes))
	if err != nil {
		telemetry.Warn("conversion.archive_failed", map[string]any{
			"conversion_id": id,
			"error":         err,
		})
		return ""
	}
	return key
}

func (s *Service) record(ctx context.Context, conv Conversion) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Create(ctx, conv); err != nil {
		telemetry.Error("conversion.record_failed", map[string]any{
			"conversion_id": conv.ID,
			"status":        conv.Status,
			"error":         err,
		})
	}
}

func resumeFor(doc extract.Document, fileName string, at time.Time) render.Resume {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if t := doc.Summary.Title; t != "" && t != extract.DefaultTitle {
		title = t
	}
	if strings.TrimSpace(title) == "" {
		title = "Curriculum Vitae"
	}
	author := doc.Summary.Author
	if author == extract.DefaultAuthor {
		author = ""
	}
	return render.Resume{
		Title:      title,
		Subtitle:   fmt.Sprintf("Converted from %s on %s", base, at.Format("2006-01-02")),
		Author:     author,
		Paragraphs: doc.Paragraphs,
		CreatedAt:  at,
	}
}

// Sample returns the bundled example PDF served by /return-pdf.
func (s *Service) Sample(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.SamplePDFPath) == "" {
		return nil, ErrSampleMissing
	}
	data, err := os.ReadFile(s.SamplePDFPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSampleMissing
		}
		return nil, fmt.Errorf("read sample pdf: %w", err)
	}
	return data, nil
}

// Get returns one conversion from the history.
func (s *Service) Get(ctx context.Context, id string) (Conversion, error) {
	if strings.TrimSpace(id) == "" {
		return Conversion{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns the conversion history newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	return s.Repo.List(ctx, limit, offset)
}

// OpenOutput opens the archived PDF of a completed conversion.
func (s *Service) OpenOutput(ctx context.Context, id string) (Conversion, io.ReadCloser, error) {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return Conversion{}, nil, err
	}
	if !conv.Archived() || s.Store == nil {
		return Conversion{}, nil, ErrNotArchived
	}
	rc, err := s.Store.Open(ctx, conv.OutputKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Conversion{}, nil, ErrNotArchived
		}
		return Conversion{}, nil, fmt.Errorf("open archived pdf: %w", err)
	}
	return conv, rc, nil
}
