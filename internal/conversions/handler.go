package conversions

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/extract"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/server/middleware"
	"descomplicacv/internal/shared/server/respond"
)

const (
	defaultMaxUploadSize = 10 << 20 // 10MB
	welcomeMessage       = "Welcome to the DescomplicaCV API!"
	mimeJSON             = "application/json"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A non-positive maxUploadBytes falls back to 10MB.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches conversion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.welcome)
	rg.POST("/convert-cv", h.convert)
	rg.POST("/return-pdf", h.samplePDF)
	rg.GET("/conversions", h.list)
	rg.GET("/conversions/:id", h.get)
	rg.GET("/conversions/:id/download", h.download)
}

func (h *Handler) welcome(c *gin.Context) {
	respond.OK(c, gin.H{"message": welcomeMessage})
}

func (h *Handler) convert(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("file exceeds the %s limit", fileutil.FormatSize(h.MaxUploadBytes)), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	c.Set(middleware.FileNameKey, fileHeader.Filename)

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, err := h.Svc.Convert(c.Request.Context(), Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if res.Conversion.ID != "" {
		c.Set(middleware.ConversionIDKey, res.Conversion.ID)
	}
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
				fmt.Sprintf("file type %s is not supported; send a PDF, DOCX or TXT file", extensionOf(fileHeader.Filename)),
				gin.H{"fileName": fileHeader.Filename})
		case errors.Is(err, extract.ErrCorrupt):
			respond.Error(c, http.StatusBadRequest, "invalid_"+res.Conversion.SourceFormat, err.Error(), nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to convert résumé", nil)
		}
		return
	}

	respond.Converted(c, res.Conversion.ID)
	if c.NegotiateFormat("application/pdf", mimeJSON) == mimeJSON {
		respond.OK(c, convertResponse{Summary: *res.Conversion.Summary, ConversionID: res.Conversion.ID})
		return
	}
	respond.PDF(c, res.PDF, fileutil.ConvertedFileName(fileHeader.Filename))
}

func extensionOf(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	return "(none)"
}

func (h *Handler) samplePDF(c *gin.Context) {
	data, err := h.Svc.Sample(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrSampleMissing):
			respond.Error(c, http.StatusNotImplemented, "not_implemented", "PDF conversion sample is not available yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read sample pdf", nil)
		}
		return
	}
	respond.PDF(c, data, fileutil.DefaultConvertedName)
}

func (h *Handler) list(c *gin.Context) {
	limit := DefaultListLimit
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	limit = ClampLimit(limit)

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list conversions", nil)
		return
	}

	resp := make([]ConversionResponse, 0, len(convs))
	for _, conv := range convs {
		resp = append(resp, toResponse(conv))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ConversionIDKey, id)

	conv, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversion not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch conversion", nil)
		}
		return
	}
	respond.OK(c, toResponse(conv))
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ConversionIDKey, id)

	conv, rc, err := h.Svc.OpenOutput(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversion not found", nil)
		case errors.Is(err, ErrNotArchived):
			respond.Error(c, http.StatusNotFound, "not_archived", "converted file is not available", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open converted file", nil)
		}
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read converted file", nil)
		return
	}
	respond.PDF(c, data, fileutil.ConvertedFileName(conv.FileName))
}
