// Package web serves the browser front end: a single home view with the upload form.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/cvapi"
	"descomplicacv/internal/cvstore"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/server/middleware"
	"descomplicacv/internal/shared/telemetry"
)

// Title is the document title of the home view.
const Title = "DescomplicaCV - Résumé Converter"

const (
	homePath             = "/"
	homeTemplate         = "home.html"
	defaultMaxUploadSize = 10 << 20 // 10MB
)

//go:embed templates/*.html
var templateFiles embed.FS

// Uploader is the state store the router drives.
type Uploader interface {
	UploadCV(ctx context.Context, req cvapi.ConversionRequest) ([]byte, error)
	DownloadCV(w http.ResponseWriter) error
	State() cvstore.State
	History() []cvstore.HistoryEntry
}

// Deps are the collaborators of the web router.
type Deps struct {
	Store          Uploader
	AllowedTypes   []string
	MaxUploadBytes int64
}

type homeView struct {
	Title     string
	Message   string
	Accept    string
	MaxUpload string
	State     cvstore.State
	History   []cvstore.HistoryEntry
}

type handler struct {
	store        Uploader
	allowedTypes []string
	maxUpload    int64
}

// NewRouter builds the front-end router. It knows two states: home at "/" and
// not found, which redirects to home.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("web router: store is required")
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatSize": fileutil.FormatSize,
		"int64":      func(n int) int64 { return int64(n) },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	h := &handler{
		store:        deps.Store,
		allowedTypes: deps.AllowedTypes,
		maxUpload:    deps.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUploadSize
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Recovery())

	r.GET(homePath, h.home)
	r.HEAD(homePath, h.home)
	r.POST(homePath, h.upload)

	r.NoRoute(redirectHome)
	r.NoMethod(redirectHome)
	return r, nil
}

func redirectHome(c *gin.Context) {
	c.Redirect(http.StatusFound, homePath)
}

func (h *handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, "")
}

func (h *handler) render(c *gin.Context, status int, message string) {
	c.HTML(status, homeTemplate, homeView{
		Title:     Title,
		Message:   message,
		Accept:    strings.Join(h.allowedTypes, ","),
		MaxUpload: fileutil.FormatSize(h.maxUpload),
		State:     h.store.State(),
		History:   h.store.History(),
	})
}

func (h *handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.render(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("O arquivo excede o limite de %s.", fileutil.FormatSize(h.maxUpload)))
			return
		}
		h.render(c, http.StatusBadRequest, "Selecione um arquivo para enviar.")
		return
	}
	c.Set(middleware.FileNameKey, fileHeader.Filename)

	req := cvapi.ConversionRequest{
		FileName:    fileHeader.Filename,
		ContentType: declaredType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename),
	}
	if len(h.allowedTypes) > 0 && !fileutil.IsValidFileType(req, h.allowedTypes) {
		h.render(c, http.StatusUnsupportedMediaType, "Tipo de arquivo não permitido. Envie um PDF, DOCX ou TXT.")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.render(c, http.StatusBadRequest, "Não foi possível ler o arquivo.")
		return
	}
	defer file.Close()
	if req.Content, err = io.ReadAll(file); err != nil {
		h.render(c, http.StatusBadRequest, "Não foi possível ler o arquivo.")
		return
	}

	if _, err := h.store.UploadCV(c.Request.Context(), req); err != nil {
		switch {
		case errors.Is(err, cvstore.ErrBusy):
			h.render(c, http.StatusConflict, "Já existe uma conversão em andamento. Aguarde e tente novamente.")
		case errors.Is(err, cvstore.ErrInvalidFileType):
			h.render(c, http.StatusUnsupportedMediaType, "Tipo de arquivo não permitido. Envie um PDF, DOCX ou TXT.")
		default:
			h.render(c, http.StatusBadGateway, "")
		}
		return
	}

	if err := h.store.DownloadCV(c.Writer); err != nil {
		if errors.Is(err, cvstore.ErrNoResult) {
			h.render(c, http.StatusInternalServerError, "O PDF convertido não está disponível.")
			return
		}
		telemetry.Error("web.download_failed", map[string]any{
			"file_name": req.FileName,
			"error":     err,
		})
	}
}

// declaredType normalizes the part's Content-Type, falling back to the extension
// when the browser sent none.
func declaredType(header, fileName string) string {
	if header != "" && header != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil {
			return mediaType
		}
		return header
	}
	if byExt := fileutil.TypeByExtension(fileName); byExt != "" {
		return byExt
	}
	return header
}

var _ Uploader = (*cvstore.Store)(nil)
