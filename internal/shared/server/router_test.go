package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"descomplicacv/internal/conversions"
	"descomplicacv/internal/services/health"
	"descomplicacv/internal/shared/config"
)

func testRouter(t *testing.T, deps RouterDeps) http.Handler {
	t.Helper()
	if deps.ConversionHandler == nil {
		svc := &conversions.Service{Repo: conversions.NewMemoryRepo()}
		deps.ConversionHandler = conversions.NewHandler(svc, 0)
	}
	if deps.Config.RateLimitRPS == 0 {
		deps.Config.RateLimitRPS = 100
		deps.Config.RateLimitBurst = 100
	}
	return NewRouter(deps)
}

func TestHealthWithoutDatabase(t *testing.T) {
	router := testRouter(t, RouterDeps{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["database"] != "disabled" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	router := testRouter(t, RouterDeps{Health: health.NewService(db)})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t, RouterDeps{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "conversion_started_total") {
		t.Fatalf("expected conversion counters in metrics output")
	}
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	router := testRouter(t, RouterDeps{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"not_found"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestConvertIsRateLimited(t *testing.T) {
	router := testRouter(t, RouterDeps{Config: config.Config{RateLimitRPS: 0.001, RateLimitBurst: 1}})

	send := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, err := w.CreateFormFile("file", "cv.txt")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte("hello"))
		_ = w.Close()
		req := httptest.NewRequest(http.MethodPost, "/convert-cv", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if first := send(); first.Code != http.StatusOK {
		t.Fatalf("expected first convert to pass, got %d: %s", first.Code, first.Body.String())
	}
	if second := send(); second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8000", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
