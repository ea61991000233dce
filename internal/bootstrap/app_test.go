package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"descomplicacv/internal/conversions"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/config"
)

func TestBuildDevFallsBackToMemoryHistory(t *testing.T) {
	app, err := Build(context.Background(), config.Config{
		Env:            "dev",
		LocalStoreDir:  t.TempDir(),
		MaxUploadBytes: 1 << 20,
		RateLimitRPS:   1,
		RateLimitBurst: 5,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database in dev without DATABASE_URL")
	}
	if _, ok := app.ConversionsRepo.(*conversions.MemoryRepo); !ok {
		t.Fatalf("expected memory repo, got %T", app.ConversionsRepo)
	}
	if app.Config.ObjectStoreType != "local" {
		t.Fatalf("expected local store default, got %q", app.Config.ObjectStoreType)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "DescomplicaCV") {
		t.Fatalf("expected welcome, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	_, err := Build(context.Background(), config.Config{Env: "prod", LocalStoreDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestBuildS3RequiresBucket(t *testing.T) {
	_, err := Build(context.Background(), config.Config{Env: "dev", ObjectStoreType: "s3"})
	if err == nil || !strings.Contains(err.Error(), "S3_BUCKET") {
		t.Fatalf("expected S3_BUCKET error, got %v", err)
	}
}

func TestBuildWebWiresClientStoreAndRouter(t *testing.T) {
	app, err := BuildWeb(config.Config{
		APIURL:         "http://api.test:8000",
		APITimeout:     5 * time.Second,
		AllowedTypes:   fileutil.DefaultAllowedTypes,
		MaxUploadBytes: 1 << 20,
	})
	if err != nil {
		t.Fatalf("build web: %v", err)
	}
	if app.Client.BaseURL() != "http://api.test:8000" {
		t.Fatalf("unexpected base url %q", app.Client.BaseURL())
	}
	if got := app.Store.AllowedTypes(); len(got) != len(fileutil.DefaultAllowedTypes) {
		t.Fatalf("unexpected allow-list %v", got)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	if resp.Code != http.StatusFound || resp.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", resp.Code, resp.Header().Get("Location"))
	}
}
