package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitOnlyAppliesToConversionRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Rules:   ConversionRules(1, 2),
	}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/conversions", ok)
	r.POST("/convert-cv", ok)

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/conversions", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("list request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/convert-cv", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("convert request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/convert-cv", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("convert request 3 expected 429, got %d", resp.Code)
	}
}

func TestConversionGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/convert-cv", GroupConvert},
		{http.MethodPost, "/return-pdf", GroupSample},
		{http.MethodGet, "/conversions/abc/download", GroupDownload},
		{http.MethodGet, "/conversions/abc", GroupBrowse},
		{http.MethodGet, "/health", GroupBrowse},
	}

	var got string
	r := gin.New()
	record := func(c *gin.Context) { got = ConversionGroup(c) }
	r.POST("/convert-cv", record)
	r.POST("/return-pdf", record)
	r.GET("/conversions/:id/download", record)
	r.GET("/conversions/:id", record)
	r.GET("/health", record)

	for _, tc := range cases {
		got = ""
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
		if got != tc.want {
			t.Fatalf("%s %s: expected group %q, got %q", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestRateLimit429UsesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			GroupSample: {Rate: 1, Burst: 1},
		},
	}))
	r.POST("/return-pdf", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodPost, "/return-pdf", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodPost, "/return-pdf", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if resp2.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", resp2.Header().Get("Retry-After"))
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	if payload.Error.Details["group"] != GroupSample {
		t.Fatalf("expected group %q in details, got %v", GroupSample, payload.Error.Details)
	}
	if _, ok := payload.Error.Details["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in details")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 2, Burst: 1}

	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected first call allowed")
	}
	ok, wait := limiter.Allow("k", rule)
	if ok {
		t.Fatalf("expected second call limited")
	}
	if wait != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait, got %s", wait)
	}

	now = now.Add(500 * time.Millisecond)
	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected call allowed after refill")
	}
}

func TestRateLimiterPrunesRefilledBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	limiter.maxBuckets = 3
	rule := RateLimitRule{Rate: 1, Burst: 2}

	for i := 0; i < 3; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d|convert", i), rule)
	}
	if got := limiter.Len(); got != 3 {
		t.Fatalf("expected 3 buckets, got %d", got)
	}

	// Two seconds refills a burst of 2 at 1 token/s.
	now = now.Add(2 * time.Second)
	limiter.Allow("10.0.0.9|convert", rule)
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle buckets pruned, got %d", got)
	}
}
