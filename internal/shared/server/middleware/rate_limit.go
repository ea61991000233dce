package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/shared/server/respond"
)

// Rate limit groups of the conversion API. Browse covers health, metrics and history reads.
const (
	GroupConvert  = "convert"
	GroupSample   = "sample"
	GroupDownload = "download"
	GroupBrowse   = "browse"
)

const defaultMaxBuckets = 4096

// ConversionGroup maps the matched route to its rate limit group.
func ConversionGroup(c *gin.Context) string {
	switch c.Request.Method + " " + c.FullPath() {
	case http.MethodPost + " /convert-cv":
		return GroupConvert
	case http.MethodPost + " /return-pdf":
		return GroupSample
	case http.MethodGet + " /conversions/:id/download":
		return GroupDownload
	}
	return GroupBrowse
}

// RateLimitRule is a token bucket refilled at Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// ConversionRules limits the routes that produce or serve PDFs. Browse stays unlimited.
func ConversionRules(rps float64, burst int) map[string]RateLimitRule {
	rule := RateLimitRule{Rate: rps, Burst: burst}
	return map[string]RateLimitRule{
		GroupConvert:  rule,
		GroupSample:   rule,
		GroupDownload: {Rate: rps * 4, Burst: burst * 2},
	}
}

// RateLimitConfig selects a rule per request group. Groups without a rule pass.
// GroupFor defaults to ConversionGroup.
type RateLimitConfig struct {
	Rules    map[string]RateLimitRule
	GroupFor func(*gin.Context) string
	Limiter  *RateLimiter
}

// RateLimiter keeps one bucket per client IP and group.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*rateBucket
	now        func() time.Time
	maxBuckets int
}

type rateBucket struct {
	tokens float64
	last   time.Time
	// refill is how long an empty bucket takes to fill again.
	refill time.Duration
}

// NewRateLimiter builds a limiter. A nil now uses time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:    make(map[string]*rateBucket),
		now:        now,
		maxBuckets: defaultMaxBuckets,
	}
}

// RateLimit answers 429 with Retry-After and the error envelope once a client drains its bucket.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.GroupFor == nil {
		cfg.GroupFor = ConversionGroup
	}
	return func(c *gin.Context) {
		group := strings.TrimSpace(cfg.GroupFor(c))
		if group == "" {
			group = GroupBrowse
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.ClientIP()) + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := max(int(math.Ceil(float64(retryAfterMs)/1000.0)), 1)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("too many %s requests; retry in %ds", group, retryAfterSeconds),
			gin.H{"group": group, "retryAfterMs": retryAfterMs})
	}
}

// Allow takes one token from the bucket at key and reports how long to wait when it is empty.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxBuckets {
			l.pruneLocked(now)
		}
		bucket = &rateBucket{
			tokens: float64(rule.Burst),
			last:   now,
			refill: time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second)),
		}
		l.buckets[key] = bucket
	}
	elapsed := now.Sub(bucket.last).Seconds()
	if elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true, 0
	}
	waitSec := max((1-bucket.tokens)/rule.Rate, 0)
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}

// pruneLocked drops buckets idle long enough to be full again; they equal a fresh bucket.
func (l *RateLimiter) pruneLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.last) >= b.refill {
			delete(l.buckets, key)
		}
	}
}

// Len reports how many client buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
