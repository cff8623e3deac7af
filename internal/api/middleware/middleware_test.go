package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/api/generate-ai-report", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func do(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/generate-ai-report", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── RateLimit ──

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := newEngine(RateLimit(limiter, 2, time.Minute, zap.NewNop()))

	for i := 0; i < 2; i++ {
		if w := do(r, "", nil); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际=%d", i+1, w.Code)
		}
	}
	if w := do(r, "", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("期望 429，实际=%d", w.Code)
	}
}

func TestRateLimit_NilLimiterPasses(t *testing.T) {
	r := newEngine(RateLimit(nil, 1, time.Minute, zap.NewNop()))

	for i := 0; i < 3; i++ {
		if w := do(r, "", nil); w.Code != http.StatusOK {
			t.Fatalf("未配置限流时应放行，实际=%d", w.Code)
		}
	}
}

func TestRateLimit_ErrorPasses(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}, err: errors.New("redis down")}
	r := newEngine(RateLimit(limiter, 1, time.Minute, zap.NewNop()))

	if w := do(r, "", nil); w.Code != http.StatusOK {
		t.Errorf("限流出错时应放行，实际=%d", w.Code)
	}
}

// ── BodyLimit ──

func TestBodyLimit_RejectsDeclaredLength(t *testing.T) {
	r := newEngine(BodyLimit(8))

	if w := do(r, strings.Repeat("x", 32), nil); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际=%d", w.Code)
	}
	if w := do(r, "small", nil); w.Code != http.StatusOK {
		t.Errorf("小请求应放行，实际=%d", w.Code)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, "", map[string]string{"X-Request-ID": "abc"})
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("应沿用请求头 ID，实际=%q", got)
	}

	w = do(r, "", map[string]string{"X-Request-ID": strings.Repeat("a", 100)})
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("超长 ID 应重新生成 UUID，实际=%q", got)
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := newEngine(CORS([]string{"http://exam.local/"}))

	w := do(r, "", map[string]string{"Origin": "http://exam.local"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://exam.local" {
		t.Errorf("白名单来源应放行，实际=%q", got)
	}

	w = do(r, "", map[string]string{"Origin": "http://evil.local"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("非白名单来源不应设置跨域头，实际=%q", got)
	}

	wildcard := newEngine(CORS([]string{"*"}))
	w = do(wildcard, "", map[string]string{"Origin": "http://any.local"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://any.local" {
		t.Errorf("通配配置应放行任意来源，实际=%q", got)
	}
}
