package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"write": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	handler := limiter.Middleware("write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/tips", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutesAndCallers(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"read":  {RequestsPerMinute: 60, Burst: 1},
		"write": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	read := limiter.Middleware("read")(okHandler())
	write := limiter.Middleware("write")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/platform", nil)
	res := httptest.NewRecorder()
	read.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected read to succeed, got %d", res.Code)
	}
	res = httptest.NewRecorder()
	write.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected write bucket to be independent, got %d", res.Code)
	}

	var caller [20]byte
	caller[0] = 1
	authed := req.WithContext(WithCaller(req.Context(), caller))
	res = httptest.NewRecorder()
	write.ServeHTTP(res, authed)
	if res.Code != http.StatusOK {
		t.Fatalf("expected caller bucket to be independent of client ip, got %d", res.Code)
	}
}

func TestRateLimiterUnknownKeyPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, nil)
	handler := limiter.Middleware("missing")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, res.Code)
		}
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(map[string]RateLimit{"read": {RequestsPerMinute: 60, Burst: 1}}, nil)
	limiter.clockNow = func() time.Time { return now }
	limiter.obtainLimiter("read|a", limiter.limits["read"])

	now = now.Add(10 * time.Minute)
	limiter.obtainLimiter("read|b", limiter.limits["read"])
	if _, ok := limiter.visitors["read|a"]; ok {
		t.Fatalf("expected idle visitor to be swept")
	}
	if len(limiter.visitors) != 1 {
		t.Fatalf("unexpected visitors %d", len(limiter.visitors))
	}
}

func TestClientIDPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	if got := clientID(req); got != "10.0.0.9" {
		t.Fatalf("remote addr: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.7" {
		t.Fatalf("forwarded: got %q", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := clientID(req); got != "198.51.100.2" {
		t.Fatalf("real ip: got %q", got)
	}
}
