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

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_AllowsRequestUnderLimit(t *testing.T) {
	handler := NewRateLimiter(100, 200).Middleware()(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestFrom("10.0.0.1:1234"))

	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimit_RejectsRequestOverLimit(t *testing.T) {
	handler := NewRateLimiter(1, 1).Middleware()(okHandler())

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, requestFrom("10.0.0.1:1234"))
	if rr1.Code != http.StatusOK {
		t.Errorf("first request: got status %d, want %d", rr1.Code, http.StatusOK)
	}

	// Same host, different port: still the same client.
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, requestFrom("10.0.0.1:5678"))
	if rr2.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got status %d, want %d", rr2.Code, http.StatusTooManyRequests)
	}
	if got := rr2.Header().Get("Retry-After"); got != "1" {
		t.Errorf("got Retry-After %q, want %q", got, "1")
	}
}

func TestRateLimit_IndependentLimitsPerClient(t *testing.T) {
	handler := NewRateLimiter(1, 1).Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	rrA := httptest.NewRecorder()
	handler.ServeHTTP(rrA, requestFrom("10.0.0.1:1"))
	if rrA.Code != http.StatusTooManyRequests {
		t.Errorf("client A second request: got status %d, want %d", rrA.Code, http.StatusTooManyRequests)
	}

	rrB := httptest.NewRecorder()
	handler.ServeHTTP(rrB, requestFrom("10.0.0.2:1"))
	if rrB.Code != http.StatusOK {
		t.Errorf("client B request: got status %d, want %d", rrB.Code, http.StatusOK)
	}
}

func TestRateLimit_UnlimitedWhenZero(t *testing.T) {
	calls := 0
	handler := NewRateLimiter(0, 0).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	}
	if calls != 10 {
		t.Errorf("expected 10 handler calls, got %d", calls)
	}
}

func TestRateLimit_BucketRebuiltAfterTTL(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(0.001, 1, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	handler := rl.Middleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestFrom("10.0.0.1:1"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	now = now.Add(2 * time.Minute)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, requestFrom("10.0.0.1:1"))
	if rr.Code != http.StatusOK {
		t.Errorf("after TTL: got status %d, want %d", rr.Code, http.StatusOK)
	}
}
