package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gomokuplane/internal/controller/handlers"
	"gomokuplane/internal/jobs"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/monitor"
	"gomokuplane/internal/recovery"
	"gomokuplane/internal/store/memory"
)

func newTestRouter(opts Options) http.Handler {
	s := memory.New()
	jm := jobs.NewManager(s, jobs.Config{HeartbeatTimeout: 5 * time.Minute, JobTimeout: time.Hour, MaxRetries: 3}, logger.Discard(), nil)
	return NewRouter(handlers.Deps{
		Store:    s,
		Jobs:     jm,
		Monitor:  monitor.New(s, jm, monitor.Config{}, logger.Discard(), nil),
		Recovery: recovery.New(s, jm, recovery.Config{}, logger.Discard()),
		Logger:   logger.Discard(),
	}, opts)
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{}`)
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	h := newTestRouter(Options{AdminToken: "s3cret"})

	guarded := []struct{ method, path string }{
		{http.MethodGet, "/admin/queue"},
		{http.MethodGet, "/admin/health"},
		{http.MethodGet, "/admin/recovery"},
		{http.MethodGet, "/admin/workers"},
		{http.MethodGet, "/admin/jobs"},
		{http.MethodPost, "/admin/tournaments/1/force-cleanup"},
		{http.MethodPost, "/admin/workers/w1/force-cleanup"},
		{http.MethodPost, "/agents"},
		{http.MethodPost, "/tournaments"},
		{http.MethodPost, "/tournaments/1/cancel"},
		{http.MethodDelete, "/tournaments/1"},
	}
	for _, r := range guarded {
		if rr := serve(h, r.method, r.path, ""); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: got %d, want 401", r.method, r.path, rr.Code)
		}
		if rr := serve(h, r.method, r.path, "s3cret"); rr.Code == http.StatusUnauthorized {
			t.Errorf("%s %s with token: still unauthorized", r.method, r.path)
		}
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newTestRouter(Options{AdminToken: "s3cret"})

	for _, path := range []string{"/healthz", "/readyz", "/agents", "/tournaments", "/leaderboard"} {
		if rr := serve(h, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("GET %s: got %d, want 200", path, rr.Code)
		}
	}
	if rr := serve(h, http.MethodGet, "/games/1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET /games/1: got %d, want 404", rr.Code)
	}
}

func TestRouter_NoTokenConfigured(t *testing.T) {
	h := newTestRouter(Options{})

	if rr := serve(h, http.MethodGet, "/admin/queue", ""); rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200 with auth disabled", rr.Code)
	}
}

func TestRouter_RateLimited(t *testing.T) {
	h := newTestRouter(Options{RateLimit: 1, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(h, http.MethodGet, "/agents", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Probes bypass the limiter.
	if rr := serve(h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("healthz: got %d", rr.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestRouter(Options{})

	rr := serve(h, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}
