package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest, n int32)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		handler(w, req, atomic.AddInt32(&calls, 1))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:          endpoint,
		APIKey:            "sk-test",
		Model:             "custom-model",
		RequestsPerSecond: 1000,
		Backoff:           time.Millisecond,
	}
}

func TestHTTPClient_Complete(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "custom-model" || len(req.Messages) != 2 || req.MaxTokens != 150 {
			t.Errorf("unexpected request: %+v", req)
		}
		reply(w, "hello")
	}))
	defer srv.Close()

	c, err := NewHTTPClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	out, err := c.Complete(context.Background(), []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Errorf("Complete() = %q, want hello", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPClient_RetriesRateLimit(t *testing.T) {
	srv, calls := chatServer(t, func(w http.ResponseWriter, req chatRequest, n int32) {
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		reply(w, "ok")
	})

	c, _ := NewHTTPClient(testConfig(srv.URL))
	out, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "u"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" || atomic.LoadInt32(calls) != 3 {
		t.Errorf("got %q after %d calls", out, *calls)
	}
}

func TestHTTPClient_RateLimitExhausted(t *testing.T) {
	srv, calls := chatServer(t, func(w http.ResponseWriter, req chatRequest, n int32) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c, _ := NewHTTPClient(testConfig(srv.URL))
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "u"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if atomic.LoadInt32(calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", *calls)
	}
}

func TestHTTPClient_ServerErrorNotRetried(t *testing.T) {
	srv, calls := chatServer(t, func(w http.ResponseWriter, req chatRequest, n int32) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c, _ := NewHTTPClient(testConfig(srv.URL))
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "u"}})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status 500 error, got %v", err)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("expected a single attempt, got %d", *calls)
	}
}

func TestNewHTTPClient_UnknownModelWithoutEndpoint(t *testing.T) {
	_, err := NewHTTPClient(Config{Model: "mystery"})
	if err == nil {
		t.Fatal("expected error for unrouted model")
	}
}

func TestNewHTTPClient_DefaultRoute(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	c, err := NewHTTPClient(Config{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if c.config.Endpoint != openAIBaseURL || c.config.APIKey != "sk-env" || c.Model() != "gpt-4o" {
		t.Errorf("unexpected resolution: %+v model=%s", c.config, c.Model())
	}
}

func TestLoadRoutes_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `
qwen2.5-7b:
  base_url: https://api.example.com/v1/
  api_key_env: EXAMPLE_KEY
  model_id: Qwen/Qwen2.5-7B-Instruct
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXAMPLE_KEY", "sk-example")

	c, err := NewHTTPClient(Config{Model: "Qwen2.5-7B", RoutesFile: path})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if c.config.Endpoint != "https://api.example.com/v1" {
		t.Errorf("Endpoint = %q", c.config.Endpoint)
	}
	if c.config.APIKey != "sk-example" {
		t.Errorf("APIKey = %q", c.config.APIKey)
	}
	if c.Model() != "Qwen/Qwen2.5-7B-Instruct" {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestConfig_MergeExplicitWins(t *testing.T) {
	got := DefaultConfig().Merge(Config{Model: "gpt-4o", MaxTokens: 64})
	if got.Model != "gpt-4o" || got.MaxTokens != 64 || got.Temperature != 0.7 {
		t.Errorf("unexpected merge result: %+v", got)
	}
}

type stubClient struct {
	out string
	err error
}

func (s stubClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return s.out, s.err
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	out, err := WithLogging(stubClient{out: "move"}, logger).Complete(context.Background(), nil)
	if err != nil || out != "move" {
		t.Fatalf("Complete() = (%q, %v)", out, err)
	}
	if !strings.Contains(buf.String(), "llm_request_id") {
		t.Errorf("expected request id in log, got %s", buf.String())
	}

	buf.Reset()
	_, err = WithLogging(stubClient{err: ErrRateLimited}, logger).Complete(context.Background(), nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "llm request failed") {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}
