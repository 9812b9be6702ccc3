package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func initMetrics(t *testing.T) http.Handler {
	t.Helper()
	handler, shutdown, err := InitMetrics(context.Background(), "gomokuplane-test")
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		shutdown(ctx)
	})
	return handler
}

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rr.Code)
	}
	return rr.Body.String()
}

func TestInitMetrics_RuntimeCollectors(t *testing.T) {
	body := scrape(t, initMetrics(t))

	for _, want := range []string{"go_goroutines", "process_start_time_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in scrape output", want)
		}
	}
}

func TestInitMetrics_InstrumentsExported(t *testing.T) {
	handler := initMetrics(t)

	inst, err := NewInstruments(otel.Meter(MeterName))
	if err != nil {
		t.Fatalf("NewInstruments failed: %v", err)
	}
	inst.JobsFailed.Add(context.Background(), 2, Reason("timeout"))
	inst.GamesPlayed.Add(context.Background(), 5)

	body := scrape(t, handler)
	if !strings.Contains(body, `gomoku_jobs_failed_total`) || !strings.Contains(body, `reason="timeout"`) {
		t.Errorf("expected labelled failure counter, got:\n%s", body)
	}
	if !strings.Contains(body, "gomoku_games_played_total") {
		t.Errorf("expected games counter, got:\n%s", body)
	}
	if !strings.Contains(body, `service_name="gomokuplane-test"`) {
		t.Errorf("expected service name in target_info, got:\n%s", body)
	}
}

func TestRegisterQueueDepth(t *testing.T) {
	handler := initMetrics(t)

	reg, err := RegisterQueueDepth(otel.Meter(MeterName), func(ctx context.Context) (int64, int64, error) {
		return 3, 1, nil
	})
	if err != nil {
		t.Fatalf("RegisterQueueDepth failed: %v", err)
	}
	defer reg.Unregister()

	body := scrape(t, handler)
	if !strings.Contains(body, "gomoku_queue_depth") {
		t.Fatalf("expected gomoku_queue_depth in output, got:\n%s", body)
	}
	if !strings.Contains(body, `status="pending"`) {
		t.Errorf("expected pending series in output")
	}
}

func TestNewInstruments(t *testing.T) {
	inst, err := NewInstruments(otel.Meter("test-instruments"))
	if err != nil {
		t.Fatalf("NewInstruments failed: %v", err)
	}
	if inst.JobsClaimed == nil || inst.MonitorRemediations == nil {
		t.Fatal("expected all counters to be set")
	}

	// Noop instruments must accept writes.
	noop := NoopInstruments()
	noop.JobsFailed.Add(context.Background(), 1, Reason("test"))
}
