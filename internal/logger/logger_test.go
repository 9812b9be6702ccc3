package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithRequestID_And_RequestIDFromContext(t *testing.T) {
	ctx := context.Background()
	requestID := "req-12345"

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() on empty ctx = %v, want empty", got)
	}

	ctx = WithRequestID(ctx, requestID)
	if got := RequestIDFromContext(ctx); got != requestID {
		t.Errorf("RequestIDFromContext() = %v, want %v", got, requestID)
	}
}

func TestFromContext_AttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info")

	ctx := WithRequestID(context.Background(), "req-67890")
	FromContext(ctx, base).Info("hello")

	if !strings.Contains(buf.String(), `"request_id":"req-67890"`) {
		t.Errorf("expected request_id in output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %s", out)
	}
}
