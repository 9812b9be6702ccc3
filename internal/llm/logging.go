package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type loggingClient struct {
	next   Client
	logger *slog.Logger
}

// WithLogging wraps next so every exchange is logged. Message contents go to debug level.
func WithLogging(next Client, logger *slog.Logger) Client {
	return &loggingClient{next: next, logger: logger.With("component", "llm")}
}

func (c *loggingClient) Complete(ctx context.Context, messages []Message) (string, error) {
	id := uuid.NewString()
	log := c.logger.With("llm_request_id", id)
	log.Debug("llm request", "messages", messages)

	start := time.Now()
	out, err := c.next.Complete(ctx, messages)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("llm request failed", "duration_ms", elapsed.Milliseconds(), "error", err)
		return "", err
	}
	log.Info("llm response", "duration_ms", elapsed.Milliseconds(), "response_chars", len(out))
	log.Debug("llm response body", "content", out)
	return out, nil
}
