package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxBackoff = 10 * time.Second

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	config     Config
	modelID    string
	limiter    *rate.Limiter
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client from config layered over DefaultConfig and the model's route.
func NewHTTPClient(config Config) (*HTTPClient, error) {
	cfg, modelID, err := DefaultConfig().Merge(config).resolve()
	if err != nil {
		return nil, err
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &HTTPClient{
		config:     cfg,
		modelID:    modelID,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the provider model id requests are sent with.
func (c *HTTPClient) Model() string { return c.modelID }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends messages and returns the first choice. 429 answers are retried
// with exponential backoff up to MaxAttempts.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.modelID,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	backoff := c.config.Backoff
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		content, err := c.do(ctx, body)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= c.config.MaxAttempts {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *HTTPClient) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return "", ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
