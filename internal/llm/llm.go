// Package llm provides chat-completion clients for LLM-backed agents.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrRateLimited is returned when the provider keeps answering 429 after every retry.
var ErrRateLimited = errors.New("llm: rate limited")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client completes a conversation.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Route maps a model name to a provider.
type Route struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	ModelID   string `mapstructure:"model_id"`
}

const openAIBaseURL = "https://api.openai.com/v1"

// DefaultRoutes cover the OpenAI models. A routes file replaces them.
func DefaultRoutes() map[string]Route {
	routes := make(map[string]Route)
	for _, m := range []string{"gpt-4o", "gpt-4o-mini", "gpt-4", "gpt-4-turbo", "gpt-3.5-turbo", "o1-preview", "o1-mini"} {
		routes[m] = Route{BaseURL: openAIBaseURL, APIKeyEnv: "OPENAI_API_KEY", ModelID: m}
	}
	return routes
}

// LoadRoutes reads a JSON or YAML file mapping model names to routes.
// Model names are matched case-insensitively.
func LoadRoutes(path string) (map[string]Route, error) {
	// Model names contain dots, so the default key delimiter cannot be used.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read routes file %s: %w", path, err)
	}
	var routes map[string]Route
	if err := v.Unmarshal(&routes); err != nil {
		return nil, fmt.Errorf("failed to parse routes file %s: %w", path, err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("routes file %s defines no models", path)
	}
	return routes, nil
}

// Config configures a client. Zero values fall back to the model's route, then to defaults.
type Config struct {
	Endpoint          string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerSecond float64
	MaxAttempts       int
	Timeout           time.Duration
	// Backoff is the first retry delay after a 429. It doubles per attempt.
	Backoff    time.Duration
	RoutesFile string
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Model:             "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         150,
		RequestsPerSecond: 2,
		MaxAttempts:       3,
		Timeout:           30 * time.Second,
		Backoff:           time.Second,
	}
}

// Merge overlays the non-zero fields of override on c.
func (c Config) Merge(override Config) Config {
	if override.Endpoint != "" {
		c.Endpoint = override.Endpoint
	}
	if override.APIKey != "" {
		c.APIKey = override.APIKey
	}
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.Temperature != 0 {
		c.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		c.MaxTokens = override.MaxTokens
	}
	if override.RequestsPerSecond != 0 {
		c.RequestsPerSecond = override.RequestsPerSecond
	}
	if override.MaxAttempts != 0 {
		c.MaxAttempts = override.MaxAttempts
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Backoff != 0 {
		c.Backoff = override.Backoff
	}
	if override.RoutesFile != "" {
		c.RoutesFile = override.RoutesFile
	}
	return c
}

// resolve applies the model's route to fields not set explicitly and returns the
// provider model id.
func (c Config) resolve() (Config, string, error) {
	routes := DefaultRoutes()
	if c.RoutesFile != "" {
		loaded, err := LoadRoutes(c.RoutesFile)
		if err != nil {
			return c, "", err
		}
		routes = loaded
	}

	modelID := c.Model
	route, ok := routes[strings.ToLower(c.Model)]
	switch {
	case ok:
		if c.Endpoint == "" {
			c.Endpoint = route.BaseURL
		}
		if c.APIKey == "" {
			c.APIKey = route.APIKey
		}
		if c.APIKey == "" && route.APIKeyEnv != "" {
			c.APIKey = os.Getenv(route.APIKeyEnv)
		}
		if route.ModelID != "" {
			modelID = route.ModelID
		}
	case c.Endpoint == "":
		return c, "", fmt.Errorf("unsupported model %q: no route and no endpoint configured", c.Model)
	}
	if c.Endpoint == "" {
		c.Endpoint = openAIBaseURL
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	return c, modelID, nil
}
