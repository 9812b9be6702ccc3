package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gomokuplane/internal/llm"
	"gomokuplane/internal/store"
)

// ErrUnknownKind is returned for agent records whose kind has no constructor.
var ErrUnknownKind = errors.New("unknown agent kind")

// SimpleConfig is the config of a simple agent.
type SimpleConfig struct {
	Seed int64 `json:"seed,omitempty"`
}

// LLMConfig is the config of an llm agent. Unset fields use the server's llm settings.
type LLMConfig struct {
	Model       string  `json:"model,omitempty"`
	Endpoint    string  `json:"endpoint,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	LogTraffic  bool    `json:"log_traffic,omitempty"`
}

// Factory builds agents from their registry records. LLM clients are shared per
// model and endpoint so their rate limits apply across games.
type Factory struct {
	llmDefaults llm.Config
	logger      *slog.Logger
	newClient   func(llm.Config) (llm.Client, error)

	mu      sync.Mutex
	clients map[string]llm.Client
}

// NewFactory creates a Factory. llmDefaults is merged under each agent's LLMConfig.
func NewFactory(llmDefaults llm.Config, logger *slog.Logger) *Factory {
	return &Factory{
		llmDefaults: llmDefaults,
		logger:      logger,
		newClient: func(c llm.Config) (llm.Client, error) {
			return llm.NewHTTPClient(c)
		},
		clients: make(map[string]llm.Client),
	}
}

// Build constructs the agent described by a.
func (f *Factory) Build(a store.Agent) (Agent, error) {
	switch a.Kind {
	case store.AgentKindSimple:
		var cfg SimpleConfig
		if err := decodeConfig(a.Config, &cfg); err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		if cfg.Seed == 0 {
			cfg.Seed = time.Now().UnixNano() + a.ID
		}
		return NewSimple(cfg.Seed), nil

	case store.AgentKindLLM:
		var cfg LLMConfig
		if err := decodeConfig(a.Config, &cfg); err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		client, err := f.llmClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		return NewLLM(client, f.logger.With("agent", a.Name)), nil

	case store.AgentKindProcess:
		var cfg ProcessConfig
		if err := decodeConfig(a.Config, &cfg); err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		p, err := NewProcess(cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("agent %s kind %q: %w", a.Name, a.Kind, ErrUnknownKind)
}

func (f *Factory) llmClient(cfg LLMConfig) (llm.Client, error) {
	merged := f.llmDefaults.Merge(llm.Config{
		Model:       cfg.Model,
		Endpoint:    cfg.Endpoint,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	key := fmt.Sprintf("%s|%s|%v", merged.Model, merged.Endpoint, cfg.LogTraffic)

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[key]; ok {
		return c, nil
	}
	c, err := f.newClient(merged)
	if err != nil {
		return nil, err
	}
	if cfg.LogTraffic {
		c = llm.WithLogging(c, f.logger)
	}
	f.clients[key] = c
	return c, nil
}

// ValidateConfig checks that raw decodes as the config of kind.
func ValidateConfig(kind store.AgentKind, raw json.RawMessage) error {
	switch kind {
	case store.AgentKindSimple:
		return decodeConfig(raw, &SimpleConfig{})
	case store.AgentKindLLM:
		return decodeConfig(raw, &LLMConfig{})
	case store.AgentKindProcess:
		var cfg ProcessConfig
		if err := decodeConfig(raw, &cfg); err != nil {
			return err
		}
		if len(cfg.Command) == 0 {
			return errors.New("command is required")
		}
		return nil
	}
	return fmt.Errorf("kind %q: %w", kind, ErrUnknownKind)
}

func decodeConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
