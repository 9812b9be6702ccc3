// Package config loads settings from defaults, an optional YAML file, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"gomokuplane/internal/llm"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string, required for the postgres store
	DatabaseURL string `mapstructure:"database_url"`

	// Store backend: postgres or memory
	Store string `mapstructure:"store"`

	HTTPPort    int    `mapstructure:"http_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	ServerURL   string `mapstructure:"server_url"`

	// Bearer token for /admin and mutating routes. Empty disables the check.
	AdminToken     string  `mapstructure:"admin_token"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	// OTLP gRPC collector address. Empty disables tracing.
	OTELEndpoint string `mapstructure:"otel_endpoint"`
	// Fraction of root traces sampled, 0..1.
	OTELSampleRatio float64 `mapstructure:"otel_sample_ratio"`
	LogLevel        string  `mapstructure:"log_level"`

	WorkerID                string        `mapstructure:"worker_id"`
	WorkerPollInterval      time.Duration `mapstructure:"worker_poll_interval"`
	WorkerHeartbeatInterval time.Duration `mapstructure:"worker_heartbeat_interval"`
	WorkerDrainTimeout      time.Duration `mapstructure:"worker_drain_timeout"`
	CheckpointEvery         int           `mapstructure:"checkpoint_every"`

	HeartbeatTimeout     time.Duration `mapstructure:"heartbeat_timeout"`
	WorkerTimeout        time.Duration `mapstructure:"worker_timeout"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	MonitorInterval      time.Duration `mapstructure:"monitor_interval"`
	StaleWorkerThreshold time.Duration `mapstructure:"stale_worker_threshold"`
	JobRetention         time.Duration `mapstructure:"job_retention"`
	CheckpointsToKeep    int           `mapstructure:"checkpoints_to_keep"`
	RecoveryPriority     int           `mapstructure:"recovery_priority"`

	BoardSize   int           `mapstructure:"board_size"`
	WinLength   int           `mapstructure:"win_length"`
	MoveTimeout time.Duration `mapstructure:"move_timeout"`

	Artifacts Artifacts `mapstructure:"artifacts"`
	LLM       LLM       `mapstructure:"llm"`
}

// Artifacts selects where game logs are written. A bucket selects S3, otherwise Dir is used.
type Artifacts struct {
	Dir        string `mapstructure:"dir"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

// LLM holds the server-wide defaults of llm agents.
type LLM struct {
	Endpoint          string  `mapstructure:"endpoint"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
	RoutesFile        string  `mapstructure:"routes_file"`
}

var defaults = map[string]any{
	"store":                     StorePostgres,
	"http_port":                 8080,
	"metrics_port":              6162,
	"server_url":                "http://localhost:8080",
	"rate_limit":                20.0,
	"rate_limit_burst":          40,
	"log_level":                 "info",
	"otel_sample_ratio":         1.0,
	"worker_poll_interval":      "5s",
	"worker_heartbeat_interval": "30s",
	"worker_drain_timeout":      "2m",
	"checkpoint_every":          10,
	"heartbeat_timeout":         "5m",
	"worker_timeout":            "5m",
	"job_timeout":               "1h",
	"max_retries":               3,
	"monitor_interval":          "1m",
	"stale_worker_threshold":    "10m",
	"job_retention":             "168h",
	"checkpoints_to_keep":       5,
	"recovery_priority":         1,
	"board_size":                8,
	"win_length":                5,
	"move_timeout":              "30s",
	"artifacts.dir":             "game_logs",
	"llm.model":                 "gpt-4o-mini",
	"llm.temperature":           0.7,
	"llm.max_tokens":            150,
	"llm.requests_per_second":   2.0,
	"llm.max_attempts":          3,
}

// Keys read from the environment besides the upper-cased key name.
var envAliases = map[string][]string{
	"http_port":     {"PORT"},
	"otel_endpoint": {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"llm.api_key":   {"OPENAI_API_KEY"},
}

var envKeys = []string{
	"database_url", "store", "http_port", "metrics_port", "server_url", "admin_token",
	"rate_limit", "rate_limit_burst", "otel_endpoint", "otel_sample_ratio", "log_level",
	"worker_id", "worker_poll_interval", "worker_heartbeat_interval", "worker_drain_timeout", "checkpoint_every",
	"heartbeat_timeout", "worker_timeout", "job_timeout", "max_retries", "monitor_interval",
	"stale_worker_threshold", "job_retention", "checkpoints_to_keep", "recovery_priority",
	"board_size", "win_length", "move_timeout",
	"artifacts.dir", "artifacts.s3_bucket", "artifacts.s3_prefix", "artifacts.s3_region", "artifacts.s3_endpoint",
	"llm.endpoint", "llm.api_key", "llm.model", "llm.temperature", "llm.max_tokens",
	"llm.requests_per_second", "llm.max_attempts", "llm.routes_file",
}

// Load reads configuration. path names a YAML file; when empty, gomoku.yaml in the
// working directory is used if present. A .env file in the working directory is
// loaded into the environment first. Environment variables override the file.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with values that take precedence over every other
// source, keyed like the config file. Binaries pass the flags the user set.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range envKeys {
		names := append([]string{strings.ToUpper(strings.ReplaceAll(k, ".", "_"))}, envAliases[k]...)
		if err := v.BindEnv(append([]string{k}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("gomoku")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read gomoku.yaml: %w", err)
			}
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required (env: DATABASE_URL)")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid store %q: must be %s or %s", c.Store, StorePostgres, StoreMemory)
	}
	if c.WinLength > c.BoardSize {
		return fmt.Errorf("win_length %d exceeds board_size %d", c.WinLength, c.BoardSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.OTELSampleRatio < 0 || c.OTELSampleRatio > 1 {
		return fmt.Errorf("otel_sample_ratio must be within 0..1, got %v", c.OTELSampleRatio)
	}
	return nil
}

// LLMDefaults returns the llm client settings shared by every llm agent.
func (c *Config) LLMDefaults() llm.Config {
	return llm.DefaultConfig().Merge(llm.Config{
		Endpoint:          c.LLM.Endpoint,
		APIKey:            c.LLM.APIKey,
		Model:             c.LLM.Model,
		Temperature:       c.LLM.Temperature,
		MaxTokens:         c.LLM.MaxTokens,
		RequestsPerSecond: c.LLM.RequestsPerSecond,
		MaxAttempts:       c.LLM.MaxAttempts,
		RoutesFile:        c.LLM.RoutesFile,
	})
}
