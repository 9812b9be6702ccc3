package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test from an empty directory so no stray gomoku.yaml or .env is read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE", "")
	return dir
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	isolate(t)

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if err.Error() != "database_url is required (env: DATABASE_URL)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_MemoryStoreNeedsNoDatabase(t *testing.T) {
	isolate(t)
	t.Setenv("STORE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("expected memory store, got %s", cfg.Store)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store != StorePostgres {
		t.Errorf("expected Store postgres, got %s", cfg.Store)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.HTTPPort)
	}
	if cfg.MetricsPort != 6162 {
		t.Errorf("expected MetricsPort 6162, got %d", cfg.MetricsPort)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("expected ServerURL http://localhost:8080, got %s", cfg.ServerURL)
	}
	if cfg.WorkerPollInterval != 5*time.Second {
		t.Errorf("expected WorkerPollInterval 5s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.WorkerHeartbeatInterval != 30*time.Second {
		t.Errorf("expected WorkerHeartbeatInterval 30s, got %v", cfg.WorkerHeartbeatInterval)
	}
	if cfg.WorkerDrainTimeout != 2*time.Minute {
		t.Errorf("expected WorkerDrainTimeout 2m, got %v", cfg.WorkerDrainTimeout)
	}
	if cfg.HeartbeatTimeout != 5*time.Minute || cfg.WorkerTimeout != 5*time.Minute {
		t.Errorf("expected 5m timeouts, got %v and %v", cfg.HeartbeatTimeout, cfg.WorkerTimeout)
	}
	if cfg.JobTimeout != time.Hour {
		t.Errorf("expected JobTimeout 1h, got %v", cfg.JobTimeout)
	}
	if cfg.JobRetention != 7*24*time.Hour {
		t.Errorf("expected JobRetention 168h, got %v", cfg.JobRetention)
	}
	if cfg.MaxRetries != 3 || cfg.CheckpointEvery != 10 || cfg.CheckpointsToKeep != 5 || cfg.RecoveryPriority != 1 {
		t.Errorf("unexpected counters: %+v", cfg)
	}
	if cfg.BoardSize != 8 || cfg.WinLength != 5 || cfg.MoveTimeout != 30*time.Second {
		t.Errorf("unexpected game settings: %d %d %v", cfg.BoardSize, cfg.WinLength, cfg.MoveTimeout)
	}
	if cfg.Artifacts.Dir != "game_logs" {
		t.Errorf("expected Artifacts.Dir game_logs, got %s", cfg.Artifacts.Dir)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.MaxTokens != 150 {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.OTELEndpoint != "" {
		t.Errorf("expected tracing disabled by default, got %s", cfg.OTELEndpoint)
	}
	if cfg.OTELSampleRatio != 1 {
		t.Errorf("expected every trace sampled by default, got %v", cfg.OTELSampleRatio)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("PORT", "9999")
	t.Setenv("WORKER_POLL_INTERVAL", "2s")
	t.Setenv("JOB_TIMEOUT", "90m")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("ARTIFACTS_S3_BUCKET", "games")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.WorkerPollInterval != 2*time.Second {
		t.Errorf("expected WorkerPollInterval 2s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.JobTimeout != 90*time.Minute {
		t.Errorf("expected JobTimeout 90m, got %v", cfg.JobTimeout)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint from env, got %s", cfg.OTELEndpoint)
	}
	if cfg.Artifacts.S3Bucket != "games" {
		t.Errorf("expected S3 bucket from env, got %s", cfg.Artifacts.S3Bucket)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected llm api key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
database_url: postgres://file/db
http_port: 7070
monitor_interval: 30s
board_size: 15
artifacts:
  dir: /var/lib/gomoku
llm:
  model: gpt-4o
  temperature: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "7171")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Errorf("expected DatabaseURL from file, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 7171 {
		t.Errorf("expected env to override file, got %d", cfg.HTTPPort)
	}
	if cfg.MonitorInterval != 30*time.Second || cfg.BoardSize != 15 {
		t.Errorf("unexpected values: %v %d", cfg.MonitorInterval, cfg.BoardSize)
	}
	if cfg.Artifacts.Dir != "/var/lib/gomoku" {
		t.Errorf("expected nested artifacts.dir, got %s", cfg.Artifacts.Dir)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.Temperature != 0.2 {
		t.Errorf("unexpected llm section: %+v", cfg.LLM)
	}
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "gomoku.yaml"), []byte("store: memory\nwin_length: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.WinLength != 4 {
		t.Errorf("gomoku.yaml not applied: store=%s win_length=%d", cfg.Store, cfg.WinLength)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKER_ID=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORE", "memory")
	// godotenv never overrides variables already set; registering WORKER_ID here
	// also restores it after the test.
	t.Setenv("WORKER_ID", "")
	os.Unsetenv("WORKER_ID")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerID != "from-dotenv" {
		t.Errorf("expected WorkerID from .env, got %q", cfg.WorkerID)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := LoadWithOverrides("", map[string]any{
		"store":     StoreMemory,
		"log_level": "debug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: store=%s log_level=%s", cfg.Store, cfg.LogLevel)
	}
	if cfg.HTTPPort != 9000 {
		t.Errorf("environment lost: http_port=%d", cfg.HTTPPort)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load("/nonexistent/gomoku.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres with url", Config{Store: StorePostgres, DatabaseURL: "postgres://x", BoardSize: 8, WinLength: 5}, false},
		{"memory", Config{Store: StoreMemory, BoardSize: 8, WinLength: 5}, false},
		{"unknown store", Config{Store: "sqlite", BoardSize: 8, WinLength: 5}, true},
		{"win longer than board", Config{Store: StoreMemory, BoardSize: 4, WinLength: 5}, true},
		{"negative retries", Config{Store: StoreMemory, BoardSize: 8, WinLength: 5, MaxRetries: -1}, true},
		{"sample ratio above 1", Config{Store: StoreMemory, BoardSize: 8, WinLength: 5, OTELSampleRatio: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLLMDefaults(t *testing.T) {
	cfg := Config{LLM: LLM{Model: "gpt-4o", MaxTokens: 64}}
	got := cfg.LLMDefaults()
	if got.Model != "gpt-4o" || got.MaxTokens != 64 {
		t.Errorf("explicit values not applied: %+v", got)
	}
	if got.Temperature != 0.7 || got.MaxAttempts != 3 {
		t.Errorf("defaults not kept: %+v", got)
	}
}
