package app

import (
	"context"
	"testing"
	"time"

	"gomokuplane/internal/artifact"
	"gomokuplane/internal/config"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/store/memory"

	"github.com/spf13/cobra"
)

func TestFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("store", "postgres", "")
	cmd.Flags().Int("port", 8080, "")
	cmd.Flags().String("log-level", "info", "")
	if err := cmd.Flags().Parse([]string{"--store", "memory", "--port", "9090"}); err != nil {
		t.Fatal(err)
	}

	got := FlagOverrides(cmd, map[string]string{
		"store":     "store",
		"port":      "http_port",
		"log-level": "log_level",
		"missing":   "nothing",
	})
	if len(got) != 2 {
		t.Fatalf("got %v, want only the changed flags", got)
	}
	if got["store"] != "memory" || got["http_port"] != "9090" {
		t.Errorf("got %v", got)
	}
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreMemory}
	s, closeFn, err := OpenStore(context.Background(), cfg, true, logger.Discard())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer closeFn()
	if _, ok := s.(*memory.Store); !ok {
		t.Errorf("OpenStore() = %T, want *memory.Store", s)
	}
}

func TestJobManager(t *testing.T) {
	cfg := &config.Config{HeartbeatTimeout: 2 * time.Minute, JobTimeout: 30 * time.Minute, MaxRetries: 4}
	jm := JobManager(memory.New(), cfg, logger.Discard(), nil)

	got := jm.Config()
	if got.HeartbeatTimeout != 2*time.Minute || got.JobTimeout != 30*time.Minute || got.MaxRetries != 4 {
		t.Errorf("Config() = %+v", got)
	}
}

func TestArtifacts_LocalDir(t *testing.T) {
	cfg := &config.Config{Artifacts: config.Artifacts{Dir: t.TempDir()}}
	arts, err := Artifacts(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Artifacts() error = %v", err)
	}
	if _, ok := arts.(*artifact.LocalStore); !ok {
		t.Errorf("Artifacts() = %T, want *artifact.LocalStore", arts)
	}
}

func TestNewWorker(t *testing.T) {
	cfg := &config.Config{WorkerID: "w-test", BoardSize: 8, WinLength: 5, MoveTimeout: time.Second}
	s := memory.New()
	jm := JobManager(s, cfg, logger.Discard(), nil)

	w := NewWorker(s, jm, nil, cfg, logger.Discard(), nil)
	if w.ID() != "w-test" {
		t.Errorf("ID() = %q", w.ID())
	}
	if err := w.Register(context.Background()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	row, err := s.GetWorker(context.Background(), nil, "w-test")
	if err != nil || row.Status != "active" {
		t.Errorf("registered row = %+v, %v", row, err)
	}
}
