// Package app wires configuration into the long-running components shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gomokuplane/internal/agent"
	"gomokuplane/internal/artifact"
	"gomokuplane/internal/config"
	"gomokuplane/internal/jobs"
	"gomokuplane/internal/observability"
	"gomokuplane/internal/store"
	"gomokuplane/internal/store/memory"
	"gomokuplane/internal/store/postgres"
	"gomokuplane/internal/tournament"
	"gomokuplane/internal/worker"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// FlagOverrides collects the flags the user set explicitly, keyed by config key.
// keys maps flag names to config keys.
func FlagOverrides(cmd *cobra.Command, keys map[string]string) map[string]any {
	out := make(map[string]any)
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			out[key] = f.Value.String()
		}
	}
	return out
}

// OpenStore opens the configured store. migrate applies pending schema migrations
// first and is ignored by the memory store.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (store.Store, func() error, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, state is lost on exit")
		s := memory.New()
		return s, s.Close, nil
	}

	s, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if migrate {
		logger.Info("running database migrations")
		version, err := postgres.Migrate(s.DB())
		if err != nil {
			s.Close()
			return nil, nil, err
		}
		logger.Info("migrations completed", "version", version)
	}
	return s, s.Close, nil
}

// Telemetry holds the process-wide metrics and tracing setup.
type Telemetry struct {
	Instruments    *observability.Instruments
	MetricsHandler http.Handler

	shutdownTracer  func(context.Context) error
	shutdownMetrics func(context.Context) error
}

// InitTelemetry installs the Prometheus-backed meter provider and, when an
// endpoint is configured, the OTLP tracer.
func InitTelemetry(ctx context.Context, service string, cfg *config.Config, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{shutdownTracer: observability.NoopShutdown}

	if cfg.OTELEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			Service:     service,
			Endpoint:    cfg.OTELEndpoint,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		t.shutdownTracer = shutdown
		logger.Info("tracing enabled", "endpoint", cfg.OTELEndpoint, "sample_ratio", cfg.OTELSampleRatio)
	}

	handler, shutdown, err := observability.InitMetrics(ctx, service)
	if err != nil {
		t.shutdownTracer(ctx)
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	t.MetricsHandler = handler
	t.shutdownMetrics = shutdown

	inst, err := observability.NewInstruments(otel.Meter(observability.MeterName))
	if err != nil {
		t.Shutdown(ctx, logger)
		return nil, err
	}
	t.Instruments = inst
	return t, nil
}

// Shutdown flushes metrics and spans. Errors are logged.
func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) {
	if t.shutdownMetrics != nil {
		if err := t.shutdownMetrics(ctx); err != nil {
			logger.Error("failed to shutdown metrics", "error", err)
		}
	}
	if err := t.shutdownTracer(ctx); err != nil {
		logger.Error("failed to shutdown tracer", "error", err)
	}
}

// RegisterQueueDepth exports the pending and running job counts of jm.
func (t *Telemetry) RegisterQueueDepth(jm *jobs.Manager, logger *slog.Logger) {
	_, err := observability.RegisterQueueDepth(otel.Meter(observability.MeterName), func(ctx context.Context) (int64, int64, error) {
		qs, err := jm.GetQueueStatus(ctx)
		if err != nil {
			// Don't fail the scrape on a DB error.
			logger.Warn("failed to count queue depth", "error", err)
			return 0, 0, nil
		}
		return int64(qs.Pending), int64(qs.Running), nil
	})
	if err != nil {
		logger.Error("failed to register queue depth metric", "error", err)
	}
}

// ServeMetrics serves /metrics on port until ctx is cancelled.
func (t *Telemetry) ServeMetrics(ctx context.Context, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.MetricsHandler)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
}

// JobManager builds the job manager from the timeout and retry settings.
func JobManager(s store.Store, cfg *config.Config, logger *slog.Logger, inst *observability.Instruments) *jobs.Manager {
	return jobs.NewManager(s, jobs.Config{
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		JobTimeout:       cfg.JobTimeout,
		MaxRetries:       cfg.MaxRetries,
	}, logger, inst)
}

// Artifacts opens the configured game artifact store.
func Artifacts(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	return artifact.Open(ctx, cfg.Artifacts.Dir, artifact.S3Config{
		Bucket:   cfg.Artifacts.S3Bucket,
		Prefix:   cfg.Artifacts.S3Prefix,
		Region:   cfg.Artifacts.S3Region,
		Endpoint: cfg.Artifacts.S3Endpoint,
	})
}

// NewWorker assembles a tournament worker: agent factory, runner and worker loop.
func NewWorker(s store.Store, jm *jobs.Manager, arts artifact.Store, cfg *config.Config, logger *slog.Logger, inst *observability.Instruments) *worker.Worker {
	factory := agent.NewFactory(cfg.LLMDefaults(), logger)
	runner := tournament.NewRunner(s, factory, arts, tournament.Config{
		BoardSize:   cfg.BoardSize,
		WinLength:   cfg.WinLength,
		MoveTimeout: cfg.MoveTimeout,
	}, logger, inst)
	return worker.New(s, jm, runner, worker.Config{
		ID:                cfg.WorkerID,
		PollInterval:      cfg.WorkerPollInterval,
		HeartbeatInterval: cfg.WorkerHeartbeatInterval,
		DrainTimeout:      cfg.WorkerDrainTimeout,
		CheckpointEvery:   cfg.CheckpointEvery,
	}, logger)
}
