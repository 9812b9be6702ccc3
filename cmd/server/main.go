// Package main is the entry point of the gomokuplane server: admin API, health
// monitor and startup recovery. With the memory store it also runs a worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gomokuplane/internal/app"
	"gomokuplane/internal/config"
	"gomokuplane/internal/controller"
	"gomokuplane/internal/controller/handlers"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/monitor"
	"gomokuplane/internal/recovery"

	"github.com/spf13/cobra"
)

var flagKeys = map[string]string{
	"store":     "store",
	"db-url":    "database_url",
	"port":      "http_port",
	"log-level": "log_level",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		migrate    bool
	)
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the gomokuplane API server, health monitor and startup recovery",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverrides(configPath, app.FlagOverrides(cmd, flagKeys))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, migrate)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: gomoku.yaml in current directory)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run database migrations before starting")
	cmd.Flags().String("store", config.StorePostgres, "Store backend: postgres or memory")
	cmd.Flags().String("db-url", "", "Postgres connection string")
	cmd.Flags().Int("port", 8080, "HTTP port of the API")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, migrate bool) error {
	log := logger.New(cfg.LogLevel)

	s, closeStore, err := app.OpenStore(ctx, cfg, migrate, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		return err
	}
	defer closeStore()

	tel, err := app.InitTelemetry(ctx, "gomokuplane-server", cfg, log)
	if err != nil {
		log.Error("failed to init telemetry", "error", err)
		return err
	}
	defer tel.Shutdown(context.Background(), log)

	jm := app.JobManager(s, cfg, log, tel.Instruments)
	tel.RegisterQueueDepth(jm, log)
	tel.ServeMetrics(ctx, cfg.MetricsPort, log)

	arts, err := app.Artifacts(ctx, cfg)
	if err != nil {
		log.Error("failed to open artifact store", "error", err)
		return err
	}

	rec := recovery.New(s, jm, recovery.Config{
		StaleThreshold:   cfg.StaleWorkerThreshold,
		RecoveryPriority: cfg.RecoveryPriority,
	}, log)
	summary := rec.RecoverOnStartup(ctx)
	log.Info("startup recovery finished",
		"stale_workers", summary.StaleWorkersCleaned,
		"stale_jobs", summary.StaleJobsRecovered,
		"requeued", summary.TournamentsRequeued,
		"orphaned_jobs", summary.OrphanedJobsCleaned,
		"inconsistencies", summary.DataInconsistenciesFixed,
	)

	mon := monitor.New(s, jm, monitor.Config{
		CheckInterval:     cfg.MonitorInterval,
		WorkerTimeout:     cfg.WorkerTimeout,
		JobTimeout:        cfg.JobTimeout,
		JobRetention:      cfg.JobRetention,
		CheckpointsToKeep: cfg.CheckpointsToKeep,
		RecoveryPriority:  cfg.RecoveryPriority,
	}, log, tel.Instruments)
	if err := mon.Start(ctx); err != nil {
		log.Error("failed to start health monitor", "error", err)
		return err
	}
	defer mon.Stop()

	// A memory store is invisible to other processes, so the worker runs here.
	if cfg.Store == config.StoreMemory {
		w := app.NewWorker(s, jm, arts, cfg, log, tel.Instruments)
		if err := w.Register(ctx); err != nil {
			log.Error("failed to register embedded worker", "error", err)
			return err
		}
		go w.Run(ctx)
		defer func() { <-w.Done() }()
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, handlers.Deps{
		Store:         s,
		Jobs:          jm,
		Monitor:       mon,
		Recovery:      rec,
		Artifacts:     arts,
		Logger:        log,
		WorkerTimeout: cfg.WorkerTimeout,
	}, controller.Options{
		AdminToken:     cfg.AdminToken,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	if cfg.AdminToken == "" {
		log.Warn("admin_token is not set, admin routes are unauthenticated")
	}
	log.Info("gomokuplane server starting", "addr", addr, "store", cfg.Store)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("server exited properly")
	return nil
}
