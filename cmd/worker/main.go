// Package main is the entry point of the gomokuplane tournament worker.
// A worker claims one tournament job at a time from the shared Postgres queue and plays it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gomokuplane/internal/app"
	"gomokuplane/internal/config"
	"gomokuplane/internal/logger"

	"github.com/spf13/cobra"
)

var flagKeys = map[string]string{
	"worker-id": "worker_id",
	"db-url":    "database_url",
	"log-level": "log_level",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Run a gomokuplane tournament worker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverrides(configPath, app.FlagOverrides(cmd, flagKeys))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}
			if cfg.Store != config.StorePostgres {
				err := errors.New("the worker needs the postgres store; run `server --store memory` for a single-process setup")
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: gomoku.yaml in current directory)")
	cmd.Flags().String("worker-id", "", "Worker id (default: worker_<hostname>_<pid>)")
	cmd.Flags().String("db-url", "", "Postgres connection string")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.LogLevel)

	s, closeStore, err := app.OpenStore(ctx, cfg, false, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		return err
	}
	defer closeStore()

	tel, err := app.InitTelemetry(ctx, "gomokuplane-worker", cfg, log)
	if err != nil {
		log.Error("failed to init telemetry", "error", err)
		return err
	}
	defer tel.Shutdown(context.Background(), log)
	tel.ServeMetrics(ctx, cfg.MetricsPort, log)

	arts, err := app.Artifacts(ctx, cfg)
	if err != nil {
		log.Error("failed to open artifact store", "error", err)
		return err
	}

	jm := app.JobManager(s, cfg, log, tel.Instruments)
	w := app.NewWorker(s, jm, arts, cfg, log, tel.Instruments)
	if err := w.Register(ctx); err != nil {
		log.Error("failed to register worker", "error", err)
		return err
	}

	log.Info("worker started", "worker_id", w.ID())
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
		return err
	}
	log.Info("worker exited properly", "worker_id", w.ID())
	return nil
}
