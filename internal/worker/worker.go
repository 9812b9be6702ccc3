// Package worker runs tournament jobs claimed from the job queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gomokuplane/internal/jobs"
	"gomokuplane/internal/observability"
	"gomokuplane/internal/store"
	"gomokuplane/internal/tournament"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const msgNotEnoughAgents = "Tournament needs at least 2 agents"

// Config holds configuration for the worker.
type Config struct {
	ID                string
	PollInterval      time.Duration // Interval between queue polls (default: 5s)
	HeartbeatInterval time.Duration // Interval between heartbeats (default: 30s)
	DrainTimeout      time.Duration // How long an in-flight game may run after shutdown (default: 2m)
	CheckpointEvery   int           // Games between progress checkpoints (default: 10)
}

// Worker registers itself, claims tournament jobs one at a time and plays them.
type Worker struct {
	store    store.Store
	jobs     *jobs.Manager
	runner   *tournament.Runner
	config   Config
	logger   *slog.Logger
	hostname string
	done     chan struct{}

	mu         sync.Mutex
	currentJob *uuid.UUID
}

// DefaultID is worker_<hostname>_<pid>.
func DefaultID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("worker_%s_%d", host, os.Getpid())
}

// New creates a Worker.
func New(s store.Store, jm *jobs.Manager, runner *tournament.Runner, config Config, logger *slog.Logger) *Worker {
	if config.ID == "" {
		config.ID = DefaultID()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 2 * time.Minute
	}
	if config.CheckpointEvery <= 0 {
		config.CheckpointEvery = 10
	}
	host, _ := os.Hostname()
	return &Worker{
		store:    s,
		jobs:     jm,
		runner:   runner,
		config:   config,
		logger:   logger.With("worker_id", config.ID),
		hostname: host,
		done:     make(chan struct{}),
	}
}

// ID returns the worker id.
func (w *Worker) ID() string {
	return w.config.ID
}

// Register writes the worker row as active, replacing any row with the same id.
func (w *Worker) Register(ctx context.Context) error {
	now := w.jobs.Now()
	row := &store.WorkerProcess{
		ID:                w.config.ID,
		Hostname:          w.hostname,
		PID:               os.Getpid(),
		Status:            store.WorkerStatusActive,
		MaxConcurrentJobs: 1,
		StartedAt:         now,
		LastHeartbeat:     now,
	}
	if err := w.store.UpsertWorker(ctx, nil, row); err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}
	w.logger.Info("worker registered", "hostname", w.hostname, "pid", row.PID)
	return nil
}

// Deregister marks the worker inactive and clears its job pointer.
func (w *Worker) Deregister(ctx context.Context) error {
	row, err := w.store.GetWorker(ctx, nil, w.config.ID)
	if err != nil {
		return fmt.Errorf("failed to get worker: %w", err)
	}
	row.Status = store.WorkerStatusInactive
	row.CurrentJobID = nil
	if err := w.store.UpdateWorker(ctx, nil, row); err != nil {
		return fmt.Errorf("failed to deregister worker: %w", err)
	}
	w.logger.Info("worker deregistered")
	return nil
}

// Run polls for jobs until ctx is cancelled. A claimed tournament is played to the
// end, or drained on shutdown, before Run returns. The worker is deregistered on exit.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	w.logger.Info("worker starting", "poll_interval", w.config.PollInterval, "heartbeat_interval", w.config.HeartbeatInterval)

	hbCtx, stopHeartbeat := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runHeartbeat(hbCtx)
	}()

	for {
		claimed := w.poll(ctx)
		if claimed && ctx.Err() == nil {
			// Found work - poll again immediately
			continue
		}
		select {
		case <-ctx.Done():
			stopHeartbeat()
			wg.Wait()
			deregCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := w.Deregister(deregCtx); err != nil {
				w.logger.Error("deregister failed", "error", err)
			}
			cancel()
			return ctx.Err()
		case <-time.After(w.config.PollInterval):
		}
	}
}

// Done returns a channel that is closed when Run has fully stopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// poll claims and executes at most one job. Errors are logged, never returned.
func (w *Worker) poll(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	job, err := w.jobs.GetNextJob(ctx, w.config.ID)
	if err != nil {
		w.logger.Error("failed to get next job", "error", err)
		return false
	}
	if job == nil {
		return false
	}
	w.execute(ctx, job)
	return true
}

func (w *Worker) setCurrentJob(id *uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.currentJob = id
}

// CurrentJob returns the id of the job being executed, if any.
func (w *Worker) CurrentJob() *uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentJob
}

// runHeartbeat refreshes the worker row and the held job periodically.
func (w *Worker) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.heartbeat(ctx)
		}
	}
}

func (w *Worker) heartbeat(ctx context.Context) {
	if err := w.store.TouchWorkerHeartbeat(ctx, nil, w.config.ID, w.jobs.Now()); err != nil {
		w.logger.Error("worker heartbeat failed", "error", err)
	}
	id := w.CurrentJob()
	if id == nil {
		return
	}
	ok, err := w.jobs.UpdateJobHeartbeat(ctx, *id)
	if err != nil {
		w.logger.Error("job heartbeat failed", "job_id", *id, "error", err)
		return
	}
	if !ok {
		w.logger.Warn("job heartbeat refused, job is no longer running", "job_id", *id)
	}
}

// outcome is how an execution ended.
type outcome string

const (
	outcomeCompleted outcome = "completed"
	outcomeFailed    outcome = "failed"
	outcomeCancelled outcome = "cancelled"
	outcomeLost      outcome = "lost"
	outcomeReleased  outcome = "released"
)

// execute plays a claimed job. Games keep running after ctx is cancelled until the
// drain timeout expires, so the current game can finish before the job is released.
func (w *Worker) execute(ctx context.Context, job *store.Job) {
	w.setCurrentJob(&job.ID)
	defer w.setCurrentJob(nil)

	tracer := otel.Tracer(observability.MeterName)
	opCtx, span := tracer.Start(context.WithoutCancel(ctx), "process_tournament_job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.Int64("tournament.id", job.TournamentID),
			attribute.Int("job.retry_count", job.RetryCount),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	gameCtx, cancelGames := context.WithCancel(opCtx)
	defer cancelGames()
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-time.After(w.config.DrainTimeout):
				w.logger.Warn("drain timeout expired, aborting game", "job_id", job.ID)
				cancelGames()
			case <-gameCtx.Done():
			}
		case <-gameCtx.Done():
		}
	}()

	logger := w.logger.With("job_id", job.ID, "tournament_id", job.TournamentID)
	logger.Info("processing job", "attempt", job.RetryCount+1)

	out, err := w.runTournament(ctx, opCtx, gameCtx, job, logger)
	span.SetAttributes(attribute.String("job.outcome", string(out)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("job failed", "error", err)
		if abortErr := w.jobs.AbortJob(opCtx, job.ID, err.Error()); abortErr != nil && !errors.Is(abortErr, jobs.ErrJobNotRunning) {
			logger.Error("failed to mark job failed", "error", abortErr)
		}
		return
	}
	logger.Info("job finished", "outcome", out)
}

// runTournament plays the outstanding games of the job's tournament. shutdown signals
// a requested stop, opCtx carries store calls and gameCtx bounds the games.
func (w *Worker) runTournament(shutdown, opCtx, gameCtx context.Context, job *store.Job, logger *slog.Logger) (outcome, error) {
	t, err := w.store.GetTournament(opCtx, nil, job.TournamentID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to load tournament: %w", err)
	}
	switch t.Status {
	case store.TournamentStatusCompleted:
		logger.Info("tournament already completed")
		return outcomeCompleted, w.jobs.CompleteJob(opCtx, job.ID, true, "")
	case store.TournamentStatusCancelled:
		if _, err := w.jobs.CancelJob(opCtx, job.ID); err != nil {
			return outcomeCancelled, err
		}
		return outcomeCancelled, nil
	}

	participants, err := w.runner.LoadParticipants(opCtx, t)
	if errors.Is(err, tournament.ErrNotEnoughAgents) {
		return outcomeFailed, errors.New(msgNotEnoughAgents)
	}
	if err != nil {
		return outcomeFailed, err
	}
	schedule := tournament.RoundRobin(participants)

	t, err = w.markRunning(opCtx, t.ID, len(schedule))
	if err != nil {
		return outcomeFailed, err
	}
	if t.Status == store.TournamentStatusCancelled {
		return outcomeCancelled, nil
	}

	done, err := w.completedMatchups(opCtx, t, schedule, logger)
	if err != nil {
		return outcomeFailed, err
	}
	progress := func() json.RawMessage {
		return w.progress(t, schedule, done)
	}

	for _, m := range tournament.Remaining(schedule, done) {
		if shutdown.Err() != nil {
			return w.release(opCtx, job, progress(), logger)
		}
		if stop, err := w.shouldStop(opCtx, job, logger); err != nil || stop != "" {
			return stop, err
		}

		if _, err := w.runner.PlayGame(gameCtx, t, m.Black, m.White); err != nil {
			if gameCtx.Err() != nil {
				return w.release(opCtx, job, progress(), logger)
			}
			return outcomeFailed, fmt.Errorf("game %s: %w", m.Key(), err)
		}
		done[m.Key()] = true

		if n := countDone(schedule, done); n%w.config.CheckpointEvery == 0 && n < len(schedule) {
			w.checkpoint(opCtx, t.ID, store.CheckpointGamesProgress, progress(), logger)
		}
	}

	if stop, err := w.shouldStop(opCtx, job, logger); err != nil || stop != "" {
		return stop, err
	}
	if _, err := w.runner.Finalize(opCtx, t.ID, progress()); err != nil {
		return outcomeFailed, fmt.Errorf("failed to finalize tournament: %w", err)
	}
	if err := w.jobs.CompleteJob(opCtx, job.ID, true, ""); err != nil {
		return outcomeFailed, fmt.Errorf("failed to complete job: %w", err)
	}
	return outcomeCompleted, nil
}

// markRunning sets the tournament running and stamps started_at on the first attempt.
// A tournament cancelled in the meantime is returned unchanged.
func (w *Worker) markRunning(ctx context.Context, id int64, totalGames int) (*store.Tournament, error) {
	tx, err := w.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := w.store.GetTournament(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if t.Status == store.TournamentStatusCancelled {
		return t, nil
	}
	t.Status = store.TournamentStatusRunning
	t.TotalGames = totalGames
	if t.StartedAt == nil {
		now := w.jobs.Now()
		t.StartedAt = &now
	}
	if err := w.store.UpdateTournament(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("failed to start tournament: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tournament start: %w", err)
	}
	return t, nil
}

// shouldStop checks, between games, whether the tournament was cancelled or the job
// taken away from this worker.
func (w *Worker) shouldStop(ctx context.Context, job *store.Job, logger *slog.Logger) (outcome, error) {
	t, err := w.store.GetTournament(ctx, nil, job.TournamentID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to check tournament: %w", err)
	}
	if t.Status == store.TournamentStatusCancelled {
		logger.Info("tournament cancelled, stopping")
		return outcomeCancelled, nil
	}
	owned, err := w.jobs.OwnsJob(ctx, job.ID, w.config.ID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to check job ownership: %w", err)
	}
	if !owned {
		logger.Warn("job no longer owned by this worker, stopping")
		return outcomeLost, nil
	}
	return "", nil
}

// release writes a progress checkpoint and hands the job back to the queue.
func (w *Worker) release(ctx context.Context, job *store.Job, data json.RawMessage, logger *slog.Logger) (outcome, error) {
	w.checkpoint(ctx, job.TournamentID, store.CheckpointGamesProgress, data, logger)
	if err := w.jobs.ReleaseJob(ctx, job.ID, "Worker shutdown"); err != nil {
		if errors.Is(err, jobs.ErrJobNotRunning) {
			return outcomeLost, nil
		}
		return outcomeFailed, fmt.Errorf("failed to release job: %w", err)
	}
	logger.Info("job released for another worker")
	return outcomeReleased, nil
}
