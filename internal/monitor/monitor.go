// Package monitor runs the periodic health checks that repair workers, jobs and
// tournaments left behind by crashed processes.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gomokuplane/internal/jobs"
	"gomokuplane/internal/observability"
	"gomokuplane/internal/store"

	"github.com/robfig/cron/v3"
)

// Config holds the monitor settings.
type Config struct {
	CheckInterval     time.Duration // Time between checks (default: 1m)
	WorkerTimeout     time.Duration // Heartbeat age after which an active worker is crashed (default: 5m)
	JobTimeout        time.Duration // Runtime after which a job is aborted, unless the job carries its own (default: 1h)
	JobRetention      time.Duration // Age after which terminal jobs are deleted (default: 168h)
	CheckpointsToKeep int           // Newest checkpoints kept per tournament (default: 5)
	RecoveryPriority  int           // Priority of jobs created for orphaned tournaments (default: 1)
}

// Report counts the repairs made by one RunChecks pass.
type Report struct {
	Skipped             bool
	WorkersCrashed      int
	JobsTimedOut        int
	StaleJobsFailed     int
	TournamentsRequeued int
	TournamentsFailed   int
	JobsDeleted         int64
	CheckpointsPruned   int64
	Errors              int
}

// WorkerCounts is the worker part of a HealthStatus.
type WorkerCounts struct {
	Total     int
	Active    int
	Healthy   int
	Unhealthy int
}

// JobCounts is the job part of a HealthStatus.
type JobCounts struct {
	Total   int
	Running int
	Pending int
	Failed  int
}

// TournamentCounts is the tournament part of a HealthStatus.
type TournamentCounts struct {
	Running int
	Pending int
}

const (
	SystemHealthy  = "healthy"
	SystemDegraded = "degraded"
)

// HealthStatus is a snapshot of the system as seen by the monitor.
type HealthStatus struct {
	Timestamp        time.Time
	MonitoringActive bool
	Workers          WorkerCounts
	Jobs             JobCounts
	Tournaments      TournamentCounts
	SystemHealth     string
}

// Monitor schedules RunChecks on a cron and exposes health snapshots.
type Monitor struct {
	store  store.Store
	jobs   *jobs.Manager
	config Config
	logger *slog.Logger
	inst   *observability.Instruments

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Monitor. A nil inst records no metrics.
func New(s store.Store, jm *jobs.Manager, config Config, logger *slog.Logger, inst *observability.Instruments) *Monitor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.WorkerTimeout <= 0 {
		config.WorkerTimeout = 5 * time.Minute
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = time.Hour
	}
	if config.JobRetention <= 0 {
		config.JobRetention = 7 * 24 * time.Hour
	}
	if config.CheckpointsToKeep <= 0 {
		config.CheckpointsToKeep = 5
	}
	if config.RecoveryPriority <= 0 {
		config.RecoveryPriority = 1
	}
	if inst == nil {
		inst = observability.NoopInstruments()
	}
	return &Monitor{
		store:  s,
		jobs:   jm,
		config: config,
		logger: logger.With("component", "monitor"),
		inst:   inst,
	}
}

// Start schedules the checks every CheckInterval. Checks run with ctx until Stop.
// A tick that is still running when the next one fires is skipped.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		m.logger.Warn("health monitoring is already running")
		return nil
	}

	l := cronLogger{m.logger}
	c := cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	spec := fmt.Sprintf("@every %s", m.config.CheckInterval)
	if _, err := c.AddFunc(spec, func() { m.RunChecks(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}
	c.Start()
	m.cron = c
	m.logger.Info("health monitoring started", "check_interval", m.config.CheckInterval)
	return nil
}

// Stop unschedules the checks and waits for a running one to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Info("health monitoring stopped")
}

// Running reports whether checks are scheduled.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cron != nil
}

// RunChecks performs one pass of every check. Each check is isolated: an error or
// panic in one is logged and the next still runs. The pass is skipped when the
// store is unreachable.
func (m *Monitor) RunChecks(ctx context.Context) Report {
	var r Report
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("store unreachable, skipping health checks", "error", err)
		r.Skipped = true
		return r
	}

	m.step(ctx, "worker_health", &r, m.checkWorkers)
	m.step(ctx, "job_heartbeats", &r, m.checkHeartbeats)
	m.step(ctx, "job_health", &r, m.checkJobs)
	m.step(ctx, "tournament_consistency", &r, m.checkTournaments)
	m.step(ctx, "retention", &r, m.cleanup)

	if r.WorkersCrashed+r.StaleJobsFailed+r.JobsTimedOut+r.TournamentsRequeued+r.TournamentsFailed > 0 {
		m.logger.Info("health checks repaired state",
			"workers_crashed", r.WorkersCrashed,
			"stale_jobs_failed", r.StaleJobsFailed,
			"jobs_timed_out", r.JobsTimedOut,
			"tournaments_requeued", r.TournamentsRequeued,
			"tournaments_failed", r.TournamentsFailed)
	}
	return r
}

func (m *Monitor) step(ctx context.Context, name string, r *Report, fn func(context.Context, *Report) error) {
	defer func() {
		if p := recover(); p != nil {
			r.Errors++
			m.logger.Error("health check panicked", "check", name, "panic", p)
		}
	}()
	if err := fn(ctx, r); err != nil {
		r.Errors++
		m.logger.Error("health check failed", "check", name, "error", err)
	}
}

func (m *Monitor) checkWorkers(ctx context.Context, r *Report) error {
	active, err := m.store.ListWorkers(ctx, nil, store.WorkerStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active workers: %w", err)
	}
	now := m.jobs.Now()
	var errs []error
	for _, w := range active {
		if w.Healthy(now, m.config.WorkerTimeout) {
			continue
		}
		m.logger.Warn("worker is unhealthy", "worker_id", w.ID, "last_heartbeat", w.LastHeartbeat)
		job, err := m.jobs.MarkWorkerCrashed(ctx, w.ID, jobs.Requeue)
		if err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", w.ID, err))
			continue
		}
		r.WorkersCrashed++
		m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("worker_crashed"))
		if job != nil {
			m.logger.Warn("reassigned job from crashed worker", "worker_id", w.ID, "job_id", job.ID)
		}
	}
	return errors.Join(errs...)
}

// checkHeartbeats fails running jobs whose own heartbeat stopped while their worker
// still looks alive. Their tournaments are picked up as orphans by the next step.
func (m *Monitor) checkHeartbeats(ctx context.Context, r *Report) error {
	n, err := m.jobs.CleanupStaleJobs(ctx)
	if err != nil {
		return err
	}
	r.StaleJobsFailed += n
	if n > 0 {
		m.inst.MonitorRemediations.Add(ctx, int64(n), observability.Reason("job_heartbeat"))
	}
	return nil
}

func (m *Monitor) checkJobs(ctx context.Context, r *Report) error {
	running, err := m.store.ListJobs(ctx, nil, store.JobFilter{Statuses: []store.JobStatus{store.JobStatusRunning}})
	if err != nil {
		return fmt.Errorf("failed to list running jobs: %w", err)
	}
	now := m.jobs.Now()
	var errs []error
	for _, job := range running {
		timeout := m.config.JobTimeout
		if job.TimeoutSeconds > 0 {
			timeout = time.Duration(job.TimeoutSeconds) * time.Second
		}
		if job.StartedAt == nil || now.Sub(*job.StartedAt) <= timeout {
			continue
		}
		m.logger.Warn("job has been running too long", "job_id", job.ID, "started_at", *job.StartedAt)
		reason := fmt.Sprintf("Job timeout after %d seconds", int(timeout.Seconds()))
		err := m.jobs.AbortJob(ctx, job.ID, reason)
		if errors.Is(err, jobs.ErrJobNotRunning) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
			continue
		}
		r.JobsTimedOut++
		m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("job_timeout"))
	}
	return errors.Join(errs...)
}

func (m *Monitor) checkTournaments(ctx context.Context, r *Report) error {
	orphaned, err := m.store.ListOrphanedTournaments(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list orphaned tournaments: %w", err)
	}
	var errs []error
	for _, t := range orphaned {
		m.logger.Warn("tournament is running but has no active job", "tournament_id", t.ID)
		job, err := m.jobs.RequeueTournament(ctx, t.ID, m.config.RecoveryPriority)
		switch {
		case err == nil:
			r.TournamentsRequeued++
			m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("tournament_requeued"))
			m.logger.Info("created recovery job", "tournament_id", t.ID, "job_id", job.ID)
		case errors.Is(err, jobs.ErrTournamentRunning), errors.Is(err, jobs.ErrRetriesExhausted):
			// RequeueTournament has already failed the tournament.
			r.TournamentsFailed++
			m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("tournament_failed"))
		default:
			if ferr := m.jobs.FailTournament(ctx, t.ID); ferr != nil {
				errs = append(errs, fmt.Errorf("tournament %d: %w", t.ID, errors.Join(err, ferr)))
				continue
			}
			r.TournamentsFailed++
			m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("tournament_failed"))
			m.logger.Error("could not create recovery job, tournament failed", "tournament_id", t.ID, "error", err)
		}
	}
	return errors.Join(errs...)
}

func (m *Monitor) cleanup(ctx context.Context, r *Report) error {
	cutoff := m.jobs.Now().Add(-m.config.JobRetention)
	deleted, err := m.store.DeleteTerminalJobsBefore(ctx, nil, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old jobs: %w", err)
	}
	r.JobsDeleted = deleted
	if deleted > 0 {
		m.logger.Info("cleaned up old jobs", "count", deleted)
	}

	pruned, err := m.store.PruneCheckpoints(ctx, nil, m.config.CheckpointsToKeep)
	if err != nil {
		return fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	r.CheckpointsPruned = pruned
	return nil
}

// HealthStatus counts workers, jobs and tournaments. The system is degraded when
// no worker is healthy or any active worker has stopped heartbeating.
func (m *Monitor) HealthStatus(ctx context.Context) (HealthStatus, error) {
	now := m.jobs.Now()
	hs := HealthStatus{Timestamp: now, MonitoringActive: m.Running()}

	workers, err := m.store.ListWorkers(ctx, nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("failed to list workers: %w", err)
	}
	hs.Workers.Total = len(workers)
	for i := range workers {
		w := &workers[i]
		if w.Status != store.WorkerStatusActive {
			continue
		}
		hs.Workers.Active++
		if w.Healthy(now, m.config.WorkerTimeout) {
			hs.Workers.Healthy++
		}
	}
	hs.Workers.Unhealthy = hs.Workers.Active - hs.Workers.Healthy

	jobCounts, err := m.store.CountJobsByStatus(ctx)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("failed to count jobs: %w", err)
	}
	for _, n := range jobCounts {
		hs.Jobs.Total += n
	}
	hs.Jobs.Running = jobCounts[store.JobStatusRunning]
	hs.Jobs.Pending = jobCounts[store.JobStatusPending]
	hs.Jobs.Failed = jobCounts[store.JobStatusFailed]

	tCounts, err := m.store.CountTournamentsByStatus(ctx)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("failed to count tournaments: %w", err)
	}
	hs.Tournaments.Running = tCounts[store.TournamentStatusRunning]
	hs.Tournaments.Pending = tCounts[store.TournamentStatusPending]

	hs.SystemHealth = SystemHealthy
	if hs.Workers.Healthy == 0 || hs.Workers.Unhealthy > 0 {
		hs.SystemHealth = SystemDegraded
	}
	return hs, nil
}

// ForceWorkerCleanup marks a worker inactive and fails the job it was running.
// It reports false when no such worker exists.
func (m *Monitor) ForceWorkerCleanup(ctx context.Context, workerID string) (bool, error) {
	m.logger.Info("force cleaning up worker", "worker_id", workerID)
	_, err := m.jobs.ForceWorkerCleanup(ctx, workerID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.inst.MonitorRemediations.Add(ctx, 1, observability.Reason("worker_force_cleanup"))
	return true, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
