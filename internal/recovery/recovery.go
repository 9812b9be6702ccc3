// Package recovery reconciles workers, jobs and tournaments once at server startup.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gomokuplane/internal/jobs"
	"gomokuplane/internal/store"
)

// Config holds the recovery settings.
type Config struct {
	StaleThreshold   time.Duration // Heartbeat age after which an active worker is considered dead (default: 10m)
	RecoveryPriority int           // Priority of jobs created for interrupted tournaments (default: 1)
}

// Summary counts what RecoverOnStartup repaired.
type Summary struct {
	StaleWorkersCleaned      int
	StaleJobsRecovered       int
	TournamentsRequeued      int
	OrphanedJobsCleaned      int
	DataInconsistenciesFixed int
}

// Status is a snapshot of queue state for operators deciding whether to intervene.
type Status struct {
	Timestamp     time.Time
	Tournaments   map[store.TournamentStatus]int
	Jobs          map[store.JobStatus]int
	Workers       map[store.WorkerStatus]int
	Healthy       int
	Unhealthy     int
	Orphaned      int
	NeedsRecovery bool
}

// Recovery repairs state left behind by processes that died without cleaning up.
type Recovery struct {
	store  store.Store
	jobs   *jobs.Manager
	config Config
	logger *slog.Logger
}

// New creates a Recovery.
func New(s store.Store, jm *jobs.Manager, config Config, logger *slog.Logger) *Recovery {
	if config.StaleThreshold <= 0 {
		config.StaleThreshold = 10 * time.Minute
	}
	if config.RecoveryPriority <= 0 {
		config.RecoveryPriority = 1
	}
	return &Recovery{
		store:  s,
		jobs:   jm,
		config: config,
		logger: logger.With("component", "recovery"),
	}
}

// RecoverOnStartup runs every recovery step in order. A failing step is logged and
// the remaining steps still run, so the summary may be partial but is never an error.
func (r *Recovery) RecoverOnStartup(ctx context.Context) Summary {
	r.logger.Info("starting tournament recovery")
	var s Summary
	steps := []struct {
		name string
		dst  *int
		fn   func(context.Context) (int, error)
	}{
		{"stale_workers", &s.StaleWorkersCleaned, r.cleanupStaleWorkers},
		{"stale_jobs", &s.StaleJobsRecovered, r.recoverStaleJobs},
		{"orphaned_jobs", &s.OrphanedJobsCleaned, r.cleanupOrphanedJobs},
		{"interrupted_tournaments", &s.TournamentsRequeued, r.requeueInterrupted},
		{"inconsistencies", &s.DataInconsistenciesFixed, r.fixInconsistencies},
	}
	for _, st := range steps {
		n, err := r.run(ctx, st.name, st.fn)
		*st.dst = n
		if err != nil {
			r.logger.Error("recovery step failed", "step", st.name, "error", err)
		}
	}
	r.logger.Info("tournament recovery completed",
		"stale_workers_cleaned", s.StaleWorkersCleaned,
		"stale_jobs_recovered", s.StaleJobsRecovered,
		"tournaments_requeued", s.TournamentsRequeued,
		"orphaned_jobs_cleaned", s.OrphanedJobsCleaned,
		"data_inconsistencies_fixed", s.DataInconsistenciesFixed)
	return s
}

func (r *Recovery) run(ctx context.Context, name string, fn func(context.Context) (int, error)) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step %s panicked: %v", name, p)
		}
	}()
	return fn(ctx)
}

// cleanupStaleWorkers crashes active workers silent for longer than StaleThreshold.
// Their running jobs fail; the tournaments stay running so requeueInterrupted
// can retry them within the job's budget.
func (r *Recovery) cleanupStaleWorkers(ctx context.Context) (int, error) {
	active, err := r.store.ListWorkers(ctx, nil, store.WorkerStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list active workers: %w", err)
	}
	now := r.jobs.Now()
	var (
		count int
		errs  []error
	)
	for _, w := range active {
		if now.Sub(w.LastHeartbeat) < r.config.StaleThreshold {
			continue
		}
		r.logger.Warn("marking stale worker as crashed", "worker_id", w.ID, "last_heartbeat", w.LastHeartbeat)
		if _, err := r.jobs.MarkWorkerCrashed(ctx, w.ID, jobs.FailJobOnly); err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", w.ID, err))
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// recoverStaleJobs requeues running jobs whose worker is gone or unhealthy.
// It counts the jobs that went back to pending.
func (r *Recovery) recoverStaleJobs(ctx context.Context) (int, error) {
	running, err := r.store.ListJobs(ctx, nil, store.JobFilter{Statuses: []store.JobStatus{store.JobStatusRunning}})
	if err != nil {
		return 0, fmt.Errorf("failed to list running jobs: %w", err)
	}
	now := r.jobs.Now()
	timeout := r.jobs.Config().HeartbeatTimeout
	var (
		count int
		errs  []error
	)
	for _, job := range running {
		if job.WorkerID != nil {
			w, err := r.store.GetWorker(ctx, nil, *job.WorkerID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
				continue
			}
			if err == nil && w.Healthy(now, timeout) {
				continue
			}
		}
		r.logger.Warn("recovering stale job", "job_id", job.ID, "tournament_id", job.TournamentID)
		requeued, err := r.jobs.RecoverJob(ctx, job.ID, "Recovered from worker failure")
		if errors.Is(err, jobs.ErrJobNotRunning) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
			continue
		}
		if requeued {
			count++
		}
	}
	return count, errors.Join(errs...)
}

func (r *Recovery) cleanupOrphanedJobs(ctx context.Context) (int, error) {
	n, err := r.store.DeleteOrphanedJobs(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned jobs: %w", err)
	}
	if n > 0 {
		r.logger.Info("cleaned up orphaned jobs", "count", n)
	}
	return int(n), nil
}

// requeueInterrupted gives every running tournament without an active job a new
// job at recovery priority. Tournaments that cannot be admitted are failed.
func (r *Recovery) requeueInterrupted(ctx context.Context) (int, error) {
	orphaned, err := r.store.ListOrphanedTournaments(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list interrupted tournaments: %w", err)
	}
	var (
		count int
		errs  []error
	)
	for _, t := range orphaned {
		if t.CompletedAt != nil {
			// finished but never marked; fixInconsistencies completes it
			continue
		}
		r.logger.Warn("re-queuing interrupted tournament", "tournament_id", t.ID)
		job, err := r.jobs.RequeueTournament(ctx, t.ID, r.config.RecoveryPriority)
		switch {
		case err == nil:
			count++
			r.logger.Info("created recovery job", "tournament_id", t.ID, "job_id", job.ID)
		case errors.Is(err, jobs.ErrTournamentRunning), errors.Is(err, jobs.ErrRetriesExhausted):
		default:
			if ferr := r.jobs.FailTournament(ctx, t.ID); ferr != nil {
				errs = append(errs, fmt.Errorf("tournament %d: %w", t.ID, errors.Join(err, ferr)))
				continue
			}
			r.logger.Error("failed to create recovery job, tournament failed", "tournament_id", t.ID, "error", err)
		}
	}
	return count, errors.Join(errs...)
}

// fixInconsistencies completes running tournaments that already carry a completion
// time and backfills the completion time of completed ones.
func (r *Recovery) fixInconsistencies(ctx context.Context) (int, error) {
	list, err := r.store.ListTournaments(ctx, nil, store.TournamentFilter{
		Statuses: []store.TournamentStatus{store.TournamentStatusRunning, store.TournamentStatusCompleted},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments: %w", err)
	}
	now := r.jobs.Now()
	var (
		count int
		errs  []error
	)
	for i := range list {
		t := &list[i]
		switch {
		case t.Status == store.TournamentStatusRunning && t.CompletedAt != nil:
			r.logger.Warn("fixing tournament status inconsistency", "tournament_id", t.ID)
			t.Status = store.TournamentStatusCompleted
		case t.Status == store.TournamentStatusCompleted && t.CompletedAt == nil:
			r.logger.Warn("adding missing completion timestamp", "tournament_id", t.ID)
			t.CompletedAt = &now
		default:
			continue
		}
		if err := r.store.UpdateTournament(ctx, nil, t); err != nil {
			errs = append(errs, fmt.Errorf("tournament %d: %w", t.ID, err))
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// Status counts tournaments, jobs and workers by status. NeedsRecovery is set when a
// running tournament has no active job or an active worker stopped heartbeating.
func (r *Recovery) Status(ctx context.Context) (Status, error) {
	now := r.jobs.Now()
	st := Status{Timestamp: now, Workers: make(map[store.WorkerStatus]int)}

	var err error
	if st.Tournaments, err = r.store.CountTournamentsByStatus(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to count tournaments: %w", err)
	}
	if st.Jobs, err = r.store.CountJobsByStatus(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to count jobs: %w", err)
	}

	workers, err := r.store.ListWorkers(ctx, nil)
	if err != nil {
		return Status{}, fmt.Errorf("failed to list workers: %w", err)
	}
	timeout := r.jobs.Config().HeartbeatTimeout
	for i := range workers {
		w := &workers[i]
		st.Workers[w.Status]++
		if w.Status != store.WorkerStatusActive {
			continue
		}
		if w.Healthy(now, timeout) {
			st.Healthy++
		} else {
			st.Unhealthy++
		}
	}

	orphaned, err := r.store.ListOrphanedTournaments(ctx, nil)
	if err != nil {
		return Status{}, fmt.Errorf("failed to list orphaned tournaments: %w", err)
	}
	st.Orphaned = len(orphaned)
	st.NeedsRecovery = st.Orphaned > 0 || st.Unhealthy > 0
	return st, nil
}

// ForceCleanupTournament cancels a tournament and its active jobs. It reports false
// when the tournament does not exist. A tournament that already finished is left as is.
func (r *Recovery) ForceCleanupTournament(ctx context.Context, tournamentID int64) (bool, error) {
	r.logger.Info("force cleaning up tournament", "tournament_id", tournamentID)
	_, err := r.jobs.CancelTournament(ctx, tournamentID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to clean up tournament %d: %w", tournamentID, err)
	}
	return true, nil
}
