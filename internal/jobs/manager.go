// Package jobs owns the tournament job state machine.
//
// Every state-changing operation runs in one transaction that first takes the
// job-queue lock, so admission, claim and terminal transitions are serialized
// across processes and at most one job is ever running.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gomokuplane/internal/observability"
	"gomokuplane/internal/store"

	"github.com/google/uuid"
)

var (
	// ErrTournamentRunning is returned when admission is refused because a job is running.
	ErrTournamentRunning = errors.New("another tournament is already running")

	// ErrJobNotRunning is returned by transitions that require a running job.
	ErrJobNotRunning = errors.New("job is not running")

	// ErrRetriesExhausted is returned when a failed job has no retry budget left.
	ErrRetriesExhausted = errors.New("job retry budget exhausted")
)

const (
	DefaultHeartbeatTimeout = 5 * time.Minute
	DefaultJobTimeout       = time.Hour
	DefaultMaxRetries       = 3
)

// Config holds the job manager settings.
type Config struct {
	// HeartbeatTimeout is how long a running job may go without a heartbeat.
	HeartbeatTimeout time.Duration
	// JobTimeout is stored on every new job and bounds its wall-clock runtime.
	JobTimeout time.Duration
	// MaxRetries is the retry budget of new jobs.
	MaxRetries int
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// QueueStatus counts jobs by status.
type QueueStatus struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
	Total     int
}

// Disposition selects what happens to a running job whose worker is gone.
type Disposition int

const (
	// Requeue returns the job to pending while its retry budget allows, otherwise fails it.
	Requeue Disposition = iota
	// FailJobOnly fails the job and leaves the tournament to orphan repair.
	FailJobOnly
)

// Manager is the only writer of job status.
type Manager struct {
	store  store.Store
	config Config
	logger *slog.Logger
	inst   *observability.Instruments
}

// NewManager creates a Manager. A nil inst records no metrics.
func NewManager(s store.Store, config Config, logger *slog.Logger, inst *observability.Instruments) *Manager {
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultJobTimeout
	}
	// zero is a valid budget: no retries
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if inst == nil {
		inst = observability.NoopInstruments()
	}
	return &Manager{
		store:  s,
		config: config,
		logger: logger.With("component", "job_manager"),
		inst:   inst,
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.config.Now().UTC()
}

// inQueueTx runs fn in a transaction holding the job-queue lock.
func (m *Manager) inQueueTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.store.LockJobQueue(ctx, tx); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateTournamentJob admits a tournament into the queue.
//
// A pending or running job of the same tournament is returned as is, and a failed
// job with retry budget left is reset to pending. While a job of another
// tournament is running, admission is refused with ErrTournamentRunning.
func (m *Manager) CreateTournamentJob(ctx context.Context, tournamentID int64, priority int) (*store.Job, error) {
	var job *store.Job
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		var err error
		job, err = m.admit(ctx, tx, tournamentID, priority, false)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTournamentRunning) {
			m.logger.Warn("tournament job refused", "tournament_id", tournamentID, "error", err)
		}
		return nil, err
	}
	return job, nil
}

func (m *Manager) admit(ctx context.Context, tx store.DBTransaction, tournamentID int64, priority int, requeue bool) (*store.Job, error) {
	running, err := m.store.GetRunningJob(ctx, tx)
	switch {
	case err == nil:
		if running.TournamentID == tournamentID {
			return running, nil
		}
		return nil, fmt.Errorf("tournament %d: %w", running.TournamentID, ErrTournamentRunning)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check running job: %w", err)
	}

	if _, err := m.store.GetTournament(ctx, tx, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	latest, err := m.store.GetLatestJobForTournament(ctx, tx, tournamentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	case latest.Status.Active():
		m.logger.Info("tournament already has an active job", "tournament_id", tournamentID, "job_id", latest.ID)
		return latest, nil
	case latest.Status == store.JobStatusFailed && latest.CanRetry():
		resetForRetry(latest)
		if priority > latest.Priority {
			latest.Priority = priority
		}
		if err := m.store.UpdateJob(ctx, tx, latest); err != nil {
			return nil, fmt.Errorf("failed to reset job %s: %w", latest.ID, err)
		}
		m.inst.JobsRequeued.Add(ctx, 1)
		m.logger.Info("reset failed job for retry", "job_id", latest.ID, "attempt", latest.RetryCount)
		return latest, nil
	case latest.Status == store.JobStatusFailed && requeue:
		return nil, fmt.Errorf("job %s: %w", latest.ID, ErrRetriesExhausted)
	}

	job := &store.Job{
		ID:             uuid.New(),
		TournamentID:   tournamentID,
		Status:         store.JobStatusPending,
		Priority:       priority,
		MaxRetries:     m.config.MaxRetries,
		TimeoutSeconds: int(m.config.JobTimeout / time.Second),
		CreatedAt:      m.Now(),
	}
	if err := m.store.CreateJob(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	m.logger.Info("created tournament job", "job_id", job.ID, "tournament_id", tournamentID, "priority", priority)
	return job, nil
}

func resetForRetry(job *store.Job) {
	job.Status = store.JobStatusPending
	job.RetryCount++
	job.WorkerID = nil
	job.ErrorMessage = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.LastHeartbeat = nil
}

// GetNextJob claims the next pending job for workerID.
// It returns nil when a healthy job is running or nothing is pending.
// A running job whose heartbeat expired is failed first.
func (m *Manager) GetNextJob(ctx context.Context, workerID string) (*store.Job, error) {
	var claimed *store.Job
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		now := m.Now()

		running, err := m.store.GetRunningJob(ctx, tx)
		switch {
		case err == nil:
			if !running.HeartbeatExpired(now, m.config.HeartbeatTimeout) {
				return nil
			}
			m.logger.Warn("running job is unhealthy, marking failed", "job_id", running.ID, "worker_id", deref(running.WorkerID))
			if err := m.failJob(ctx, tx, running, "Worker heartbeat timeout", now); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to check running job: %w", err)
		}

		job, err := m.store.ClaimNextJob(ctx, tx, workerID, now)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}

		w, err := m.store.GetWorker(ctx, tx, workerID)
		switch {
		case err == nil:
			w.CurrentJobID = &job.ID
			w.LastHeartbeat = now
			if err := m.store.UpdateWorker(ctx, tx, w); err != nil {
				return fmt.Errorf("failed to assign job to worker: %w", err)
			}
		case errors.Is(err, store.ErrNotFound):
			m.logger.Warn("claiming worker is not registered", "worker_id", workerID)
		default:
			return fmt.Errorf("failed to get worker %s: %w", workerID, err)
		}

		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed != nil {
		m.inst.JobsClaimed.Add(ctx, 1)
		m.logger.Info("assigned job", "job_id", claimed.ID, "tournament_id", claimed.TournamentID, "worker_id", workerID)
	}
	return claimed, nil
}

// UpdateJobHeartbeat refreshes a running job's heartbeat. It reports false when the job is not running.
func (m *Manager) UpdateJobHeartbeat(ctx context.Context, jobID uuid.UUID) (bool, error) {
	ok, err := m.store.TouchJobHeartbeat(ctx, nil, jobID, m.Now())
	if err != nil {
		return false, fmt.Errorf("failed to update job heartbeat: %w", err)
	}
	return ok, nil
}

// OwnsJob reports whether jobID is running on workerID.
func (m *Manager) OwnsJob(ctx context.Context, jobID uuid.UUID, workerID string) (bool, error) {
	job, err := m.store.GetJob(ctx, nil, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == store.JobStatusRunning && job.WorkerID != nil && *job.WorkerID == workerID, nil
}

// CompleteJob moves a running job to completed or failed and settles its worker.
func (m *Manager) CompleteJob(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		job, err := m.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		now := m.Now()
		if !success {
			return m.failJob(ctx, tx, job, errMsg, now)
		}

		job.Status = store.JobStatusCompleted
		job.ErrorMessage = nil
		job.CompletedAt = &now
		if err := m.store.UpdateJob(ctx, tx, job); err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		return m.settleWorker(ctx, tx, job, outcomeCompleted)
	})
	if err != nil {
		return err
	}
	if success {
		m.inst.JobsCompleted.Add(ctx, 1)
		m.logger.Info("job completed", "job_id", jobID)
	} else {
		m.logger.Error("job failed", "job_id", jobID, "error", errMsg)
	}
	return nil
}

// AbortJob fails a running job together with its tournament.
func (m *Manager) AbortJob(ctx context.Context, jobID uuid.UUID, reason string) error {
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		job, err := m.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		now := m.Now()
		if err := m.failJob(ctx, tx, job, reason, now); err != nil {
			return err
		}
		return m.failTournament(ctx, tx, job.TournamentID, now)
	})
	if err != nil {
		return err
	}
	m.logger.Error("job aborted", "job_id", jobID, "error", reason)
	return nil
}

// CancelJob cancels a pending or running job. It reports false for any other status.
func (m *Manager) CancelJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var cancelled bool
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		job, err := m.store.GetJob(ctx, tx, jobID)
		if err != nil {
			return fmt.Errorf("failed to get job %s: %w", jobID, err)
		}
		if !job.Status.Active() {
			return nil
		}
		cancelled = true
		return m.cancelJob(ctx, tx, job, m.Now())
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		m.logger.Info("cancelled job", "job_id", jobID)
	}
	return cancelled, nil
}

func (m *Manager) cancelJob(ctx context.Context, tx store.DBTransaction, job *store.Job, now time.Time) error {
	if err := m.settleWorker(ctx, tx, job, outcomeNone); err != nil {
		return err
	}
	msg := "Cancelled by user"
	job.Status = store.JobStatusCancelled
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	job.WorkerID = nil
	if err := m.store.UpdateJob(ctx, tx, job); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", job.ID, err)
	}
	return nil
}

// ReleaseJob hands a running job back to the queue, as a draining worker does on shutdown.
// The release consumes one retry; without budget the job and its tournament fail.
func (m *Manager) ReleaseJob(ctx context.Context, jobID uuid.UUID, reason string) error {
	return m.inQueueTx(ctx, func(tx store.Tx) error {
		job, err := m.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		_, err = m.recoverJob(ctx, tx, job, reason, outcomeNone, m.Now())
		return err
	})
}

// RecoverJob requeues a running job whose worker is gone, or fails it with its
// tournament when the retry budget is spent. It reports whether the job was requeued.
func (m *Manager) RecoverJob(ctx context.Context, jobID uuid.UUID, reason string) (bool, error) {
	var requeued bool
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		job, err := m.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		requeued, err = m.recoverJob(ctx, tx, job, reason, outcomeFailed, m.Now())
		return err
	})
	return requeued, err
}

func (m *Manager) recoverJob(ctx context.Context, tx store.DBTransaction, job *store.Job, reason string, outcome workerOutcome, now time.Time) (bool, error) {
	if !job.CanRetry() {
		msg := fmt.Sprintf("%s (retries exhausted)", reason)
		if err := m.settleWorker(ctx, tx, job, outcomeFailed); err != nil {
			return false, err
		}
		job.Status = store.JobStatusFailed
		job.ErrorMessage = &msg
		job.CompletedAt = &now
		if err := m.store.UpdateJob(ctx, tx, job); err != nil {
			return false, fmt.Errorf("failed to fail job %s: %w", job.ID, err)
		}
		m.inst.JobsFailed.Add(ctx, 1)
		m.logger.Warn("job retries exhausted", "job_id", job.ID, "tournament_id", job.TournamentID, "reason", reason)
		return false, m.failTournament(ctx, tx, job.TournamentID, now)
	}

	if err := m.settleWorker(ctx, tx, job, outcome); err != nil {
		return false, err
	}
	resetForRetry(job)
	job.ErrorMessage = &reason
	if err := m.store.UpdateJob(ctx, tx, job); err != nil {
		return false, fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
	}
	m.inst.JobsRequeued.Add(ctx, 1)
	m.logger.Info("job requeued", "job_id", job.ID, "attempt", job.RetryCount, "reason", reason)
	return true, nil
}

// MarkWorkerCrashed marks a worker crashed and disposes of the running job it held.
// It returns that job, or nil when the worker held none.
func (m *Manager) MarkWorkerCrashed(ctx context.Context, workerID string, d Disposition) (*store.Job, error) {
	return m.retireWorker(ctx, workerID, store.WorkerStatusCrashed, d, fmt.Sprintf("Worker %s crashed", workerID))
}

// ForceWorkerCleanup marks a worker inactive on an administrator's request and fails
// the job it was running. The tournament is left for orphan repair.
func (m *Manager) ForceWorkerCleanup(ctx context.Context, workerID string) (*store.Job, error) {
	return m.retireWorker(ctx, workerID, store.WorkerStatusInactive, FailJobOnly, "Worker force cleaned by administrator")
}

func (m *Manager) retireWorker(ctx context.Context, workerID string, status store.WorkerStatus, d Disposition, reason string) (*store.Job, error) {
	var affected *store.Job
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		now := m.Now()
		w, err := m.store.GetWorker(ctx, tx, workerID)
		if err != nil {
			return fmt.Errorf("failed to get worker %s: %w", workerID, err)
		}
		w.Status = status
		w.CurrentJobID = nil
		if err := m.store.UpdateWorker(ctx, tx, w); err != nil {
			return fmt.Errorf("failed to mark worker %s: %w", status, err)
		}

		job, err := m.store.GetRunningJob(ctx, tx)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check running job: %w", err)
		}
		if job.WorkerID == nil || *job.WorkerID != workerID {
			return nil
		}

		switch d {
		case FailJobOnly:
			if err := m.failJob(ctx, tx, job, reason, now); err != nil {
				return err
			}
		default:
			if _, err := m.recoverJob(ctx, tx, job, reason, outcomeFailed, now); err != nil {
				return err
			}
		}
		affected = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Warn("worker retired", "worker_id", workerID, "status", status, "had_job", affected != nil)
	return affected, nil
}

// FailTournament marks a pending or running tournament failed.
func (m *Manager) FailTournament(ctx context.Context, tournamentID int64) error {
	return m.inQueueTx(ctx, func(tx store.Tx) error {
		return m.failTournament(ctx, tx, tournamentID, m.Now())
	})
}

// CancelTournament cancels a tournament and its active job together.
// It reports false when the tournament has already finished.
func (m *Manager) CancelTournament(ctx context.Context, tournamentID int64) (bool, error) {
	var cancelled bool
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		t, err := m.store.GetTournament(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
		}
		if t.Status != store.TournamentStatusPending && t.Status != store.TournamentStatusRunning {
			return nil
		}
		now := m.Now()
		t.Status = store.TournamentStatusCancelled
		t.CompletedAt = &now
		if err := m.store.UpdateTournament(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to cancel tournament: %w", err)
		}

		active, err := m.store.ListJobs(ctx, tx, store.JobFilter{
			TournamentID: tournamentID,
			Statuses:     []store.JobStatus{store.JobStatusPending, store.JobStatusRunning},
		})
		if err != nil {
			return fmt.Errorf("failed to list tournament jobs: %w", err)
		}
		for i := range active {
			if err := m.cancelJob(ctx, tx, &active[i], now); err != nil {
				return err
			}
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		m.logger.Info("cancelled tournament", "tournament_id", tournamentID)
	}
	return cancelled, nil
}

// RequeueTournament re-admits an orphaned running tournament.
// When admission is refused or the retry budget is spent, the tournament is
// marked failed and the refusal is returned.
func (m *Manager) RequeueTournament(ctx context.Context, tournamentID int64, priority int) (*store.Job, error) {
	var (
		job      *store.Job
		admitErr error
	)
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		var err error
		job, err = m.admit(ctx, tx, tournamentID, priority, true)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTournamentRunning) && !errors.Is(err, ErrRetriesExhausted) {
			return err
		}
		admitErr = err
		return m.failTournament(ctx, tx, tournamentID, m.Now())
	})
	if err != nil {
		return nil, err
	}
	if admitErr != nil {
		m.logger.Warn("could not requeue tournament, marked failed", "tournament_id", tournamentID, "error", admitErr)
		return nil, admitErr
	}
	m.logger.Info("requeued tournament", "tournament_id", tournamentID, "job_id", job.ID)
	return job, nil
}

// CleanupStaleJobs fails every running job whose heartbeat is older than the heartbeat timeout.
func (m *Manager) CleanupStaleJobs(ctx context.Context) (int, error) {
	var count int
	err := m.inQueueTx(ctx, func(tx store.Tx) error {
		now := m.Now()
		running, err := m.store.ListJobs(ctx, tx, store.JobFilter{Statuses: []store.JobStatus{store.JobStatusRunning}})
		if err != nil {
			return fmt.Errorf("failed to list running jobs: %w", err)
		}
		for i := range running {
			job := &running[i]
			if !job.HeartbeatExpired(now, m.config.HeartbeatTimeout) {
				continue
			}
			if err := m.failJob(ctx, tx, job, "Worker heartbeat timeout - job cleanup", now); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		m.logger.Warn("cleaned up stale jobs", "count", count)
	}
	return count, nil
}

// GetQueueStatus counts jobs by status.
func (m *Manager) GetQueueStatus(ctx context.Context) (QueueStatus, error) {
	counts, err := m.store.CountJobsByStatus(ctx)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("failed to count jobs: %w", err)
	}
	qs := QueueStatus{
		Pending:   counts[store.JobStatusPending],
		Running:   counts[store.JobStatusRunning],
		Completed: counts[store.JobStatusCompleted],
		Failed:    counts[store.JobStatusFailed],
		Cancelled: counts[store.JobStatusCancelled],
	}
	qs.Total = qs.Pending + qs.Running + qs.Completed + qs.Failed + qs.Cancelled
	return qs, nil
}

// GetActiveJob returns the running job, or nil when none is running.
func (m *Manager) GetActiveJob(ctx context.Context) (*store.Job, error) {
	job, err := m.store.GetRunningJob(ctx, nil)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running job: %w", err)
	}
	return job, nil
}

func (m *Manager) runningJob(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (*store.Job, error) {
	job, err := m.store.GetJob(ctx, tx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	if job.Status != store.JobStatusRunning {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, ErrJobNotRunning)
	}
	return job, nil
}

// failJob marks a job failed and settles its worker. The tournament is left alone.
func (m *Manager) failJob(ctx context.Context, tx store.DBTransaction, job *store.Job, msg string, now time.Time) error {
	if err := m.settleWorker(ctx, tx, job, outcomeFailed); err != nil {
		return err
	}
	job.Status = store.JobStatusFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	if err := m.store.UpdateJob(ctx, tx, job); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	m.inst.JobsFailed.Add(ctx, 1)
	return nil
}

func (m *Manager) failTournament(ctx context.Context, tx store.DBTransaction, tournamentID int64, now time.Time) error {
	t, err := m.store.GetTournament(ctx, tx, tournamentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	if t.Status == store.TournamentStatusCompleted || t.Status == store.TournamentStatusCancelled || t.Status == store.TournamentStatusFailed {
		return nil
	}
	t.Status = store.TournamentStatusFailed
	t.CompletedAt = &now
	if err := m.store.UpdateTournament(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to mark tournament %d failed: %w", tournamentID, err)
	}
	return nil
}

type workerOutcome int

const (
	outcomeNone workerOutcome = iota
	outcomeCompleted
	outcomeFailed
)

// settleWorker bumps the assigned worker's counter and clears its pointer to job.
func (m *Manager) settleWorker(ctx context.Context, tx store.DBTransaction, job *store.Job, outcome workerOutcome) error {
	if job.WorkerID == nil {
		return nil
	}
	w, err := m.store.GetWorker(ctx, tx, *job.WorkerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get worker %s: %w", *job.WorkerID, err)
	}
	switch outcome {
	case outcomeCompleted:
		w.JobsCompleted++
	case outcomeFailed:
		w.JobsFailed++
	}
	if w.CurrentJobID != nil && *w.CurrentJobID == job.ID {
		w.CurrentJobID = nil
	}
	if err := m.store.UpdateWorker(ctx, tx, w); err != nil {
		return fmt.Errorf("failed to update worker %s: %w", w.ID, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
