package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gomokuplane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// jobQueueLockKey is the advisory lock that serializes admission and assignment.
const jobQueueLockKey int64 = 0x676f6d6f6b75

const jobColumns = `id, tournament_id, status, worker_id, priority, retry_count, max_retries,
	timeout_seconds, error_message, created_at, started_at, completed_at, last_heartbeat`

func scanJob(row rowScanner) (*store.Job, error) {
	var job store.Job
	err := row.Scan(
		&job.ID, &job.TournamentID, &job.Status, &job.WorkerID,
		&job.Priority, &job.RetryCount, &job.MaxRetries, &job.TimeoutSeconds,
		&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		&job.LastHeartbeat,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// LockJobQueue takes a transaction-scoped advisory lock. It is released on commit or rollback.
func (s *Store) LockJobQueue(ctx context.Context, tx store.DBTransaction) error {
	if tx == nil {
		return fmt.Errorf("job queue lock requires a transaction")
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, jobQueueLockKey); err != nil {
		return fmt.Errorf("failed to lock job queue: %w", err)
	}
	return nil
}

// CreateJob inserts a new job row.
func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO tournament_jobs (id, tournament_id, status, worker_id, priority, retry_count,
			max_retries, timeout_seconds, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := executor.ExecContext(ctx, query,
		job.ID, job.TournamentID, job.Status, job.WorkerID, job.Priority, job.RetryCount,
		job.MaxRetries, job.TimeoutSeconds, job.ErrorMessage, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job for tournament %d: %w", job.TournamentID, err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM tournament_jobs WHERE id = $1`

	job, err := scanJob(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

func (s *Store) GetLatestJobForTournament(ctx context.Context, tx store.DBTransaction, tournamentID int64) (*store.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM tournament_jobs
		WHERE tournament_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	job, err := scanJob(s.getExecutor(tx).QueryRowContext(ctx, query, tournamentID))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

func (s *Store) GetRunningJob(ctx context.Context, tx store.DBTransaction) (*store.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM tournament_jobs WHERE status = $1 LIMIT 1`

	job, err := scanJob(s.getExecutor(tx).QueryRowContext(ctx, query, store.JobStatusRunning))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// ClaimNextJob claims in a single statement. The NOT EXISTS guard and the partial
// unique index on running jobs keep a second running row out even without the
// advisory lock.
func (s *Store) ClaimNextJob(ctx context.Context, tx store.DBTransaction, workerID string, now time.Time) (*store.Job, error) {
	query := `
		UPDATE tournament_jobs
		SET status = $1, worker_id = $2, started_at = $3, last_heartbeat = $3,
			completed_at = NULL, error_message = NULL
		WHERE id = (
			SELECT id FROM tournament_jobs
			WHERE status = $4
			  AND NOT EXISTS (SELECT 1 FROM tournament_jobs WHERE status = $1)
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.getExecutor(tx).QueryRowContext(ctx, query,
		store.JobStatusRunning, workerID, now, store.JobStatusPending,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim query failed: %w", err)
	}
	return job, nil
}

// UpdateJob writes all mutable fields of the job.
func (s *Store) UpdateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	query := `
		UPDATE tournament_jobs
		SET status = $1, worker_id = $2, priority = $3, retry_count = $4, error_message = $5,
			started_at = $6, completed_at = $7, last_heartbeat = $8
		WHERE id = $9
	`
	res, err := s.getExecutor(tx).ExecContext(ctx, query,
		job.Status, job.WorkerID, job.Priority, job.RetryCount, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.LastHeartbeat, job.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("job %s: %w", job.ID, store.ErrConflict)
		}
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchJobHeartbeat(ctx context.Context, tx store.DBTransaction, id uuid.UUID, now time.Time) (bool, error) {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		UPDATE tournament_jobs
		SET last_heartbeat = $1
		WHERE id = $2 AND status = $3
	`, now, id, store.JobStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to update job heartbeat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListJobs(ctx context.Context, tx store.DBTransaction, filter store.JobFilter) ([]store.Job, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.TournamentID != 0 {
		args = append(args, filter.TournamentID)
		where = append(where, fmt.Sprintf("tournament_id = $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM tournament_jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.getExecutor(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs query failed: %w", err)
	}
	defer rows.Close()

	var jobs []store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs scan failed: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *Store) DeleteTerminalJobsBefore(ctx context.Context, tx store.DBTransaction, cutoff time.Time) (int64, error) {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		DELETE FROM tournament_jobs
		WHERE status = ANY($1) AND created_at < $2
	`, pq.Array([]string{
		string(store.JobStatusCompleted), string(store.JobStatusFailed), string(store.JobStatusCancelled),
	}), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteOrphanedJobs normally finds nothing here: tournament_jobs.tournament_id cascades on delete.
func (s *Store) DeleteOrphanedJobs(ctx context.Context, tx store.DBTransaction) (int64, error) {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		DELETE FROM tournament_jobs j
		WHERE NOT EXISTS (SELECT 1 FROM tournaments t WHERE t.id = j.tournament_id)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) CountJobsByStatus(ctx context.Context) (map[store.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tournament_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[store.JobStatus]int)
	for rows.Next() {
		var (
			status store.JobStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
