package postgres

import (
	"context"
	"fmt"
	"time"

	"gomokuplane/internal/store"

	"github.com/lib/pq"
)

const workerColumns = `id, hostname, pid, status, current_job_id, jobs_completed, jobs_failed,
	max_concurrent_jobs, started_at, last_heartbeat`

func scanWorker(row rowScanner) (*store.WorkerProcess, error) {
	var w store.WorkerProcess
	err := row.Scan(
		&w.ID, &w.Hostname, &w.PID, &w.Status, &w.CurrentJobID, &w.JobsCompleted,
		&w.JobsFailed, &w.MaxConcurrentJobs, &w.StartedAt, &w.LastHeartbeat,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpsertWorker replaces the registration so a reused PID never inherits stale counters.
func (s *Store) UpsertWorker(ctx context.Context, tx store.DBTransaction, w *store.WorkerProcess) error {
	query := `
		INSERT INTO worker_processes (id, hostname, pid, status, current_job_id, jobs_completed,
			jobs_failed, max_concurrent_jobs, started_at, last_heartbeat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			hostname = EXCLUDED.hostname,
			pid = EXCLUDED.pid,
			status = EXCLUDED.status,
			current_job_id = EXCLUDED.current_job_id,
			jobs_completed = EXCLUDED.jobs_completed,
			jobs_failed = EXCLUDED.jobs_failed,
			max_concurrent_jobs = EXCLUDED.max_concurrent_jobs,
			started_at = EXCLUDED.started_at,
			last_heartbeat = EXCLUDED.last_heartbeat
	`
	_, err := s.getExecutor(tx).ExecContext(ctx, query,
		w.ID, w.Hostname, w.PID, w.Status, w.CurrentJobID, w.JobsCompleted,
		w.JobsFailed, w.MaxConcurrentJobs, w.StartedAt, w.LastHeartbeat,
	)
	if err != nil {
		return fmt.Errorf("failed to register worker %s: %w", w.ID, err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, tx store.DBTransaction, id string) (*store.WorkerProcess, error) {
	query := `SELECT ` + workerColumns + ` FROM worker_processes WHERE id = $1`

	w, err := scanWorker(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (s *Store) UpdateWorker(ctx context.Context, tx store.DBTransaction, w *store.WorkerProcess) error {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		UPDATE worker_processes
		SET status = $1, current_job_id = $2, jobs_completed = $3, jobs_failed = $4, last_heartbeat = $5
		WHERE id = $6
	`, w.Status, w.CurrentJobID, w.JobsCompleted, w.JobsFailed, w.LastHeartbeat, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update worker %s: %w", w.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchWorkerHeartbeat(ctx context.Context, tx store.DBTransaction, id string, now time.Time) error {
	res, err := s.getExecutor(tx).ExecContext(ctx,
		`UPDATE worker_processes SET last_heartbeat = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("failed to update worker heartbeat: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListWorkers(ctx context.Context, tx store.DBTransaction, statuses ...store.WorkerStatus) ([]store.WorkerProcess, error) {
	query := `SELECT ` + workerColumns + ` FROM worker_processes`
	var args []interface{}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(values))
	}
	query += ` ORDER BY started_at`

	rows, err := s.getExecutor(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workers query failed: %w", err)
	}
	defer rows.Close()

	var workers []store.WorkerProcess
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("list workers scan failed: %w", err)
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}
