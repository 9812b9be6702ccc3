package memory

import (
	"context"
	"time"

	"gomokuplane/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateJob(ctx context.Context, dbtx store.DBTransaction, job *store.Job) error {
	return s.with(dbtx, func(d *dataset) error {
		d.nextJobSeq++
		d.jobs[job.ID] = *job
		d.jobSeq[job.ID] = d.nextJobSeq
		return nil
	})
}

func (s *Store) GetJob(ctx context.Context, dbtx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	var out *store.Job
	err := s.with(dbtx, func(d *dataset) error {
		j, ok := d.jobs[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &j
		return nil
	})
	return out, err
}

func (s *Store) GetLatestJobForTournament(ctx context.Context, dbtx store.DBTransaction, tournamentID int64) (*store.Job, error) {
	var out *store.Job
	err := s.with(dbtx, func(d *dataset) error {
		for _, j := range d.sortedJobs() {
			if j.TournamentID == tournamentID {
				out = &j
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) GetRunningJob(ctx context.Context, dbtx store.DBTransaction) (*store.Job, error) {
	var out *store.Job
	err := s.with(dbtx, func(d *dataset) error {
		for _, j := range d.jobs {
			if j.Status == store.JobStatusRunning {
				out = &j
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) ClaimNextJob(ctx context.Context, dbtx store.DBTransaction, workerID string, now time.Time) (*store.Job, error) {
	var out *store.Job
	err := s.with(dbtx, func(d *dataset) error {
		var best *store.Job
		for _, j := range d.jobs {
			if j.Status == store.JobStatusRunning {
				return nil
			}
			if j.Status != store.JobStatusPending {
				continue
			}
			if best == nil || claimsBefore(d, j, *best) {
				candidate := j
				best = &candidate
			}
		}
		if best == nil {
			return nil
		}
		w := workerID
		started := now
		best.Status = store.JobStatusRunning
		best.WorkerID = &w
		best.StartedAt = &started
		best.LastHeartbeat = &started
		best.CompletedAt = nil
		best.ErrorMessage = nil
		d.jobs[best.ID] = *best
		out = best
		return nil
	})
	return out, err
}

// claimsBefore orders by priority desc, created_at asc, insertion order.
func claimsBefore(d *dataset, a, b store.Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return d.jobSeq[a.ID] < d.jobSeq[b.ID]
}

func (s *Store) UpdateJob(ctx context.Context, dbtx store.DBTransaction, job *store.Job) error {
	return s.with(dbtx, func(d *dataset) error {
		existing, ok := d.jobs[job.ID]
		if !ok {
			return store.ErrNotFound
		}
		if job.Status == store.JobStatusRunning && existing.Status != store.JobStatusRunning {
			for id, other := range d.jobs {
				if id != job.ID && other.Status == store.JobStatusRunning {
					return store.ErrConflict
				}
			}
		}
		existing.Status = job.Status
		existing.WorkerID = job.WorkerID
		existing.Priority = job.Priority
		existing.RetryCount = job.RetryCount
		existing.ErrorMessage = job.ErrorMessage
		existing.StartedAt = job.StartedAt
		existing.CompletedAt = job.CompletedAt
		existing.LastHeartbeat = job.LastHeartbeat
		d.jobs[job.ID] = existing
		return nil
	})
}

func (s *Store) TouchJobHeartbeat(ctx context.Context, dbtx store.DBTransaction, id uuid.UUID, now time.Time) (bool, error) {
	touched := false
	err := s.with(dbtx, func(d *dataset) error {
		j, ok := d.jobs[id]
		if !ok || j.Status != store.JobStatusRunning {
			return nil
		}
		hb := now
		j.LastHeartbeat = &hb
		d.jobs[id] = j
		touched = true
		return nil
	})
	return touched, err
}

func (s *Store) ListJobs(ctx context.Context, dbtx store.DBTransaction, filter store.JobFilter) ([]store.Job, error) {
	var out []store.Job
	err := s.with(dbtx, func(d *dataset) error {
		for _, j := range d.sortedJobs() {
			if len(filter.Statuses) > 0 && !containsJobStatus(filter.Statuses, j.Status) {
				continue
			}
			if filter.TournamentID != 0 && j.TournamentID != filter.TournamentID {
				continue
			}
			out = append(out, j)
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func containsJobStatus(statuses []store.JobStatus, st store.JobStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Store) DeleteTerminalJobsBefore(ctx context.Context, dbtx store.DBTransaction, cutoff time.Time) (int64, error) {
	var n int64
	err := s.with(dbtx, func(d *dataset) error {
		for id, j := range d.jobs {
			if j.Status.Terminal() && j.CreatedAt.Before(cutoff) {
				delete(d.jobs, id)
				delete(d.jobSeq, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) DeleteOrphanedJobs(ctx context.Context, dbtx store.DBTransaction) (int64, error) {
	var n int64
	err := s.with(dbtx, func(d *dataset) error {
		for id, j := range d.jobs {
			if _, ok := d.tournaments[j.TournamentID]; !ok {
				delete(d.jobs, id)
				delete(d.jobSeq, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) CountJobsByStatus(ctx context.Context) (map[store.JobStatus]int, error) {
	counts := make(map[store.JobStatus]int)
	err := s.with(nil, func(d *dataset) error {
		for _, j := range d.jobs {
			counts[j.Status]++
		}
		return nil
	})
	return counts, err
}
