package memory

import (
	"context"
	"sort"
	"time"

	"gomokuplane/internal/store"
)

func (s *Store) UpsertWorker(ctx context.Context, dbtx store.DBTransaction, w *store.WorkerProcess) error {
	return s.with(dbtx, func(d *dataset) error {
		d.workers[w.ID] = *w
		return nil
	})
}

func (s *Store) GetWorker(ctx context.Context, dbtx store.DBTransaction, id string) (*store.WorkerProcess, error) {
	var out *store.WorkerProcess
	err := s.with(dbtx, func(d *dataset) error {
		w, ok := d.workers[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (s *Store) UpdateWorker(ctx context.Context, dbtx store.DBTransaction, w *store.WorkerProcess) error {
	return s.with(dbtx, func(d *dataset) error {
		existing, ok := d.workers[w.ID]
		if !ok {
			return store.ErrNotFound
		}
		existing.Status = w.Status
		existing.CurrentJobID = w.CurrentJobID
		existing.JobsCompleted = w.JobsCompleted
		existing.JobsFailed = w.JobsFailed
		existing.LastHeartbeat = w.LastHeartbeat
		d.workers[w.ID] = existing
		return nil
	})
}

func (s *Store) TouchWorkerHeartbeat(ctx context.Context, dbtx store.DBTransaction, id string, now time.Time) error {
	return s.with(dbtx, func(d *dataset) error {
		w, ok := d.workers[id]
		if !ok {
			return store.ErrNotFound
		}
		w.LastHeartbeat = now
		d.workers[id] = w
		return nil
	})
}

func (s *Store) ListWorkers(ctx context.Context, dbtx store.DBTransaction, statuses ...store.WorkerStatus) ([]store.WorkerProcess, error) {
	var out []store.WorkerProcess
	err := s.with(dbtx, func(d *dataset) error {
		for _, w := range d.workers {
			if len(statuses) > 0 && !containsWorkerStatus(statuses, w.Status) {
				continue
			}
			out = append(out, w)
		}
		sort.Slice(out, func(a, b int) bool {
			if !out[a].StartedAt.Equal(out[b].StartedAt) {
				return out[a].StartedAt.Before(out[b].StartedAt)
			}
			return out[a].ID < out[b].ID
		})
		return nil
	})
	return out, err
}

func containsWorkerStatus(statuses []store.WorkerStatus, st store.WorkerStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
