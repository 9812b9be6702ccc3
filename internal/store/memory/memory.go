// Package memory implements the store interfaces in process memory.
//
// Transactions serialize on a single mutex and roll back by restoring a snapshot,
// so the package gives the same isolation guarantees the job manager relies on from
// Postgres. It backs tests and single-process development mode.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"gomokuplane/internal/store"

	"github.com/google/uuid"
)

var errUnsupported = errors.New("memory store: raw SQL is not supported")

// Store is an in-memory store.Store.
type Store struct {
	mu      sync.Mutex
	data    *dataset
	pingErr error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: newDataset()}
}

type dataset struct {
	tournaments map[int64]store.Tournament
	jobs        map[uuid.UUID]store.Job
	jobSeq      map[uuid.UUID]int64
	workers     map[string]store.WorkerProcess
	checkpoints []store.Checkpoint
	agents      map[int64]store.Agent
	games       map[int64]store.Game

	nextTournamentID int64
	nextJobSeq       int64
	nextCheckpointID int64
	nextAgentID      int64
	nextGameID       int64
}

func newDataset() *dataset {
	return &dataset{
		tournaments: make(map[int64]store.Tournament),
		jobs:        make(map[uuid.UUID]store.Job),
		jobSeq:      make(map[uuid.UUID]int64),
		workers:     make(map[string]store.WorkerProcess),
		agents:      make(map[int64]store.Agent),
		games:       make(map[int64]store.Game),
	}
}

func (d *dataset) clone() *dataset {
	c := *d
	c.tournaments = make(map[int64]store.Tournament, len(d.tournaments))
	for k, v := range d.tournaments {
		v.AgentIDs = append([]int64(nil), v.AgentIDs...)
		c.tournaments[k] = v
	}
	c.jobs = make(map[uuid.UUID]store.Job, len(d.jobs))
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	c.jobSeq = make(map[uuid.UUID]int64, len(d.jobSeq))
	for k, v := range d.jobSeq {
		c.jobSeq[k] = v
	}
	c.workers = make(map[string]store.WorkerProcess, len(d.workers))
	for k, v := range d.workers {
		c.workers[k] = v
	}
	c.checkpoints = append([]store.Checkpoint(nil), d.checkpoints...)
	c.agents = make(map[int64]store.Agent, len(d.agents))
	for k, v := range d.agents {
		c.agents[k] = v
	}
	c.games = make(map[int64]store.Game, len(d.games))
	for k, v := range d.games {
		c.games[k] = v
	}
	return &c
}

// tx holds the store lock from BeginTx until Commit or Rollback.
type tx struct {
	s        *Store
	snapshot *dataset
	done     bool
}

func (t *tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errUnsupported
}

func (t *tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errUnsupported
}

func (t *tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

// Rollback restores the snapshot. It is a no-op after Commit.
func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.data = t.snapshot
	t.s.mu.Unlock()
	return nil
}

// BeginTx blocks until no other transaction is open.
func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{s: s, snapshot: s.data.clone()}, nil
}

// Ping returns the error set by SetPingError.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

// SetPingError makes Ping fail, simulating an unreachable database.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// with runs fn against the live dataset. Inside a transaction the lock is already held.
func (s *Store) with(dbtx store.DBTransaction, fn func(d *dataset) error) error {
	if dbtx != nil {
		t, ok := dbtx.(*tx)
		if !ok || t.s != s {
			return errors.New("memory store: foreign transaction")
		}
		if t.done {
			return sql.ErrTxDone
		}
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// LockJobQueue is implicit: every transaction already holds the store lock.
func (s *Store) LockJobQueue(ctx context.Context, dbtx store.DBTransaction) error {
	if dbtx == nil {
		return errors.New("job queue lock requires a transaction")
	}
	return s.with(dbtx, func(d *dataset) error { return nil })
}

func (d *dataset) sortedJobs() []store.Job {
	jobs := make([]store.Job, 0, len(d.jobs))
	for _, j := range d.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
		}
		return d.jobSeq[jobs[a].ID] > d.jobSeq[jobs[b].ID]
	})
	return jobs
}
