package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// Store combines every repository with transaction control.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	TournamentStore
	JobStore
	WorkerStore
	CheckpointStore
	AgentStore
	GameStore
}

// TournamentFilter narrows ListTournaments. Zero values mean no restriction.
type TournamentFilter struct {
	Statuses []TournamentStatus
	Limit    int
}

// TournamentStore persists tournaments.
type TournamentStore interface {
	// CreateTournament inserts the tournament and sets its ID.
	CreateTournament(ctx context.Context, tx DBTransaction, t *Tournament) error

	GetTournament(ctx context.Context, tx DBTransaction, id int64) (*Tournament, error)

	// UpdateTournament writes status, counters and timestamps.
	UpdateTournament(ctx context.Context, tx DBTransaction, t *Tournament) error

	// IncrementCompletedGames bumps completed_games by one.
	IncrementCompletedGames(ctx context.Context, tx DBTransaction, id int64) error

	// DeleteTournament removes the tournament with its jobs, games and checkpoints.
	DeleteTournament(ctx context.Context, tx DBTransaction, id int64) error

	// ListTournaments returns newest first.
	ListTournaments(ctx context.Context, tx DBTransaction, filter TournamentFilter) ([]Tournament, error)

	// ListOrphanedTournaments returns running tournaments without a pending or running job.
	ListOrphanedTournaments(ctx context.Context, tx DBTransaction) ([]Tournament, error)

	CountTournamentsByStatus(ctx context.Context) (map[TournamentStatus]int, error)
}

// JobFilter narrows ListJobs. Zero values mean no restriction.
type JobFilter struct {
	Statuses     []JobStatus
	TournamentID int64
	Limit        int
}

// JobStore persists tournament jobs.
type JobStore interface {
	// LockJobQueue serializes job admission and assignment for the rest of tx.
	LockJobQueue(ctx context.Context, tx DBTransaction) error

	CreateJob(ctx context.Context, tx DBTransaction, job *Job) error

	GetJob(ctx context.Context, tx DBTransaction, id uuid.UUID) (*Job, error)

	// GetLatestJobForTournament returns the most recently created job of a tournament.
	GetLatestJobForTournament(ctx context.Context, tx DBTransaction, tournamentID int64) (*Job, error)

	// GetRunningJob returns the running job, or ErrNotFound.
	GetRunningJob(ctx context.Context, tx DBTransaction) (*Job, error)

	// ClaimNextJob moves the highest-priority, oldest pending job to running for workerID,
	// provided no job is running. Returns nil when nothing was claimed.
	ClaimNextJob(ctx context.Context, tx DBTransaction, workerID string, now time.Time) (*Job, error)

	// UpdateJob writes all mutable job fields.
	UpdateJob(ctx context.Context, tx DBTransaction, job *Job) error

	// TouchJobHeartbeat sets last_heartbeat on a running job and reports whether it was running.
	TouchJobHeartbeat(ctx context.Context, tx DBTransaction, id uuid.UUID, now time.Time) (bool, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, tx DBTransaction, filter JobFilter) ([]Job, error)

	// DeleteTerminalJobsBefore removes completed, failed and cancelled jobs created before cutoff.
	DeleteTerminalJobsBefore(ctx context.Context, tx DBTransaction, cutoff time.Time) (int64, error)

	// DeleteOrphanedJobs removes jobs whose tournament no longer exists.
	DeleteOrphanedJobs(ctx context.Context, tx DBTransaction) (int64, error)

	CountJobsByStatus(ctx context.Context) (map[JobStatus]int, error)
}

// WorkerStore persists worker registrations.
type WorkerStore interface {
	// UpsertWorker replaces any existing row with the same ID.
	UpsertWorker(ctx context.Context, tx DBTransaction, w *WorkerProcess) error

	GetWorker(ctx context.Context, tx DBTransaction, id string) (*WorkerProcess, error)

	UpdateWorker(ctx context.Context, tx DBTransaction, w *WorkerProcess) error

	TouchWorkerHeartbeat(ctx context.Context, tx DBTransaction, id string, now time.Time) error

	// ListWorkers returns workers in any of statuses, or all workers when none given.
	ListWorkers(ctx context.Context, tx DBTransaction, statuses ...WorkerStatus) ([]WorkerProcess, error)
}

// CheckpointStore persists tournament checkpoints.
type CheckpointStore interface {
	CreateCheckpoint(ctx context.Context, tx DBTransaction, cp *Checkpoint) error

	// GetLatestCheckpoint returns the newest checkpoint of a tournament, or ErrNotFound.
	GetLatestCheckpoint(ctx context.Context, tx DBTransaction, tournamentID int64) (*Checkpoint, error)

	// PruneCheckpoints keeps the newest keep checkpoints of every tournament.
	PruneCheckpoints(ctx context.Context, tx DBTransaction, keep int) (int64, error)
}

// AgentStore persists agents and their statistics.
type AgentStore interface {
	CreateAgent(ctx context.Context, tx DBTransaction, a *Agent) error

	GetAgent(ctx context.Context, tx DBTransaction, id int64) (*Agent, error)

	// GetAgentsByIDs returns the matching agents ordered by ID. Missing IDs are skipped.
	GetAgentsByIDs(ctx context.Context, tx DBTransaction, ids []int64) ([]Agent, error)

	ListAgents(ctx context.Context, tx DBTransaction, activeOnly bool) ([]Agent, error)

	// Leaderboard returns active agents ordered by rating.
	Leaderboard(ctx context.Context, limit int) ([]Agent, error)

	ApplyAgentStats(ctx context.Context, tx DBTransaction, id int64, delta AgentStatsDelta) error

	AdjustEloRating(ctx context.Context, tx DBTransaction, id int64, delta float64) error
}

// GameFilter narrows ListGames. Zero values mean no restriction.
type GameFilter struct {
	TournamentID int64
	Limit        int
}

// GameStore persists played games.
type GameStore interface {
	CreateGame(ctx context.Context, tx DBTransaction, g *Game) error

	GetGame(ctx context.Context, tx DBTransaction, id int64) (*Game, error)

	// ListGames returns games newest first.
	ListGames(ctx context.Context, tx DBTransaction, filter GameFilter) ([]Game, error)
}
