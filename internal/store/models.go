// Package store contains the database layer for gomokuplane.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would break a uniqueness rule,
	// such as a second running job.
	ErrConflict = errors.New("conflict")
)

// DefaultEloRating is the rating every new agent starts with.
const DefaultEloRating = 1500.0

// TournamentStatus represents the state of a tournament.
type TournamentStatus string

const (
	TournamentStatusPending   TournamentStatus = "pending"
	TournamentStatusRunning   TournamentStatus = "running"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusFailed    TournamentStatus = "failed"
	TournamentStatusCancelled TournamentStatus = "cancelled"
)

// Tournament is a scheduled round-robin competition among selected agents.
type Tournament struct {
	ID             int64
	Name           string
	Status         TournamentStatus
	TotalGames     int
	CompletedGames int
	AgentIDs       []int64
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Progress returns the completed fraction in [0, 1].
func (t *Tournament) Progress() float64 {
	if t.TotalGames <= 0 {
		return 0
	}
	return float64(t.CompletedGames) / float64(t.TotalGames)
}

// JobStatus represents the state of a tournament job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition is expected (failed may still be retried).
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Active reports whether the job still holds its tournament's slot.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Job is one execution attempt of a tournament.
type Job struct {
	ID             uuid.UUID
	TournamentID   int64
	Status         JobStatus
	WorkerID       *string
	Priority       int
	RetryCount     int
	MaxRetries     int
	TimeoutSeconds int
	ErrorMessage   *string
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastHeartbeat  *time.Time
}

// CanRetry reports whether the retry budget allows another attempt.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// HeartbeatExpired reports whether the job's heartbeat is missing or older than timeout.
func (j *Job) HeartbeatExpired(now time.Time, timeout time.Duration) bool {
	return j.LastHeartbeat == nil || now.Sub(*j.LastHeartbeat) >= timeout
}

// WorkerStatus represents the state of a worker process.
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "active"
	WorkerStatusInactive WorkerStatus = "inactive"
	WorkerStatusCrashed  WorkerStatus = "crashed"
)

// WorkerProcess is the registration row of a worker.
type WorkerProcess struct {
	ID                string
	Hostname          string
	PID               int
	Status            WorkerStatus
	CurrentJobID      *uuid.UUID
	JobsCompleted     int
	JobsFailed        int
	MaxConcurrentJobs int
	StartedAt         time.Time
	LastHeartbeat     time.Time
}

// Healthy reports liveness: active and heartbeat newer than timeout.
func (w *WorkerProcess) Healthy(now time.Time, timeout time.Duration) bool {
	return w.Status == WorkerStatusActive && now.Sub(w.LastHeartbeat) < timeout
}

// CheckpointType labels a checkpoint.
type CheckpointType string

const (
	CheckpointTournamentStarted   CheckpointType = "tournament_started"
	CheckpointGamesProgress       CheckpointType = "games_progress"
	CheckpointTournamentCompleted CheckpointType = "tournament_completed"
)

// Checkpoint is an append-only progress snapshot of a tournament.
// Data is opaque to the store.
type Checkpoint struct {
	ID           int64
	TournamentID int64
	Type         CheckpointType
	Data         json.RawMessage
	CreatedAt    time.Time
}

// AgentKind selects how an agent is constructed.
type AgentKind string

const (
	AgentKindSimple  AgentKind = "simple"
	AgentKindLLM     AgentKind = "llm"
	AgentKindProcess AgentKind = "process"
)

// Agent is a registered player.
type Agent struct {
	ID          int64
	Name        string
	Author      string
	Description string
	Version     string
	Kind        AgentKind
	Config      json.RawMessage
	IsActive    bool
	GamesPlayed int
	GamesWon    int
	GamesDrawn  int
	EloRating   float64
	CreatedAt   time.Time
}

// GamesLost is derived from the other counters.
func (a *Agent) GamesLost() int {
	return a.GamesPlayed - a.GamesWon - a.GamesDrawn
}

// WinRate returns won/played, or 0 before the first game.
func (a *Agent) WinRate() float64 {
	if a.GamesPlayed == 0 {
		return 0
	}
	return float64(a.GamesWon) / float64(a.GamesPlayed)
}

// GameResult is the persisted outcome of a game.
type GameResult string

const (
	GameResultBlackWins GameResult = "black_wins"
	GameResultWhiteWins GameResult = "white_wins"
	GameResultDraw      GameResult = "draw"
	GameResultError     GameResult = "error"
)

// Decisive reports whether the game had a winner.
func (r GameResult) Decisive() bool {
	return r == GameResultBlackWins || r == GameResultWhiteWins
}

// Game is one played matchup.
type Game struct {
	ID           int64
	TournamentID int64
	BlackAgentID int64
	WhiteAgentID int64
	WinnerID     *int64
	Result       GameResult
	Termination  string
	MoveCount    int
	LogLocation  string
	HTMLLocation string
	ErrorMessage *string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// AgentStatsDelta is applied to an agent's counters after a game.
type AgentStatsDelta struct {
	Played int
	Won    int
	Drawn  int
}
