// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import (
	"encoding/json"
	"time"
)

// CreateAgentRequest is the request body for registering an agent.
type CreateAgentRequest struct {
	Name        string          `json:"name"`
	Author      string          `json:"author,omitempty"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	Kind        string          `json:"kind"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Agent represents an agent in API responses.
type Agent struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Author      string          `json:"author,omitempty"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	Kind        string          `json:"kind"`
	Config      json.RawMessage `json:"config,omitempty"`
	IsActive    bool            `json:"is_active"`
	GamesPlayed int             `json:"games_played"`
	GamesWon    int             `json:"games_won"`
	GamesDrawn  int             `json:"games_drawn"`
	GamesLost   int             `json:"games_lost"`
	WinRate     float64         `json:"win_rate"`
	EloRating   float64         `json:"elo_rating"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateTournamentRequest is the request body for creating and enqueueing a tournament.
type CreateTournamentRequest struct {
	Name     string  `json:"name"`
	AgentIDs []int64 `json:"agent_ids"`
	// Priority orders pending jobs; higher runs first.
	Priority int `json:"priority,omitempty"`
}

// Tournament represents a tournament in API responses.
type Tournament struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	TotalGames     int        `json:"total_games"`
	CompletedGames int        `json:"completed_games"`
	Progress       float64    `json:"progress"`
	AgentIDs       []int64    `json:"agent_ids"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// TournamentDetail is the response body of GET /tournaments/{id}.
type TournamentDetail struct {
	Tournament
	Job   *Job   `json:"job,omitempty"`
	Games []Game `json:"games"`
}

// CreateTournamentResponse is the response body after creating a tournament.
type CreateTournamentResponse struct {
	Tournament Tournament `json:"tournament"`
	Job        Job        `json:"job"`
}

// Job represents a tournament job in API responses.
type Job struct {
	ID             string     `json:"id"`
	TournamentID   int64      `json:"tournament_id"`
	Status         string     `json:"status"`
	WorkerID       *string    `json:"worker_id,omitempty"`
	Priority       int        `json:"priority"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	TimeoutSeconds int        `json:"timeout_seconds"`
	Error          *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastHeartbeat  *time.Time `json:"last_heartbeat,omitempty"`
}

// Game represents a played game in API responses.
type Game struct {
	ID           int64      `json:"id"`
	TournamentID int64      `json:"tournament_id"`
	BlackAgentID int64      `json:"black_agent_id"`
	WhiteAgentID int64      `json:"white_agent_id"`
	WinnerID     *int64     `json:"winner_id,omitempty"`
	Result       string     `json:"result"`
	Termination  string     `json:"termination,omitempty"`
	MoveCount    int        `json:"move_count"`
	LogLocation  string     `json:"log_location,omitempty"`
	HTMLLocation string     `json:"html_location,omitempty"`
	Error        *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Worker represents a worker process in API responses.
type Worker struct {
	ID                string    `json:"id"`
	Hostname          string    `json:"hostname"`
	PID               int       `json:"pid"`
	Status            string    `json:"status"`
	Healthy           bool      `json:"healthy"`
	CurrentJobID      *string   `json:"current_job_id,omitempty"`
	JobsCompleted     int       `json:"jobs_completed"`
	JobsFailed        int       `json:"jobs_failed"`
	MaxConcurrentJobs int       `json:"max_concurrent_jobs"`
	StartedAt         time.Time `json:"started_at"`
	LastHeartbeat     time.Time `json:"last_heartbeat"`
}

// QueueStatus is the response body of GET /admin/queue.
type QueueStatus struct {
	Pending   int  `json:"pending"`
	Running   int  `json:"running"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Cancelled int  `json:"cancelled"`
	Total     int  `json:"total"`
	ActiveJob *Job `json:"active_job,omitempty"`
}

// HealthStatus is the response body of GET /admin/health.
type HealthStatus struct {
	Timestamp        time.Time `json:"timestamp"`
	MonitoringActive bool      `json:"monitoring_active"`
	Workers          struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Healthy   int `json:"healthy"`
		Unhealthy int `json:"unhealthy"`
	} `json:"workers"`
	Jobs struct {
		Total   int `json:"total"`
		Running int `json:"running"`
		Pending int `json:"pending"`
		Failed  int `json:"failed"`
	} `json:"jobs"`
	Tournaments struct {
		Running int `json:"running"`
		Pending int `json:"pending"`
	} `json:"tournaments"`
	SystemHealth string `json:"system_health"`
}

// RecoveryStatus is the response body of GET /admin/recovery.
type RecoveryStatus struct {
	Timestamp     time.Time      `json:"timestamp"`
	Tournaments   map[string]int `json:"tournaments"`
	Jobs          map[string]int `json:"jobs"`
	Workers       map[string]int `json:"workers"`
	Orphaned      int            `json:"orphaned_tournaments"`
	NeedsRecovery bool           `json:"needs_recovery"`
}

// CleanupResponse is the response body of the force-cleanup routes.
type CleanupResponse struct {
	Cleaned bool   `json:"cleaned"`
	Message string `json:"message"`
}

// StatusResponse acknowledges a state change.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Priority bounds of tournament jobs.
const (
	PriorityMin = 0
	PriorityMax = 100
)
