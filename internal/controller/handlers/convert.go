package handlers

import (
	"time"

	"gomokuplane/internal/monitor"
	"gomokuplane/internal/recovery"
	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"
)

func toAgent(a *store.Agent) api.Agent {
	return api.Agent{
		ID:          a.ID,
		Name:        a.Name,
		Author:      a.Author,
		Description: a.Description,
		Version:     a.Version,
		Kind:        string(a.Kind),
		Config:      a.Config,
		IsActive:    a.IsActive,
		GamesPlayed: a.GamesPlayed,
		GamesWon:    a.GamesWon,
		GamesDrawn:  a.GamesDrawn,
		GamesLost:   a.GamesLost(),
		WinRate:     a.WinRate(),
		EloRating:   a.EloRating,
		CreatedAt:   a.CreatedAt,
	}
}

func toTournament(t *store.Tournament) api.Tournament {
	ids := t.AgentIDs
	if ids == nil {
		ids = []int64{}
	}
	return api.Tournament{
		ID:             t.ID,
		Name:           t.Name,
		Status:         string(t.Status),
		TotalGames:     t.TotalGames,
		CompletedGames: t.CompletedGames,
		Progress:       t.Progress(),
		AgentIDs:       ids,
		CreatedAt:      t.CreatedAt,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func toJob(j *store.Job) api.Job {
	return api.Job{
		ID:             j.ID.String(),
		TournamentID:   j.TournamentID,
		Status:         string(j.Status),
		WorkerID:       j.WorkerID,
		Priority:       j.Priority,
		RetryCount:     j.RetryCount,
		MaxRetries:     j.MaxRetries,
		TimeoutSeconds: j.TimeoutSeconds,
		Error:          j.ErrorMessage,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		LastHeartbeat:  j.LastHeartbeat,
	}
}

func toGame(g *store.Game) api.Game {
	return api.Game{
		ID:           g.ID,
		TournamentID: g.TournamentID,
		BlackAgentID: g.BlackAgentID,
		WhiteAgentID: g.WhiteAgentID,
		WinnerID:     g.WinnerID,
		Result:       string(g.Result),
		Termination:  g.Termination,
		MoveCount:    g.MoveCount,
		LogLocation:  g.LogLocation,
		HTMLLocation: g.HTMLLocation,
		Error:        g.ErrorMessage,
		StartedAt:    g.StartedAt,
		CompletedAt:  g.CompletedAt,
	}
}

func toWorker(w *store.WorkerProcess, now time.Time, timeout time.Duration) api.Worker {
	out := api.Worker{
		ID:                w.ID,
		Hostname:          w.Hostname,
		PID:               w.PID,
		Status:            string(w.Status),
		Healthy:           w.Healthy(now, timeout),
		JobsCompleted:     w.JobsCompleted,
		JobsFailed:        w.JobsFailed,
		MaxConcurrentJobs: w.MaxConcurrentJobs,
		StartedAt:         w.StartedAt,
		LastHeartbeat:     w.LastHeartbeat,
	}
	if w.CurrentJobID != nil {
		id := w.CurrentJobID.String()
		out.CurrentJobID = &id
	}
	return out
}

func toHealthStatus(hs monitor.HealthStatus) api.HealthStatus {
	var out api.HealthStatus
	out.Timestamp = hs.Timestamp
	out.MonitoringActive = hs.MonitoringActive
	out.Workers.Total = hs.Workers.Total
	out.Workers.Active = hs.Workers.Active
	out.Workers.Healthy = hs.Workers.Healthy
	out.Workers.Unhealthy = hs.Workers.Unhealthy
	out.Jobs.Total = hs.Jobs.Total
	out.Jobs.Running = hs.Jobs.Running
	out.Jobs.Pending = hs.Jobs.Pending
	out.Jobs.Failed = hs.Jobs.Failed
	out.Tournaments.Running = hs.Tournaments.Running
	out.Tournaments.Pending = hs.Tournaments.Pending
	out.SystemHealth = hs.SystemHealth
	return out
}

func toRecoveryStatus(st recovery.Status) api.RecoveryStatus {
	out := api.RecoveryStatus{
		Timestamp:     st.Timestamp,
		Tournaments:   make(map[string]int),
		Jobs:          make(map[string]int),
		Workers:       make(map[string]int),
		Orphaned:      st.Orphaned,
		NeedsRecovery: st.NeedsRecovery,
	}
	for _, s := range []store.TournamentStatus{
		store.TournamentStatusPending, store.TournamentStatusRunning, store.TournamentStatusCompleted,
		store.TournamentStatusFailed, store.TournamentStatusCancelled,
	} {
		out.Tournaments[string(s)] = st.Tournaments[s]
	}
	for _, s := range []store.JobStatus{
		store.JobStatusPending, store.JobStatusRunning, store.JobStatusCompleted,
		store.JobStatusFailed, store.JobStatusCancelled,
	} {
		out.Jobs[string(s)] = st.Jobs[s]
	}
	for _, s := range []store.WorkerStatus{store.WorkerStatusActive, store.WorkerStatusInactive, store.WorkerStatusCrashed} {
		out.Workers[string(s)] = st.Workers[s]
	}
	out.Workers["healthy"] = st.Healthy
	out.Workers["unhealthy"] = st.Unhealthy
	return out
}
