package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gomokuplane/internal/store"
	"gomokuplane/internal/tournament"
)

// Progress is the checkpoint payload written by the worker.
type Progress struct {
	CompletedMatchups []string  `json:"completed_matchups"`
	TotalMatchups     int       `json:"total_matchups"`
	CompletedGames    int       `json:"completed_games"`
	AgentIDs          []int64   `json:"agent_ids"`
	Timestamp         time.Time `json:"timestamp"`
}

// ParseProgress decodes a checkpoint payload.
func ParseProgress(data json.RawMessage) (*Progress, error) {
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid checkpoint data: %w", err)
	}
	return &p, nil
}

func (w *Worker) progress(t *store.Tournament, schedule []tournament.Matchup, done map[string]bool) json.RawMessage {
	p := Progress{
		CompletedMatchups: []string{},
		TotalMatchups:     len(schedule),
		AgentIDs:          t.AgentIDs,
		Timestamp:         w.jobs.Now(),
	}
	for _, m := range schedule {
		if done[m.Key()] {
			p.CompletedMatchups = append(p.CompletedMatchups, m.Key())
		}
	}
	p.CompletedGames = len(p.CompletedMatchups)
	data, _ := json.Marshal(p)
	return data
}

// completedMatchups returns the matchups that must not be replayed: those named by the
// latest checkpoint plus those with a recorded game. A tournament without a checkpoint
// gets its tournament_started checkpoint here.
func (w *Worker) completedMatchups(ctx context.Context, t *store.Tournament, schedule []tournament.Matchup, logger *slog.Logger) (map[string]bool, error) {
	games, err := w.store.ListGames(ctx, nil, store.GameFilter{TournamentID: t.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list recorded games: %w", err)
	}
	done := tournament.PlayedKeys(games)

	cp, err := w.store.GetLatestCheckpoint(ctx, nil, t.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.checkpoint(ctx, t.ID, store.CheckpointTournamentStarted, w.progress(t, schedule, done), logger)
		return done, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	p, err := ParseProgress(cp.Data)
	if err != nil {
		logger.Warn("ignoring unreadable checkpoint", "checkpoint_id", cp.ID, "error", err)
		return done, nil
	}
	for _, key := range p.CompletedMatchups {
		done[key] = true
	}
	logger.Info("resuming tournament from checkpoint",
		"checkpoint_type", cp.Type,
		"completed", countDone(schedule, done),
		"total", len(schedule),
	)
	return done, nil
}

// checkpoint appends a checkpoint. Failures are logged; recorded games still prevent replays.
func (w *Worker) checkpoint(ctx context.Context, tournamentID int64, typ store.CheckpointType, data json.RawMessage, logger *slog.Logger) {
	cp := &store.Checkpoint{
		TournamentID: tournamentID,
		Type:         typ,
		Data:         data,
		CreatedAt:    w.jobs.Now(),
	}
	if err := w.store.CreateCheckpoint(ctx, nil, cp); err != nil {
		logger.Error("failed to write checkpoint", "type", typ, "error", err)
		return
	}
	logger.Debug("checkpoint written", "type", typ)
}

func countDone(schedule []tournament.Matchup, done map[string]bool) int {
	n := 0
	for _, m := range schedule {
		if done[m.Key()] {
			n++
		}
	}
	return n
}
