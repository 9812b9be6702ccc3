package tournament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gomokuplane/internal/agent"
	"gomokuplane/internal/arena"
	"gomokuplane/internal/artifact"
	"gomokuplane/internal/gomoku"
	"gomokuplane/internal/observability"
	"gomokuplane/internal/render"
	"gomokuplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotEnoughAgents is returned when fewer than two participants can be loaded.
var ErrNotEnoughAgents = errors.New("tournament needs at least 2 agents")

// AgentBuilder constructs a playable agent from its registry record.
type AgentBuilder interface {
	Build(a store.Agent) (agent.Agent, error)
}

// Config sets the rules of every game played by a Runner.
type Config struct {
	BoardSize   int
	WinLength   int
	MoveTimeout time.Duration
}

// Runner plays and records the games of a tournament.
type Runner struct {
	store     store.Store
	builder   AgentBuilder
	artifacts artifact.Store
	arena     *arena.Arena
	config    Config
	logger    *slog.Logger
	inst      *observability.Instruments
	now       func() time.Time
}

// NewRunner creates a Runner. artifacts may be nil, in which case no game logs are kept.
func NewRunner(s store.Store, builder AgentBuilder, artifacts artifact.Store, config Config, logger *slog.Logger, inst *observability.Instruments) *Runner {
	if inst == nil {
		inst = observability.NoopInstruments()
	}
	r := &Runner{
		store:     s,
		builder:   builder,
		artifacts: artifacts,
		config:    config,
		logger:    logger,
		inst:      inst,
		now:       func() time.Time { return time.Now().UTC() },
	}
	r.arena = arena.New(arena.Config{
		BoardSize:   config.BoardSize,
		WinLength:   config.WinLength,
		MoveTimeout: config.MoveTimeout,
		OnTimeout: func(ctx context.Context) {
			inst.MoveTimeouts.Add(ctx, 1)
		},
	})
	return r
}

// LoadParticipants returns the tournament's agents in selection order.
func (r *Runner) LoadParticipants(ctx context.Context, t *store.Tournament) ([]store.Agent, error) {
	agents, err := r.store.GetAgentsByIDs(ctx, nil, t.AgentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	byID := make(map[int64]store.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	out := make([]store.Agent, 0, len(t.AgentIDs))
	for _, id := range t.AgentIDs {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	if len(out) < 2 {
		return out, ErrNotEnoughAgents
	}
	return out, nil
}

// PlayGame plays one matchup and records it. Agent construction failures become an
// error game. An error is returned only when the game could not be finished or saved,
// in which case nothing is recorded and the matchup is still outstanding.
func (r *Runner) PlayGame(ctx context.Context, t *store.Tournament, black, white store.Agent) (*store.Game, error) {
	m := Matchup{Black: black, White: white}
	ctx, span := otel.Tracer(observability.MeterName).Start(ctx, "play_game",
		trace.WithAttributes(
			attribute.Int64("tournament.id", t.ID),
			attribute.String("game.matchup", m.Key()),
			attribute.String("game.black", black.Name),
			attribute.String("game.white", white.Name),
		),
	)
	defer span.End()

	logger := r.logger.With("tournament_id", t.ID, "matchup", m.Key())
	game := &store.Game{
		TournamentID: t.ID,
		BlackAgentID: black.ID,
		WhiteAgentID: white.ID,
		StartedAt:    r.now(),
	}

	bAgent, wAgent, err := r.build(black, white)
	if err != nil {
		logger.Warn("failed to load agents", "error", err)
		span.RecordError(err)
		msg := fmt.Sprintf("Failed to load agents: %v", err)
		completed := r.now()
		game.Result = store.GameResultError
		game.Termination = string(arena.AgentError)
		game.ErrorMessage = &msg
		game.CompletedAt = &completed
		if err := r.persist(ctx, game, nil); err != nil {
			return nil, err
		}
		r.inst.GamesPlayed.Add(ctx, 1, observability.Reason(string(store.GameResultError)))
		return game, nil
	}

	res, err := r.arena.Play(ctx, bAgent, wAgent)
	if err != nil {
		span.SetStatus(codes.Error, "game aborted")
		return nil, fmt.Errorf("game %s aborted: %w", m.Key(), err)
	}

	completed := r.now()
	game.CompletedAt = &completed
	game.Termination = string(res.Termination)
	game.MoveCount = len(res.Moves)

	stats := map[int64]store.AgentStatsDelta{}
	switch res.Winner {
	case gomoku.Black:
		game.Result = store.GameResultBlackWins
		game.WinnerID = &black.ID
		stats[black.ID] = store.AgentStatsDelta{Played: 1, Won: 1}
		stats[white.ID] = store.AgentStatsDelta{Played: 1}
	case gomoku.White:
		game.Result = store.GameResultWhiteWins
		game.WinnerID = &white.ID
		stats[black.ID] = store.AgentStatsDelta{Played: 1}
		stats[white.ID] = store.AgentStatsDelta{Played: 1, Won: 1}
	default:
		game.Result = store.GameResultDraw
		stats[black.ID] = store.AgentStatsDelta{Played: 1, Drawn: 1}
		stats[white.ID] = store.AgentStatsDelta{Played: 1, Drawn: 1}
	}
	if res.Termination.Forfeit() {
		msg := res.Reason
		game.ErrorMessage = &msg
	}

	r.storeArtifacts(ctx, t, m, res, game)

	if err := r.persist(ctx, game, stats); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("game.result", string(game.Result)),
		attribute.String("game.termination", game.Termination),
		attribute.Int("game.moves", game.MoveCount),
	)
	r.inst.GamesPlayed.Add(ctx, 1, observability.Reason(game.Termination))
	logger.Info("game finished",
		"game_id", game.ID,
		"result", game.Result,
		"termination", game.Termination,
		"moves", game.MoveCount,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return game, nil
}

func (r *Runner) build(black, white store.Agent) (agent.Agent, agent.Agent, error) {
	b, err := r.builder.Build(black)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", black.Name, err)
	}
	w, err := r.builder.Build(white)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", white.Name, err)
	}
	return b, w, nil
}

// storeArtifacts writes the JSON log and HTML page. Failures are logged; the game
// is recorded without the missing location.
func (r *Runner) storeArtifacts(ctx context.Context, t *store.Tournament, m Matchup, res *arena.Result, game *store.Game) {
	if r.artifacts == nil {
		return
	}
	doc := render.NewDocument(render.Metadata{
		TournamentID: t.ID,
		Tournament:   t.Name,
		Black:        m.Black.Name,
		White:        m.White.Name,
		BoardSize:    r.config.BoardSize,
		WinLength:    r.config.WinLength,
		Timestamp:    r.now(),
	}, res)

	logData, err := render.JSON(doc)
	if err == nil {
		key := artifact.GameKey(t.ID, t.Name, m.Key(), m.Black.Name, m.White.Name, "json")
		game.LogLocation, err = r.artifacts.Put(ctx, key, "application/json", logData)
	}
	if err != nil {
		r.logger.Warn("failed to store game log", "tournament_id", t.ID, "matchup", m.Key(), "error", err)
	}

	page, err := render.HTML(doc)
	if err == nil {
		key := artifact.GameKey(t.ID, t.Name, m.Key(), m.Black.Name, m.White.Name, "html")
		game.HTMLLocation, err = r.artifacts.Put(ctx, key, "text/html; charset=utf-8", page)
	}
	if err != nil {
		r.logger.Warn("failed to store game page", "tournament_id", t.ID, "matchup", m.Key(), "error", err)
	}
}

// persist records the game, the agents' counters and the tournament progress together.
func (r *Runner) persist(ctx context.Context, game *store.Game, stats map[int64]store.AgentStatsDelta) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.store.CreateGame(ctx, tx, game); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	for _, id := range sortedIDs(stats) {
		if err := r.store.ApplyAgentStats(ctx, tx, id, stats[id]); err != nil {
			return fmt.Errorf("failed to update agent %d stats: %w", id, err)
		}
	}
	if err := r.store.IncrementCompletedGames(ctx, tx, game.TournamentID); err != nil {
		return fmt.Errorf("failed to update tournament progress: %w", err)
	}
	return tx.Commit()
}

// Finalize applies the tournament's ELO changes, marks it completed and writes the
// completion checkpoint, all in one transaction. It returns the applied deltas.
func (r *Runner) Finalize(ctx context.Context, tournamentID int64, checkpoint json.RawMessage) (map[int64]float64, error) {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := r.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	games, err := r.store.ListGames(ctx, tx, store.GameFilter{TournamentID: tournamentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	agents, err := r.store.GetAgentsByIDs(ctx, tx, t.AgentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	// Ratings only change here, so the current ratings are the ones the tournament started with.
	ratings := make(map[int64]float64, len(agents))
	for _, a := range agents {
		ratings[a.ID] = a.EloRating
	}
	deltas := ComputeEloDeltas(games, ratings)
	for _, id := range sortedIDs(deltas) {
		if err := r.store.AdjustEloRating(ctx, tx, id, deltas[id]); err != nil {
			return nil, fmt.Errorf("failed to adjust rating of agent %d: %w", id, err)
		}
	}

	now := r.now()
	t.Status = store.TournamentStatusCompleted
	t.CompletedAt = &now
	if err := r.store.UpdateTournament(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("failed to complete tournament: %w", err)
	}
	cp := &store.Checkpoint{
		TournamentID: tournamentID,
		Type:         store.CheckpointTournamentCompleted,
		Data:         checkpoint,
		CreatedAt:    now,
	}
	if err := r.store.CreateCheckpoint(ctx, tx, cp); err != nil {
		return nil, fmt.Errorf("failed to write completion checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tournament completion: %w", err)
	}

	r.logger.Info("tournament finalized", "tournament_id", tournamentID, "games", len(games), "rated_agents", len(deltas))
	return deltas, nil
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
