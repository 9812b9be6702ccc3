package postgres

import (
	"context"
	"fmt"

	"gomokuplane/internal/store"

	"github.com/lib/pq"
)

const agentColumns = `id, name, author, description, version, kind, config, is_active,
	games_played, games_won, games_drawn, elo_rating, created_at`

func scanAgent(row rowScanner) (*store.Agent, error) {
	var (
		a      store.Agent
		config []byte
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Author, &a.Description, &a.Version, &a.Kind, &config, &a.IsActive,
		&a.GamesPlayed, &a.GamesWon, &a.GamesDrawn, &a.EloRating, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Config = config
	return &a, nil
}

func (s *Store) CreateAgent(ctx context.Context, tx store.DBTransaction, a *store.Agent) error {
	config := a.Config
	if len(config) == 0 {
		config = []byte("{}")
	}
	query := `
		INSERT INTO agents (name, author, description, version, kind, config, is_active, elo_rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		a.Name, a.Author, a.Description, a.Version, a.Kind, []byte(config), a.IsActive, a.EloRating, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create agent %q: %w", a.Name, err)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, tx store.DBTransaction, id int64) (*store.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	a, err := scanAgent(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) GetAgentsByIDs(ctx context.Context, tx store.DBTransaction, ids []int64) ([]store.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = ANY($1) ORDER BY id`
	return s.queryAgents(ctx, tx, query, pq.Array(ids))
}

func (s *Store) ListAgents(ctx context.Context, tx store.DBTransaction, activeOnly bool) ([]store.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	return s.queryAgents(ctx, tx, query)
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]store.Agent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_active ORDER BY elo_rating DESC, games_won DESC, id LIMIT $1`
	return s.queryAgents(ctx, nil, query, limit)
}

func (s *Store) queryAgents(ctx context.Context, tx store.DBTransaction, query string, args ...interface{}) ([]store.Agent, error) {
	rows, err := s.getExecutor(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("agent query failed: %w", err)
	}
	defer rows.Close()

	var agents []store.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("agent scan failed: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (s *Store) ApplyAgentStats(ctx context.Context, tx store.DBTransaction, id int64, delta store.AgentStatsDelta) error {
	_, err := s.getExecutor(tx).ExecContext(ctx, `
		UPDATE agents
		SET games_played = games_played + $1, games_won = games_won + $2, games_drawn = games_drawn + $3
		WHERE id = $4
	`, delta.Played, delta.Won, delta.Drawn, id)
	if err != nil {
		return fmt.Errorf("failed to update stats of agent %d: %w", id, err)
	}
	return nil
}

func (s *Store) AdjustEloRating(ctx context.Context, tx store.DBTransaction, id int64, delta float64) error {
	_, err := s.getExecutor(tx).ExecContext(ctx,
		`UPDATE agents SET elo_rating = elo_rating + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust rating of agent %d: %w", id, err)
	}
	return nil
}
