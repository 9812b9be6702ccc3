package postgres

import (
	"context"
	"fmt"
	"strings"

	"gomokuplane/internal/store"
)

const gameColumns = `id, tournament_id, black_agent_id, white_agent_id, winner_id, result, termination,
	move_count, log_location, html_location, error_message, started_at, completed_at`

func scanGame(row rowScanner) (*store.Game, error) {
	var g store.Game
	err := row.Scan(
		&g.ID, &g.TournamentID, &g.BlackAgentID, &g.WhiteAgentID, &g.WinnerID, &g.Result,
		&g.Termination, &g.MoveCount, &g.LogLocation, &g.HTMLLocation, &g.ErrorMessage,
		&g.StartedAt, &g.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateGame(ctx context.Context, tx store.DBTransaction, g *store.Game) error {
	query := `
		INSERT INTO games (tournament_id, black_agent_id, white_agent_id, winner_id, result, termination,
			move_count, log_location, html_location, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		g.TournamentID, g.BlackAgentID, g.WhiteAgentID, g.WinnerID, g.Result, g.Termination,
		g.MoveCount, g.LogLocation, g.HTMLLocation, g.ErrorMessage, g.StartedAt, g.CompletedAt,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, tx store.DBTransaction, id int64) (*store.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	g, err := scanGame(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func (s *Store) ListGames(ctx context.Context, tx store.DBTransaction, filter store.GameFilter) ([]store.Game, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TournamentID != 0 {
		args = append(args, filter.TournamentID)
		where = append(where, fmt.Sprintf("tournament_id = $%d", len(args)))
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.getExecutor(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games query failed: %w", err)
	}
	defer rows.Close()

	var games []store.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("list games scan failed: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}
