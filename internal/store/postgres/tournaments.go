package postgres

import (
	"context"
	"fmt"
	"strings"

	"gomokuplane/internal/store"

	"github.com/lib/pq"
)

const tournamentColumns = `id, name, status, total_games, completed_games, agent_ids,
	created_at, started_at, completed_at`

func scanTournament(row rowScanner) (*store.Tournament, error) {
	var t store.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.Status, &t.TotalGames, &t.CompletedGames,
		pq.Array(&t.AgentIDs), &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTournament(ctx context.Context, tx store.DBTransaction, t *store.Tournament) error {
	query := `
		INSERT INTO tournaments (name, status, total_games, completed_games, agent_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.getExecutor(tx).QueryRowContext(ctx, query,
		t.Name, t.Status, t.TotalGames, t.CompletedGames, pq.Array(t.AgentIDs), t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (s *Store) GetTournament(ctx context.Context, tx store.DBTransaction, id int64) (*store.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Store) UpdateTournament(ctx context.Context, tx store.DBTransaction, t *store.Tournament) error {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		UPDATE tournaments
		SET status = $1, total_games = $2, completed_games = $3, started_at = $4, completed_at = $5
		WHERE id = $6
	`, t.Status, t.TotalGames, t.CompletedGames, t.StartedAt, t.CompletedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementCompletedGames(ctx context.Context, tx store.DBTransaction, id int64) error {
	_, err := s.getExecutor(tx).ExecContext(ctx,
		`UPDATE tournaments SET completed_games = completed_games + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment completed games of tournament %d: %w", id, err)
	}
	return nil
}

// DeleteTournament relies on ON DELETE CASCADE for jobs, games and checkpoints.
func (s *Store) DeleteTournament(ctx context.Context, tx store.DBTransaction, id int64) error {
	res, err := s.getExecutor(tx).ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListTournaments(ctx context.Context, tx store.DBTransaction, filter store.TournamentFilter) ([]store.Tournament, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.queryTournaments(ctx, tx, query, args...)
}

func (s *Store) ListOrphanedTournaments(ctx context.Context, tx store.DBTransaction) ([]store.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM tournament_jobs j
			WHERE j.tournament_id = t.id AND j.status = ANY($2)
		  )
		ORDER BY t.id
	`
	return s.queryTournaments(ctx, tx, query, store.TournamentStatusRunning, pq.Array([]string{
		string(store.JobStatusPending), string(store.JobStatusRunning),
	}))
}

func (s *Store) queryTournaments(ctx context.Context, tx store.DBTransaction, query string, args ...interface{}) ([]store.Tournament, error) {
	rows, err := s.getExecutor(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tournament query failed: %w", err)
	}
	defer rows.Close()

	var tournaments []store.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("tournament scan failed: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (s *Store) CountTournamentsByStatus(ctx context.Context) (map[store.TournamentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tournaments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tournaments query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[store.TournamentStatus]int)
	for rows.Next() {
		var (
			status store.TournamentStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
