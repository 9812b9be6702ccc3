package postgres

import (
	"context"
	"fmt"

	"gomokuplane/internal/store"
)

func (s *Store) CreateCheckpoint(ctx context.Context, tx store.DBTransaction, cp *store.Checkpoint) error {
	query := `
		INSERT INTO tournament_checkpoints (tournament_id, checkpoint_type, checkpoint_data, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	data := cp.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	err := s.getExecutor(tx).QueryRowContext(ctx, query, cp.TournamentID, cp.Type, []byte(data), cp.CreatedAt).Scan(&cp.ID)
	if err != nil {
		return fmt.Errorf("failed to create %s checkpoint for tournament %d: %w", cp.Type, cp.TournamentID, err)
	}
	return nil
}

func (s *Store) GetLatestCheckpoint(ctx context.Context, tx store.DBTransaction, tournamentID int64) (*store.Checkpoint, error) {
	query := `
		SELECT id, tournament_id, checkpoint_type, checkpoint_data, created_at
		FROM tournament_checkpoints
		WHERE tournament_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var (
		cp   store.Checkpoint
		data []byte
	)
	err := s.getExecutor(tx).QueryRowContext(ctx, query, tournamentID).Scan(
		&cp.ID, &cp.TournamentID, &cp.Type, &data, &cp.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	cp.Data = data
	return &cp, nil
}

func (s *Store) PruneCheckpoints(ctx context.Context, tx store.DBTransaction, keep int) (int64, error) {
	res, err := s.getExecutor(tx).ExecContext(ctx, `
		DELETE FROM tournament_checkpoints
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY tournament_id ORDER BY created_at DESC, id DESC
				) AS rn
				FROM tournament_checkpoints
			) ranked
			WHERE ranked.rn > $1
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	return res.RowsAffected()
}
