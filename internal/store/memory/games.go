package memory

import (
	"context"
	"sort"

	"gomokuplane/internal/store"
)

func (s *Store) CreateGame(ctx context.Context, dbtx store.DBTransaction, g *store.Game) error {
	return s.with(dbtx, func(d *dataset) error {
		if _, ok := d.tournaments[g.TournamentID]; !ok {
			return store.ErrNotFound
		}
		d.nextGameID++
		g.ID = d.nextGameID
		d.games[g.ID] = *g
		return nil
	})
}

func (s *Store) GetGame(ctx context.Context, dbtx store.DBTransaction, id int64) (*store.Game, error) {
	var out *store.Game
	err := s.with(dbtx, func(d *dataset) error {
		g, ok := d.games[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &g
		return nil
	})
	return out, err
}

func (s *Store) ListGames(ctx context.Context, dbtx store.DBTransaction, filter store.GameFilter) ([]store.Game, error) {
	var out []store.Game
	err := s.with(dbtx, func(d *dataset) error {
		for _, g := range d.games {
			if filter.TournamentID != 0 && g.TournamentID != filter.TournamentID {
				continue
			}
			out = append(out, g)
		}
		sort.Slice(out, func(a, b int) bool {
			if !out[a].StartedAt.Equal(out[b].StartedAt) {
				return out[a].StartedAt.After(out[b].StartedAt)
			}
			return out[a].ID > out[b].ID
		})
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
		return nil
	})
	return out, err
}
