package memory

import (
	"context"
	"fmt"
	"sort"

	"gomokuplane/internal/store"
)

func (s *Store) CreateAgent(ctx context.Context, dbtx store.DBTransaction, a *store.Agent) error {
	return s.with(dbtx, func(d *dataset) error {
		for _, existing := range d.agents {
			if existing.Name == a.Name {
				return fmt.Errorf("agent %q: %w", a.Name, store.ErrConflict)
			}
		}
		d.nextAgentID++
		a.ID = d.nextAgentID
		d.agents[a.ID] = *a
		return nil
	})
}

func (s *Store) GetAgent(ctx context.Context, dbtx store.DBTransaction, id int64) (*store.Agent, error) {
	var out *store.Agent
	err := s.with(dbtx, func(d *dataset) error {
		a, ok := d.agents[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (s *Store) GetAgentsByIDs(ctx context.Context, dbtx store.DBTransaction, ids []int64) ([]store.Agent, error) {
	var out []store.Agent
	err := s.with(dbtx, func(d *dataset) error {
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if a, ok := d.agents[id]; ok && !seen[id] {
				seen[id] = true
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) ListAgents(ctx context.Context, dbtx store.DBTransaction, activeOnly bool) ([]store.Agent, error) {
	var out []store.Agent
	err := s.with(dbtx, func(d *dataset) error {
		for _, a := range d.agents {
			if activeOnly && !a.IsActive {
				continue
			}
			out = append(out, a)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]store.Agent, error) {
	if limit <= 0 {
		limit = 50
	}
	agents, err := s.ListAgents(ctx, nil, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].EloRating != agents[j].EloRating {
			return agents[i].EloRating > agents[j].EloRating
		}
		return agents[i].GamesWon > agents[j].GamesWon
	})
	if len(agents) > limit {
		agents = agents[:limit]
	}
	return agents, nil
}

func (s *Store) ApplyAgentStats(ctx context.Context, dbtx store.DBTransaction, id int64, delta store.AgentStatsDelta) error {
	return s.with(dbtx, func(d *dataset) error {
		a, ok := d.agents[id]
		if !ok {
			return store.ErrNotFound
		}
		a.GamesPlayed += delta.Played
		a.GamesWon += delta.Won
		a.GamesDrawn += delta.Drawn
		d.agents[id] = a
		return nil
	})
}

func (s *Store) AdjustEloRating(ctx context.Context, dbtx store.DBTransaction, id int64, delta float64) error {
	return s.with(dbtx, func(d *dataset) error {
		a, ok := d.agents[id]
		if !ok {
			return store.ErrNotFound
		}
		a.EloRating += delta
		d.agents[id] = a
		return nil
	})
}
