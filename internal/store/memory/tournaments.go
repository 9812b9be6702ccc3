package memory

import (
	"context"
	"sort"

	"gomokuplane/internal/store"
)

func (s *Store) CreateTournament(ctx context.Context, dbtx store.DBTransaction, t *store.Tournament) error {
	return s.with(dbtx, func(d *dataset) error {
		d.nextTournamentID++
		t.ID = d.nextTournamentID
		cp := *t
		cp.AgentIDs = append([]int64(nil), t.AgentIDs...)
		d.tournaments[t.ID] = cp
		return nil
	})
}

func (s *Store) GetTournament(ctx context.Context, dbtx store.DBTransaction, id int64) (*store.Tournament, error) {
	var out *store.Tournament
	err := s.with(dbtx, func(d *dataset) error {
		t, ok := d.tournaments[id]
		if !ok {
			return store.ErrNotFound
		}
		t.AgentIDs = append([]int64(nil), t.AgentIDs...)
		out = &t
		return nil
	})
	return out, err
}

func (s *Store) UpdateTournament(ctx context.Context, dbtx store.DBTransaction, t *store.Tournament) error {
	return s.with(dbtx, func(d *dataset) error {
		existing, ok := d.tournaments[t.ID]
		if !ok {
			return store.ErrNotFound
		}
		existing.Status = t.Status
		existing.TotalGames = t.TotalGames
		existing.CompletedGames = t.CompletedGames
		existing.StartedAt = t.StartedAt
		existing.CompletedAt = t.CompletedAt
		d.tournaments[t.ID] = existing
		return nil
	})
}

func (s *Store) IncrementCompletedGames(ctx context.Context, dbtx store.DBTransaction, id int64) error {
	return s.with(dbtx, func(d *dataset) error {
		t, ok := d.tournaments[id]
		if !ok {
			return store.ErrNotFound
		}
		t.CompletedGames++
		d.tournaments[id] = t
		return nil
	})
}

// DeleteTournament cascades to jobs, games and checkpoints.
func (s *Store) DeleteTournament(ctx context.Context, dbtx store.DBTransaction, id int64) error {
	return s.with(dbtx, func(d *dataset) error {
		if _, ok := d.tournaments[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.tournaments, id)
		for jobID, j := range d.jobs {
			if j.TournamentID == id {
				delete(d.jobs, jobID)
				delete(d.jobSeq, jobID)
			}
		}
		for gameID, g := range d.games {
			if g.TournamentID == id {
				delete(d.games, gameID)
			}
		}
		kept := d.checkpoints[:0]
		for _, cp := range d.checkpoints {
			if cp.TournamentID != id {
				kept = append(kept, cp)
			}
		}
		d.checkpoints = kept
		return nil
	})
}

func (s *Store) ListTournaments(ctx context.Context, dbtx store.DBTransaction, filter store.TournamentFilter) ([]store.Tournament, error) {
	var out []store.Tournament
	err := s.with(dbtx, func(d *dataset) error {
		for _, t := range d.tournaments {
			if len(filter.Statuses) > 0 && !containsTournamentStatus(filter.Statuses, t.Status) {
				continue
			}
			t.AgentIDs = append([]int64(nil), t.AgentIDs...)
			out = append(out, t)
		}
		sort.Slice(out, func(a, b int) bool {
			if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
				return out[a].CreatedAt.After(out[b].CreatedAt)
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

func containsTournamentStatus(statuses []store.TournamentStatus, st store.TournamentStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Store) ListOrphanedTournaments(ctx context.Context, dbtx store.DBTransaction) ([]store.Tournament, error) {
	var out []store.Tournament
	err := s.with(dbtx, func(d *dataset) error {
		for _, t := range d.tournaments {
			if t.Status != store.TournamentStatusRunning {
				continue
			}
			active := false
			for _, j := range d.jobs {
				if j.TournamentID == t.ID && j.Status.Active() {
					active = true
					break
				}
			}
			if !active {
				t.AgentIDs = append([]int64(nil), t.AgentIDs...)
				out = append(out, t)
			}
		}
		sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
		return nil
	})
	return out, err
}

func (s *Store) CountTournamentsByStatus(ctx context.Context) (map[store.TournamentStatus]int, error) {
	counts := make(map[store.TournamentStatus]int)
	err := s.with(nil, func(d *dataset) error {
		for _, t := range d.tournaments {
			counts[t.Status]++
		}
		return nil
	})
	return counts, err
}
