package memory

import (
	"context"
	"sort"

	"gomokuplane/internal/store"
)

func (s *Store) CreateCheckpoint(ctx context.Context, dbtx store.DBTransaction, cp *store.Checkpoint) error {
	return s.with(dbtx, func(d *dataset) error {
		d.nextCheckpointID++
		cp.ID = d.nextCheckpointID
		c := *cp
		c.Data = append([]byte(nil), cp.Data...)
		d.checkpoints = append(d.checkpoints, c)
		return nil
	})
}

func (s *Store) GetLatestCheckpoint(ctx context.Context, dbtx store.DBTransaction, tournamentID int64) (*store.Checkpoint, error) {
	var out *store.Checkpoint
	err := s.with(dbtx, func(d *dataset) error {
		for _, cp := range d.checkpoints {
			if cp.TournamentID != tournamentID {
				continue
			}
			if out == nil || newerCheckpoint(cp, *out) {
				c := cp
				out = &c
			}
		}
		if out == nil {
			return store.ErrNotFound
		}
		return nil
	})
	return out, err
}

func newerCheckpoint(a, b store.Checkpoint) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *Store) PruneCheckpoints(ctx context.Context, dbtx store.DBTransaction, keep int) (int64, error) {
	var pruned int64
	err := s.with(dbtx, func(d *dataset) error {
		byTournament := make(map[int64][]store.Checkpoint)
		for _, cp := range d.checkpoints {
			byTournament[cp.TournamentID] = append(byTournament[cp.TournamentID], cp)
		}
		drop := make(map[int64]bool)
		for _, cps := range byTournament {
			sort.Slice(cps, func(a, b int) bool { return newerCheckpoint(cps[a], cps[b]) })
			for i := keep; i < len(cps); i++ {
				drop[cps[i].ID] = true
			}
		}
		kept := d.checkpoints[:0]
		for _, cp := range d.checkpoints {
			if drop[cp.ID] {
				pruned++
				continue
			}
			kept = append(kept, cp)
		}
		d.checkpoints = kept
		return nil
	})
	return pruned, err
}
