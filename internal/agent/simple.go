package agent

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"gomokuplane/internal/gomoku"
)

// Simple takes the center when it is free and otherwise plays a random empty cell.
type Simple struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimple creates a Simple agent with a deterministic seed.
func NewSimple(seed int64) *Simple {
	return &Simple{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simple) Move(ctx context.Context, st gomoku.State) (gomoku.Move, error) {
	b := st.Board
	center := gomoku.Move{Row: b.Size() / 2, Col: b.Size() / 2}
	if b.Valid(center) {
		return center, nil
	}
	legal := b.LegalMoves()
	if len(legal) == 0 {
		return gomoku.Move{}, errors.New("no legal moves")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return legal[s.rng.Intn(len(legal))], nil
}
