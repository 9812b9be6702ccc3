// Package agent defines Gomoku players and builds them from registered agent records.
package agent

import (
	"context"

	"gomokuplane/internal/gomoku"
)

// Agent chooses a move for the player to move in st.
// Implementations must honor ctx; the arena treats a late answer as a timeout.
type Agent interface {
	Move(ctx context.Context, st gomoku.State) (gomoku.Move, error)
}

// Func adapts a function to Agent.
type Func func(ctx context.Context, st gomoku.State) (gomoku.Move, error)

func (f Func) Move(ctx context.Context, st gomoku.State) (gomoku.Move, error) {
	return f(ctx, st)
}

// fallbackMove plays the center when free, otherwise the first empty cell.
func fallbackMove(b *gomoku.Board) (gomoku.Move, bool) {
	center := gomoku.Move{Row: b.Size() / 2, Col: b.Size() / 2}
	if b.Valid(center) {
		return center, true
	}
	legal := b.LegalMoves()
	if len(legal) == 0 {
		return gomoku.Move{}, false
	}
	return legal[0], true
}
