package gomoku

import (
	"errors"
	"testing"
)

func TestBoard_Place(t *testing.T) {
	b := NewBoard(8)

	if err := b.Place(Move{3, 3}, Black); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Place(Move{3, 3}, White); !errors.Is(err, ErrOccupied) {
		t.Errorf("expected ErrOccupied, got %v", err)
	}
	if err := b.Place(Move{8, 0}, White); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := b.Place(Move{-1, 2}, White); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if got := b.At(Move{3, 3}); got != Black {
		t.Errorf("At() = %v, want black", got)
	}
	if len(b.LegalMoves()) != 63 {
		t.Errorf("expected 63 legal moves, got %d", len(b.LegalMoves()))
	}
}

func TestBoard_Full(t *testing.T) {
	b := NewBoard(2)
	for _, m := range []Move{{0, 0}, {0, 1}, {1, 0}} {
		b.Place(m, Black)
	}
	if b.Full() {
		t.Fatal("board with an empty cell reported full")
	}
	b.Place(Move{1, 1}, White)
	if !b.Full() {
		t.Fatal("expected full board")
	}
}

func TestBoard_CloneIsIndependent(t *testing.T) {
	b := NewBoard(5)
	c := b.Clone()
	c.Place(Move{0, 0}, Black)
	if b.At(Move{0, 0}) != Empty {
		t.Fatal("clone shares cells with original")
	}
}

func TestGame_Winner(t *testing.T) {
	tests := []struct {
		name  string
		black []Move
		white []Move
	}{
		{
			name:  "horizontal",
			black: []Move{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}},
			white: []Move{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
		},
		{
			name:  "vertical",
			black: []Move{{0, 7}, {1, 7}, {2, 7}, {3, 7}, {4, 7}},
			white: []Move{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		},
		{
			name:  "diagonal",
			black: []Move{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}},
			white: []Move{{0, 5}, {0, 6}, {0, 7}, {1, 7}},
		},
		{
			name:  "anti-diagonal filled from the middle",
			black: []Move{{2, 4}, {0, 6}, {4, 2}, {1, 5}, {3, 3}},
			white: []Move{{7, 0}, {7, 1}, {7, 2}, {7, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGame(8, 5)
			for i := range tt.black {
				if err := g.Play(tt.black[i]); err != nil {
					t.Fatalf("black move %d: %v", i, err)
				}
				if i < len(tt.white) {
					if g.Over() {
						t.Fatalf("game over too early after black move %d", i)
					}
					if err := g.Play(tt.white[i]); err != nil {
						t.Fatalf("white move %d: %v", i, err)
					}
				}
			}
			if g.Winner() != Black {
				t.Fatalf("Winner() = %v, want black", g.Winner())
			}
			if len(g.WinningLine()) != 5 {
				t.Errorf("expected winning line of 5, got %v", g.WinningLine())
			}
		})
	}
}

func TestGame_RejectedMoveKeepsTurn(t *testing.T) {
	g := NewGame(8, 5)
	g.Play(Move{0, 0})
	if err := g.Play(Move{0, 0}); err == nil {
		t.Fatal("expected error for occupied cell")
	}
	if g.ToMove() != White {
		t.Errorf("ToMove() = %v, want white", g.ToMove())
	}
	if len(g.History()) != 1 {
		t.Errorf("expected 1 placement, got %d", len(g.History()))
	}
}

func TestGame_StateIsSnapshot(t *testing.T) {
	g := NewGame(8, 5)
	g.Play(Move{4, 4})

	st := g.State()
	st.Board.Place(Move{0, 0}, White)

	if g.Board().At(Move{0, 0}) != Empty {
		t.Fatal("state mutation leaked into game")
	}
	last, ok := st.LastMove()
	if !ok || last.Move != (Move{4, 4}) || last.Player != Black {
		t.Errorf("LastMove() = %+v, %v", last, ok)
	}
}

func TestBoard_String(t *testing.T) {
	b := NewBoard(3)
	b.Place(Move{1, 1}, Black)
	want := "    0  1  2 \n 0  .  .  . \n 1  .  X  . \n 2  .  .  . \n"
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
