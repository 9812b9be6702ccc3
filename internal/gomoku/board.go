// Package gomoku implements the five-in-a-row board rules.
package gomoku

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfBounds = errors.New("move out of bounds")
	ErrOccupied    = errors.New("cell is occupied")
)

const (
	DefaultBoardSize = 8
	DefaultWinLength = 5
)

// Player is a stone color. The zero value is an empty cell.
type Player int8

const (
	Empty Player = iota
	Black
	White
)

// Opponent returns the other color.
func (p Player) Opponent() Player {
	switch p {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

// Symbol is the board glyph: X for black, O for white, . for empty.
func (p Player) Symbol() string {
	switch p {
	case Black:
		return "X"
	case White:
		return "O"
	}
	return "."
}

func (p Player) String() string {
	switch p {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return "empty"
}

// Move is a board coordinate.
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (m Move) String() string {
	return fmt.Sprintf("(%d, %d)", m.Row, m.Col)
}

// Board is a square grid of stones.
type Board struct {
	size  int
	cells []Player
}

// NewBoard returns an empty size×size board.
func NewBoard(size int) *Board {
	if size <= 0 {
		size = DefaultBoardSize
	}
	return &Board{size: size, cells: make([]Player, size*size)}
}

func (b *Board) Size() int { return b.size }

// InBounds reports whether m lies on the board.
func (b *Board) InBounds(m Move) bool {
	return m.Row >= 0 && m.Row < b.size && m.Col >= 0 && m.Col < b.size
}

// At returns the stone at m, or Empty when m is off the board.
func (b *Board) At(m Move) Player {
	if !b.InBounds(m) {
		return Empty
	}
	return b.cells[m.Row*b.size+m.Col]
}

// Valid reports whether a stone may be placed at m.
func (b *Board) Valid(m Move) bool {
	return b.InBounds(m) && b.At(m) == Empty
}

// Place puts p's stone at m.
func (b *Board) Place(m Move, p Player) error {
	if !b.InBounds(m) {
		return fmt.Errorf("%s: %w", m, ErrOutOfBounds)
	}
	if b.At(m) != Empty {
		return fmt.Errorf("%s: %w", m, ErrOccupied)
	}
	b.cells[m.Row*b.size+m.Col] = p
	return nil
}

// Full reports whether no empty cell remains.
func (b *Board) Full() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

// LegalMoves lists empty cells in row-major order.
func (b *Board) LegalMoves() []Move {
	var moves []Move
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if b.cells[r*b.size+c] == Empty {
				moves = append(moves, Move{Row: r, Col: c})
			}
		}
	}
	return moves
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	return &Board{size: b.size, cells: append([]Player(nil), b.cells...)}
}

// Rows returns the board as rows of symbols.
func (b *Board) Rows() [][]string {
	rows := make([][]string, b.size)
	for r := range rows {
		rows[r] = make([]string, b.size)
		for c := range rows[r] {
			rows[r][c] = b.cells[r*b.size+c].Symbol()
		}
	}
	return rows
}

// String renders the board with row and column coordinates.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < b.size; c++ {
		fmt.Fprintf(&sb, "%2d ", c)
	}
	sb.WriteByte('\n')
	for r := 0; r < b.size; r++ {
		fmt.Fprintf(&sb, "%2d ", r)
		for c := 0; c < b.size; c++ {
			fmt.Fprintf(&sb, " %s ", b.cells[r*b.size+c].Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// LineThrough returns the longest same-colored run through m, in board order.
// It is empty when m holds no stone.
func (b *Board) LineThrough(m Move) []Move {
	p := b.At(m)
	if p == Empty {
		return nil
	}
	var best []Move
	for _, d := range directions {
		start := m
		for next := (Move{start.Row - d[0], start.Col - d[1]}); b.At(next) == p; next = (Move{next.Row - d[0], next.Col - d[1]}) {
			start = next
		}
		var line []Move
		for cur := start; b.At(cur) == p; cur = (Move{cur.Row + d[0], cur.Col + d[1]}) {
			line = append(line, cur)
		}
		if len(line) > len(best) {
			best = line
		}
	}
	return best
}
