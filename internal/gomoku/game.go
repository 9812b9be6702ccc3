package gomoku

// Placement is one stone in the move history.
type Placement struct {
	Move
	Player Player `json:"player"`
}

// State is the read-only view handed to agents.
type State struct {
	Board     *Board
	ToMove    Player
	History   []Placement
	WinLength int
}

// LastMove returns the most recent placement, if any.
func (s State) LastMove() (Placement, bool) {
	if len(s.History) == 0 {
		return Placement{}, false
	}
	return s.History[len(s.History)-1], true
}

// Game applies moves alternately, black first.
type Game struct {
	board     *Board
	toMove    Player
	history   []Placement
	winLength int
	winner    Player
	line      []Move
}

// NewGame starts an empty game.
func NewGame(size, winLength int) *Game {
	if winLength <= 0 {
		winLength = DefaultWinLength
	}
	return &Game{board: NewBoard(size), toMove: Black, winLength: winLength}
}

// State returns a snapshot agents may mutate freely.
func (g *Game) State() State {
	return State{
		Board:     g.board.Clone(),
		ToMove:    g.toMove,
		History:   append([]Placement(nil), g.history...),
		WinLength: g.winLength,
	}
}

func (g *Game) ToMove() Player { return g.toMove }
func (g *Game) Board() *Board { return g.board }
func (g *Game) History() []Placement { return g.history }
func (g *Game) Winner() Player { return g.winner }
func (g *Game) WinningLine() []Move { return g.line }
func (g *Game) Over() bool { return g.winner != Empty || g.board.Full() }

// Play places the current player's stone at m and passes the turn.
// A rejected move leaves the game unchanged.
func (g *Game) Play(m Move) error {
	p := g.toMove
	if err := g.board.Place(m, p); err != nil {
		return err
	}
	g.history = append(g.history, Placement{Move: m, Player: p})
	if line := g.board.LineThrough(m); len(line) >= g.winLength {
		g.winner = p
		g.line = line
	}
	g.toMove = p.Opponent()
	return nil
}
