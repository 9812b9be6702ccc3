// Package arena plays a single game between two agents.
package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gomokuplane/internal/agent"
	"gomokuplane/internal/gomoku"
)

const DefaultMoveTimeout = 30 * time.Second

// Termination names how a game ended.
type Termination string

const (
	FiveInRow   Termination = "five_in_row"
	BoardFull   Termination = "board_full"
	InvalidMove Termination = "invalid_move"
	Timeout     Termination = "timeout"
	AgentError  Termination = "agent_error"
	Aborted     Termination = "aborted"
)

// Forfeit reports whether the game was decided by a rule violation rather than on the board.
func (t Termination) Forfeit() bool {
	return t == InvalidMove || t == Timeout || t == AgentError
}

// MoveKind classifies the answer an agent gave for one turn.
type MoveKind int

const (
	KindMove MoveKind = iota
	KindInvalidMove
	KindTimeout
	KindAgentError
)

func (k MoveKind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindInvalidMove:
		return "invalid_move"
	case KindTimeout:
		return "timeout"
	case KindAgentError:
		return "agent_error"
	}
	return "unknown"
}

// MoveOutcome is one agent answer.
type MoveOutcome struct {
	Kind    MoveKind
	Move    gomoku.Move
	Err     error
	Elapsed time.Duration
}

// LogEntry is one line of the per-move game log.
type LogEntry struct {
	Number    int    `json:"move_number"`
	Player    string `json:"player"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a finished game.
type Result struct {
	// Winner is gomoku.Empty for a draw.
	Winner      gomoku.Player
	Termination Termination
	Reason      string
	Moves       []gomoku.Placement
	Log         []LogEntry
	FinalBoard  *gomoku.Board
	WinningLine []gomoku.Move
	Duration    time.Duration
}

// Config sets the rules of every game.
type Config struct {
	BoardSize   int
	WinLength   int
	MoveTimeout time.Duration
	// OnTimeout is called for every move that exceeds MoveTimeout.
	OnTimeout func(ctx context.Context)
}

// Arena runs games.
type Arena struct {
	config Config
}

// New creates an Arena.
func New(config Config) *Arena {
	if config.BoardSize <= 0 {
		config.BoardSize = gomoku.DefaultBoardSize
	}
	if config.WinLength <= 0 {
		config.WinLength = gomoku.DefaultWinLength
	}
	if config.MoveTimeout <= 0 {
		config.MoveTimeout = DefaultMoveTimeout
	}
	return &Arena{config: config}
}

// Play runs black against white to completion.
// Agent failures end the game as a forfeit; an error is returned only when ctx is
// cancelled, together with the partial result.
func (a *Arena) Play(ctx context.Context, black, white agent.Agent) (*Result, error) {
	game := gomoku.NewGame(a.config.BoardSize, a.config.WinLength)
	players := map[gomoku.Player]agent.Agent{gomoku.Black: black, gomoku.White: white}
	res := &Result{}
	start := time.Now()

	finish := func(winner gomoku.Player, term Termination, reason string) *Result {
		res.Winner = winner
		res.Termination = term
		res.Reason = reason
		res.Moves = game.History()
		res.FinalBoard = game.Board().Clone()
		res.WinningLine = game.WinningLine()
		res.Duration = time.Since(start)
		return res
	}

	for {
		mover := game.ToMove()
		out, err := a.ask(ctx, players[mover], game.State())
		if err != nil {
			return finish(gomoku.Empty, Aborted, "game aborted"), err
		}

		entry := LogEntry{
			Number:    len(game.History()) + 1,
			Player:    mover.String(),
			Row:       out.Move.Row,
			Col:       out.Move.Col,
			ElapsedMS: out.Elapsed.Milliseconds(),
			Outcome:   out.Kind.String(),
		}
		if out.Err != nil {
			entry.Error = out.Err.Error()
		}
		res.Log = append(res.Log, entry)

		switch out.Kind {
		case KindTimeout:
			if a.config.OnTimeout != nil {
				a.config.OnTimeout(ctx)
			}
			return finish(mover.Opponent(), Timeout, fmt.Sprintf("%s exceeded %s", mover, a.config.MoveTimeout)), nil
		case KindAgentError:
			return finish(mover.Opponent(), AgentError, fmt.Sprintf("%s agent error: %v", mover, out.Err)), nil
		case KindInvalidMove:
			return finish(mover.Opponent(), InvalidMove, fmt.Sprintf("%s played invalid move %s", mover, out.Move)), nil
		}

		if err := game.Play(out.Move); err != nil {
			return finish(mover.Opponent(), InvalidMove, err.Error()), nil
		}
		if game.Winner() != gomoku.Empty {
			return finish(game.Winner(), FiveInRow, "five in a row"), nil
		}
		if game.Board().Full() {
			return finish(gomoku.Empty, BoardFull, "board full"), nil
		}
	}
}

type reply struct {
	move gomoku.Move
	err  error
}

// ask gets one move under the move timeout. The agent runs on its own goroutine so
// one that ignores its context still loses on time.
func (a *Arena) ask(ctx context.Context, ag agent.Agent, st gomoku.State) (MoveOutcome, error) {
	moveCtx, cancel := context.WithTimeout(ctx, a.config.MoveTimeout)
	defer cancel()

	board := st.Board.Clone()
	ch := make(chan reply, 1)
	started := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("agent panic: %v", r)}
			}
		}()
		m, err := ag.Move(moveCtx, st)
		ch <- reply{move: m, err: err}
	}()

	select {
	case r := <-ch:
		out := MoveOutcome{Move: r.move, Err: r.err, Elapsed: time.Since(started)}
		switch {
		case ctx.Err() != nil:
			return out, ctx.Err()
		case r.err != nil && errors.Is(moveCtx.Err(), context.DeadlineExceeded):
			out.Kind = KindTimeout
		case r.err != nil:
			out.Kind = KindAgentError
		case !board.Valid(r.move):
			out.Kind = KindInvalidMove
		default:
			out.Kind = KindMove
		}
		return out, nil
	case <-moveCtx.Done():
		if ctx.Err() != nil {
			return MoveOutcome{}, ctx.Err()
		}
		return MoveOutcome{Kind: KindTimeout, Err: moveCtx.Err(), Elapsed: time.Since(started)}, nil
	}
}
