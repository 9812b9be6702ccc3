// Package render turns finished games into JSON logs, HTML pages and text boards.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gomokuplane/internal/arena"
	"gomokuplane/internal/gomoku"
)

// Metadata identifies a game in its log.
type Metadata struct {
	TournamentID int64     `json:"tournament_id"`
	Tournament   string    `json:"tournament"`
	Black        string    `json:"black"`
	White        string    `json:"white"`
	BoardSize    int       `json:"board_size"`
	WinLength    int       `json:"win_length"`
	Timestamp    time.Time `json:"timestamp"`
}

// Outcome is the result section of a game log.
type Outcome struct {
	// Winner is the winning agent name, empty for a draw.
	Winner          string           `json:"winner,omitempty"`
	WinnerColor     string           `json:"winner_color,omitempty"`
	Termination     string           `json:"termination"`
	Reason          string           `json:"reason"`
	MoveCount       int              `json:"move_count"`
	DurationMS      int64            `json:"duration_ms"`
	Moves           []arena.LogEntry `json:"moves"`
	WinningSequence []gomoku.Move    `json:"winning_sequence"`
	FinalBoard      []string         `json:"final_board"`
}

// Document is the persisted JSON game log.
type Document struct {
	Metadata Metadata `json:"game_metadata"`
	Result   Outcome  `json:"game_result"`
}

// NewDocument builds the log of a finished game.
func NewDocument(meta Metadata, res *arena.Result) Document {
	out := Outcome{
		Termination:     string(res.Termination),
		Reason:          res.Reason,
		MoveCount:       len(res.Moves),
		DurationMS:      res.Duration.Milliseconds(),
		Moves:           res.Log,
		WinningSequence: res.WinningLine,
	}
	switch res.Winner {
	case gomoku.Black:
		out.Winner, out.WinnerColor = meta.Black, res.Winner.String()
	case gomoku.White:
		out.Winner, out.WinnerColor = meta.White, res.Winner.String()
	}
	if out.Moves == nil {
		out.Moves = []arena.LogEntry{}
	}
	if out.WinningSequence == nil {
		out.WinningSequence = []gomoku.Move{}
	}
	if res.FinalBoard != nil {
		for _, row := range res.FinalBoard.Rows() {
			out.FinalBoard = append(out.FinalBoard, strings.Join(row, ""))
		}
		if meta.BoardSize == 0 {
			meta.BoardSize = res.FinalBoard.Size()
		}
	}
	return Document{Metadata: meta, Result: out}
}

// JSON encodes the document indented.
func JSON(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode game log: %w", err)
	}
	return data, nil
}

// Banner is the one-line result summary.
func (d Document) Banner() string {
	if d.Result.Winner == "" {
		return "Draw - " + d.Result.Reason
	}
	return fmt.Sprintf("Winner: %s (%s) - %s", d.Result.Winner, d.Result.WinnerColor, d.Result.Reason)
}
