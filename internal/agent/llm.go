package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gomokuplane/internal/gomoku"
	"gomokuplane/internal/llm"
)

const systemPrompt = `You are an expert Gomoku (Five in a Row) player. Your goal is to get %d of your pieces in a row (horizontally, vertically, or diagonally) while preventing your opponent from doing the same.

You must respond with valid JSON in this exact format, use ` + "```json" + ` to wrap your response:
` + "```json" + `
{
    "reasoning": "<brief explanation of your move>",
    "move": {"row": <row_number>, "col": <col_number>}
}
` + "```" + `

The row and col must be valid coordinates on the board (0-indexed). Always choose empty positions (marked with '.').`

var jsonBlock = regexp.MustCompile("(?s)```json(.+?)```")

// LLM asks a language model for each move. Unparseable or illegal answers fall
// back to the center or the first empty cell, so only transport errors reach the arena.
type LLM struct {
	client llm.Client
	logger *slog.Logger
}

// NewLLM creates an LLM agent.
func NewLLM(client llm.Client, logger *slog.Logger) *LLM {
	return &LLM{client: client, logger: logger}
}

func (a *LLM) Move(ctx context.Context, st gomoku.State) (gomoku.Move, error) {
	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, st.WinLength)},
		{Role: "user", Content: Prompt(st) + "\n\nPlease provide your next move as JSON."},
	}
	resp, err := a.client.Complete(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return gomoku.Move{}, ctx.Err()
		}
		a.logger.Warn("llm agent falling back after error", "error", err)
		return a.fallback(st)
	}

	m, err := ParseMove(resp)
	if err != nil {
		a.logger.Warn("could not parse llm response", "error", err, "response", resp)
		return a.fallback(st)
	}
	if !st.Board.Valid(m) {
		a.logger.Warn("llm proposed invalid move", "move", m.String())
		return a.fallback(st)
	}
	return m, nil
}

func (a *LLM) fallback(st gomoku.State) (gomoku.Move, error) {
	m, ok := fallbackMove(st.Board)
	if !ok {
		return gomoku.Move{}, fmt.Errorf("no legal moves")
	}
	return m, nil
}

// Prompt describes the position for a language model.
func Prompt(st gomoku.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current board state:\n%s\n", st.Board.String())
	fmt.Fprintf(&sb, "Current player: %s\n", st.ToMove.Symbol())
	fmt.Fprintf(&sb, "Move count: %d\n", len(st.History))
	if last, ok := st.LastMove(); ok {
		fmt.Fprintf(&sb, "Last move: %s at (%d, %d)\n", last.Player.Symbol(), last.Row, last.Col)
	}
	return sb.String()
}

type moveReply struct {
	Move *gomoku.Move `json:"move"`
}

// ParseMove extracts {"move": {"row": r, "col": c}} from a fenced json block,
// or from the whole response when no block is present.
func ParseMove(resp string) (gomoku.Move, error) {
	raw := strings.TrimSpace(resp)
	if m := jsonBlock.FindStringSubmatch(resp); m != nil {
		raw = strings.TrimSpace(m[1])
	}
	var reply moveReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return gomoku.Move{}, fmt.Errorf("invalid move json: %w", err)
	}
	if reply.Move == nil {
		return gomoku.Move{}, fmt.Errorf("response has no move")
	}
	return *reply.Move, nil
}
