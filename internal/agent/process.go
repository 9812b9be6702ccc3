package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gomokuplane/internal/gomoku"
)

// ProcessConfig is the kind-specific config of a process agent.
type ProcessConfig struct {
	Command []string `json:"command"`
	WorkDir string   `json:"work_dir,omitempty"`
}

// Process runs an operator-provided executable once per move. The request is
// written to stdin as JSON and the move is read from stdout. The child gets an
// empty environment and is killed when ctx ends.
type Process struct {
	config ProcessConfig
}

// ProcessRequest is the stdin payload.
type ProcessRequest struct {
	Board     [][]string         `json:"board"`
	BoardSize int                `json:"board_size"`
	ToMove    string             `json:"to_move"`
	WinLength int                `json:"win_length"`
	History   []gomoku.Placement `json:"history"`
}

// NewProcess validates config and creates the agent.
func NewProcess(config ProcessConfig) (*Process, error) {
	if len(config.Command) == 0 {
		return nil, errors.New("command is required")
	}
	if config.WorkDir == "" {
		config.WorkDir = filepath.Join(os.TempDir(), "gomokuplane", "agents")
	}
	if _, err := exec.LookPath(config.Command[0]); err != nil {
		return nil, fmt.Errorf("agent command not found: %w", err)
	}
	return &Process{config: config}, nil
}

func (p *Process) Move(ctx context.Context, st gomoku.State) (gomoku.Move, error) {
	if err := os.MkdirAll(p.config.WorkDir, 0o755); err != nil {
		return gomoku.Move{}, fmt.Errorf("failed to create work dir: %w", err)
	}

	req, err := json.Marshal(ProcessRequest{
		Board:     st.Board.Rows(),
		BoardSize: st.Board.Size(),
		ToMove:    st.ToMove.Symbol(),
		WinLength: st.WinLength,
		History:   st.History,
	})
	if err != nil {
		return gomoku.Move{}, err
	}

	cmd := exec.CommandContext(ctx, p.config.Command[0], p.config.Command[1:]...)
	cmd.Dir = p.config.WorkDir
	cmd.Env = []string{}
	cmd.Stdin = bytes.NewReader(req)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return gomoku.Move{}, ctx.Err()
		}
		return gomoku.Move{}, fmt.Errorf("agent process failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return parseProcessReply(stdout.Bytes())
}

// parseProcessReply accepts {"row": r, "col": c} or {"move": {"row": r, "col": c}}.
func parseProcessReply(out []byte) (gomoku.Move, error) {
	var reply struct {
		Row  *int         `json:"row"`
		Col  *int         `json:"col"`
		Move *gomoku.Move `json:"move"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(out), &reply); err != nil {
		return gomoku.Move{}, fmt.Errorf("invalid agent output: %w", err)
	}
	switch {
	case reply.Move != nil:
		return *reply.Move, nil
	case reply.Row != nil && reply.Col != nil:
		return gomoku.Move{Row: *reply.Row, Col: *reply.Col}, nil
	}
	return gomoku.Move{}, errors.New("agent output has no move")
}
