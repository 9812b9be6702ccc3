package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gomokuplane/internal/gomoku"
	"gomokuplane/internal/llm"
	"gomokuplane/internal/logger"
	"gomokuplane/internal/store"
)

func stateWith(size int, moves ...gomoku.Move) gomoku.State {
	g := gomoku.NewGame(size, 5)
	for _, m := range moves {
		g.Play(m)
	}
	return g.State()
}

func TestSimple_PrefersCenter(t *testing.T) {
	a := NewSimple(1)
	m, err := a.Move(context.Background(), stateWith(8))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if m != (gomoku.Move{Row: 4, Col: 4}) {
		t.Errorf("Move() = %v, want center", m)
	}
}

func TestSimple_RandomLegalWhenCenterTaken(t *testing.T) {
	a := NewSimple(7)
	st := stateWith(8, gomoku.Move{Row: 4, Col: 4})
	for i := 0; i < 20; i++ {
		m, err := a.Move(context.Background(), st)
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if !st.Board.Valid(m) {
			t.Fatalf("Move() = %v is not legal", m)
		}
	}
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestLLM_Move(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  gomoku.Move
	}{
		{
			name:  "fenced json",
			reply: "I'll play here.\n```json\n{\"reasoning\": \"block\", \"move\": {\"row\": 2, \"col\": 3}}\n```",
			want:  gomoku.Move{Row: 2, Col: 3},
		},
		{
			name:  "bare json",
			reply: `{"move": {"row": 0, "col": 0}}`,
			want:  gomoku.Move{Row: 0, Col: 0},
		},
		{
			name:  "garbage falls back to center",
			reply: "no idea",
			want:  gomoku.Move{Row: 4, Col: 4},
		},
		{
			name:  "occupied cell falls back",
			reply: `{"move": {"row": 7, "col": 7}}`,
			want:  gomoku.Move{Row: 4, Col: 4},
		},
		{
			name: "client error falls back",
			err:  llm.ErrRateLimited,
			want: gomoku.Move{Row: 4, Col: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLLM{reply: tt.reply, err: tt.err}
			a := NewLLM(client, logger.Discard())
			m, err := a.Move(context.Background(), stateWith(8, gomoku.Move{Row: 7, Col: 7}))
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if m != tt.want {
				t.Errorf("Move() = %v, want %v", m, tt.want)
			}
		})
	}
}

func TestLLM_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewLLM(&fakeLLM{err: context.Canceled}, logger.Discard())
	if _, err := a.Move(ctx, stateWith(8)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(stateWith(8, gomoku.Move{Row: 3, Col: 5}))
	for _, want := range []string{"Current player: O", "Move count: 1", "Last move: X at (3, 5)"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestProcess_Move(t *testing.T) {
	p, err := NewProcess(ProcessConfig{
		Command: []string{"sh", "-c", `echo '{"row": 1, "col": 2}'`},
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	m, err := p.Move(context.Background(), stateWith(8))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if m != (gomoku.Move{Row: 1, Col: 2}) {
		t.Errorf("Move() = %v", m)
	}
}

func TestProcess_EmptyEnvironment(t *testing.T) {
	t.Setenv("GOMOKU_SECRET", "leak")
	p, _ := NewProcess(ProcessConfig{
		Command: []string{"sh", "-c", `if [ -n "$GOMOKU_SECRET" ]; then exit 3; fi; echo '{"move": {"row": 0, "col": 1}}'`},
		WorkDir: t.TempDir(),
	})
	m, err := p.Move(context.Background(), stateWith(8))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if m != (gomoku.Move{Row: 0, Col: 1}) {
		t.Errorf("Move() = %v", m)
	}
}

func TestProcess_Errors(t *testing.T) {
	if _, err := NewProcess(ProcessConfig{}); err == nil || !strings.Contains(err.Error(), "command is required") {
		t.Errorf("expected command is required, got %v", err)
	}
	if _, err := NewProcess(ProcessConfig{Command: []string{"nonexistent-binary-xyz"}}); err == nil {
		t.Error("expected error for missing binary")
	}

	p, _ := NewProcess(ProcessConfig{Command: []string{"sh", "-c", "exit 1"}, WorkDir: t.TempDir()})
	if _, err := p.Move(context.Background(), stateWith(8)); err == nil {
		t.Error("expected error for failing process")
	}

	slow, _ := NewProcess(ProcessConfig{Command: []string{"sh", "-c", "while :; do :; done"}, WorkDir: t.TempDir()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := slow.Move(ctx, stateWith(8)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestFactory_Build(t *testing.T) {
	f := NewFactory(llm.DefaultConfig(), logger.Discard())
	var built []llm.Config
	f.newClient = func(c llm.Config) (llm.Client, error) {
		built = append(built, c)
		return &fakeLLM{reply: `{"move": {"row": 0, "col": 0}}`}, nil
	}

	simple, err := f.Build(store.Agent{Name: "s", Kind: store.AgentKindSimple, Config: json.RawMessage(`{"seed": 3}`)})
	if err != nil {
		t.Fatalf("Build simple: %v", err)
	}
	if _, ok := simple.(*Simple); !ok {
		t.Errorf("expected *Simple, got %T", simple)
	}

	cfg := json.RawMessage(`{"model": "gpt-4o", "max_tokens": 64}`)
	if _, err := f.Build(store.Agent{Name: "l1", Kind: store.AgentKindLLM, Config: cfg}); err != nil {
		t.Fatalf("Build llm: %v", err)
	}
	if _, err := f.Build(store.Agent{Name: "l2", Kind: store.AgentKindLLM, Config: cfg}); err != nil {
		t.Fatalf("Build llm: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("expected one shared client, built %d", len(built))
	}
	if built[0].Model != "gpt-4o" || built[0].MaxTokens != 64 || built[0].Temperature != 0.7 {
		t.Errorf("unexpected merged config: %+v", built[0])
	}

	_, err = f.Build(store.Agent{Name: "x", Kind: "wasm"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}

	_, err = f.Build(store.Agent{Name: "bad", Kind: store.AgentKindSimple, Config: json.RawMessage(`{`)})
	if err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(store.AgentKindProcess, json.RawMessage(`{}`)); err == nil {
		t.Error("expected missing command to be rejected")
	}
	if err := ValidateConfig(store.AgentKindLLM, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateConfig("nope", nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
