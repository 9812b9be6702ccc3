package handlers

import (
	"net/http"
	"strings"
	"testing"

	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"
)

func TestCreateAgent(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/agents", api.CreateAgentRequest{
		Name:   "  alpha ",
		Author: "ada",
		Kind:   "simple",
		Config: []byte(`{"seed":7}`),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rr.Code, rr.Body.String())
	}
	got := decode[api.Agent](t, rr)
	if got.ID == 0 || got.Name != "alpha" || got.Kind != "simple" {
		t.Errorf("unexpected agent %+v", got)
	}
	if !got.IsActive || got.EloRating != store.DefaultEloRating {
		t.Errorf("new agent should be active at the default rating, got %+v", got)
	}
	if !got.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}

func TestCreateAgent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"bad json", "{", "Invalid request body"},
		{"missing name", api.CreateAgentRequest{Kind: "simple"}, "required"},
		{"missing kind", api.CreateAgentRequest{Name: "a"}, "required"},
		{"unknown kind", api.CreateAgentRequest{Name: "a", Kind: "oracle"}, "Invalid agent"},
		{"process without command", api.CreateAgentRequest{Name: "a", Kind: "process", Config: []byte(`{}`)}, "command is required"},
		{"malformed config", api.CreateAgentRequest{Name: "a", Kind: "llm", Config: []byte(`{"model":1}`)}, "Invalid agent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(t, http.MethodPost, "/agents", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %q does not mention %q", rr.Body.String(), tt.want)
			}
		})
	}
}

func TestCreateAgent_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.agent(t, "alpha", store.DefaultEloRating)

	rr := f.do(t, http.MethodPost, "/agents", api.CreateAgentRequest{Name: "alpha", Kind: "simple"})
	if rr.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rr.Code)
	}
}

func TestListAgents(t *testing.T) {
	f := newFixture(t)
	f.agent(t, "alpha", 1500)
	retired := &store.Agent{Name: "old", Kind: store.AgentKindSimple, IsActive: false, EloRating: 1500}
	if err := f.store.CreateAgent(f.ctx, nil, retired); err != nil {
		t.Fatal(err)
	}

	all := decode[[]api.Agent](t, f.do(t, http.MethodGet, "/agents", nil))
	if len(all) != 2 {
		t.Errorf("got %d agents, want 2", len(all))
	}
	active := decode[[]api.Agent](t, f.do(t, http.MethodGet, "/agents?active=true", nil))
	if len(active) != 1 || active[0].Name != "alpha" {
		t.Errorf("active agents = %+v", active)
	}
}

func TestGetAgent(t *testing.T) {
	f := newFixture(t)
	id := f.agent(t, "alpha", 1500)
	if err := f.store.ApplyAgentStats(f.ctx, nil, id, store.AgentStatsDelta{Played: 4, Won: 2, Drawn: 1}); err != nil {
		t.Fatal(err)
	}

	rr := f.do(t, http.MethodGet, "/agents/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d", rr.Code)
	}
	got := decode[api.Agent](t, rr)
	if got.GamesLost != 1 || got.WinRate != 0.5 {
		t.Errorf("derived stats wrong: lost=%d win_rate=%v", got.GamesLost, got.WinRate)
	}

	if rr := f.do(t, http.MethodGet, "/agents/99", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown agent: got %d, want 404", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/agents/abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", rr.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	f.agent(t, "low", 1400)
	f.agent(t, "high", 1650)
	f.agent(t, "mid", 1500)

	board := decode[[]api.Agent](t, f.do(t, http.MethodGet, "/leaderboard?limit=2", nil))
	if len(board) != 2 {
		t.Fatalf("got %d entries, want 2", len(board))
	}
	if board[0].Name != "high" || board[1].Name != "mid" {
		t.Errorf("order = %s, %s", board[0].Name, board[1].Name)
	}
}
