package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gomokuplane/pkg/api"
)

func TestAgentsCreate_Success(t *testing.T) {
	resetViper()
	defer resetFlags(agentsCreateCmd, "name", "kind", "agent-config")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/agents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer admin" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got: %s", r.Header.Get("Content-Type"))
		}

		var req api.CreateAgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if req.Name != "bot" || req.Kind != "process" {
			t.Errorf("unexpected request %+v", req)
		}
		if string(req.Config) != `{"command":["./bot"]}` {
			t.Errorf("config = %s", req.Config)
		}
		writeJSON(w, http.StatusCreated, api.Agent{ID: 9, Name: req.Name, Kind: req.Kind})
	}))
	defer server.Close()

	out := execute(t, server, "admin", "agents", "create", "--name", "bot", "--kind", "process", "--agent-config", `{"command":["./bot"]}`)
	if !strings.Contains(out, "Agent registered") || !strings.Contains(out, "ID: 9") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestAgentsCreate_Validation(t *testing.T) {
	resetViper()
	defer resetFlags(agentsCreateCmd, "name", "kind", "agent-config")

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing name", []string{"agents", "create", "--kind", "simple"}, "--name is required"},
		{"missing kind", []string{"agents", "create", "--name", "x", "--kind", ""}, "--kind is required"},
		{"bad config", []string{"agents", "create", "--name", "x", "--kind", "llm", "--agent-config", "{"}, "must be valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(agentsCreateCmd, "name", "kind", "agent-config")
			out := execute(t, server, "", tt.args...)
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, out)
			}
		})
	}
	if called {
		t.Error("server should not be called on invalid input")
	}
}

func TestAgentsCreate_Conflict(t *testing.T) {
	resetViper()
	defer resetFlags(agentsCreateCmd, "name", "kind")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: "Agent name already exists"})
	}))
	defer server.Close()

	out := execute(t, server, "admin", "agents", "create", "--name", "dup", "--kind", "simple")
	if !strings.Contains(out, "Error (409): Agent name already exists") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestAgentsList(t *testing.T) {
	resetViper()
	defer resetFlags(agentsListCmd, "active")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") != "true" {
			t.Errorf("expected active=true, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("no token configured, got %q", r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, []api.Agent{
			{ID: 1, Name: "greedy", Kind: "simple", IsActive: true, GamesPlayed: 4, GamesWon: 3, GamesLost: 1, EloRating: 1532},
		})
	}))
	defer server.Close()

	out := execute(t, server, "", "agents", "list", "--active")
	for _, want := range []string{"NAME", "greedy", "3/0/1", "1532"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestAgentsList_Empty(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []api.Agent{})
	}))
	defer server.Close()

	out := execute(t, server, "", "agents", "list")
	if !strings.Contains(out, "No agents registered") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLeaderboard(t *testing.T) {
	resetViper()
	defer resetFlags(leaderboardCmd, "limit")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaderboard" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		writeJSON(w, http.StatusOK, []api.Agent{
			{ID: 2, Name: "top", EloRating: 1600, GamesPlayed: 10, WinRate: 0.8},
			{ID: 1, Name: "second", EloRating: 1450, GamesPlayed: 10, WinRate: 0.2},
		})
	}))
	defer server.Close()

	out := execute(t, server, "", "leaderboard", "--limit", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got: %s", out)
	}
	if !strings.HasPrefix(lines[1], "1") || !strings.Contains(lines[1], "top") || !strings.Contains(lines[1], "80.0%") {
		t.Errorf("first row = %q", lines[1])
	}
}
