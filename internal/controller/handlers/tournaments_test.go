package handlers

import (
	"net/http"
	"strings"
	"testing"

	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"
)

func TestCreateTournament(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.agent(t, "a", 1500), f.agent(t, "b", 1500), f.agent(t, "c", 1500)

	rr := f.do(t, http.MethodPost, "/tournaments", api.CreateTournamentRequest{
		Name:     "Spring Open",
		AgentIDs: []int64{a, b, c, b},
		Priority: 5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rr.Code, rr.Body.String())
	}
	got := decode[api.CreateTournamentResponse](t, rr)
	if got.Tournament.Status != string(store.TournamentStatusPending) {
		t.Errorf("status = %s", got.Tournament.Status)
	}
	if got.Tournament.TotalGames != 6 {
		t.Errorf("3 agents play 6 games, got %d", got.Tournament.TotalGames)
	}
	if len(got.Tournament.AgentIDs) != 3 {
		t.Errorf("duplicate agent ids should collapse, got %v", got.Tournament.AgentIDs)
	}
	if got.Job.Status != string(store.JobStatusPending) || got.Job.Priority != 5 || got.Job.TournamentID != got.Tournament.ID {
		t.Errorf("unexpected job %+v", got.Job)
	}
	if got.Job.MaxRetries != 3 || got.Job.TimeoutSeconds != 3600 {
		t.Errorf("job settings = retries %d timeout %d", got.Job.MaxRetries, got.Job.TimeoutSeconds)
	}
}

func TestCreateTournament_DefaultName(t *testing.T) {
	f := newFixture(t)
	a, b := f.agent(t, "a", 1500), f.agent(t, "b", 1500)

	got := decode[api.CreateTournamentResponse](t, f.do(t, http.MethodPost, "/tournaments", api.CreateTournamentRequest{AgentIDs: []int64{a, b}}))
	if got.Tournament.Name != "Tournament 2025-03-01 09:00" {
		t.Errorf("name = %q", got.Tournament.Name)
	}
}

func TestCreateTournament_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"bad json", "[", "Invalid request body"},
		{"one agent", api.CreateTournamentRequest{AgentIDs: []int64{1}}, "at least 2"},
		{"same agent twice", api.CreateTournamentRequest{AgentIDs: []int64{1, 1}}, "at least 2"},
		{"unknown agent", api.CreateTournamentRequest{AgentIDs: []int64{1, 42}}, "Unknown agent"},
		{"priority too high", api.CreateTournamentRequest{AgentIDs: []int64{1, 2}, Priority: 101}, "Priority"},
		{"negative priority", api.CreateTournamentRequest{AgentIDs: []int64{1, 2}, Priority: -1}, "Priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.agent(t, "a", 1500)
			f.agent(t, "b", 1500)

			rr := f.do(t, http.MethodPost, "/tournaments", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %q does not mention %q", rr.Body.String(), tt.want)
			}
			list, _ := f.store.ListTournaments(f.ctx, nil, store.TournamentFilter{})
			if len(list) != 0 {
				t.Errorf("rejected request left %d tournaments behind", len(list))
			}
		})
	}
}

func TestCreateTournament_RefusedWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "w1")
	a, b := f.agent(t, "a", 1500), f.agent(t, "b", 1500)
	job := f.running(t, "w1")

	rr := f.do(t, http.MethodPost, "/tournaments", api.CreateTournamentRequest{AgentIDs: []int64{a, b}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("got status %d, want 409", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "already running") {
		t.Errorf("body = %s", rr.Body.String())
	}
	list, _ := f.store.ListTournaments(f.ctx, nil, store.TournamentFilter{})
	if len(list) != 1 || list[0].ID != job.TournamentID {
		t.Errorf("refused request must not create a tournament, got %d", len(list))
	}
}

func TestListTournaments(t *testing.T) {
	f := newFixture(t)
	f.tournament(t, store.TournamentStatusCompleted)
	f.tournament(t, store.TournamentStatusPending)
	f.tournament(t, store.TournamentStatusCompleted)

	all := decode[[]api.Tournament](t, f.do(t, http.MethodGet, "/tournaments", nil))
	if len(all) != 3 {
		t.Errorf("got %d, want 3", len(all))
	}
	done := decode[[]api.Tournament](t, f.do(t, http.MethodGet, "/tournaments?status=completed", nil))
	if len(done) != 2 {
		t.Errorf("got %d completed, want 2", len(done))
	}
	one := decode[[]api.Tournament](t, f.do(t, http.MethodGet, "/tournaments?limit=1", nil))
	if len(one) != 1 {
		t.Errorf("limit ignored, got %d", len(one))
	}
}

func TestGetTournament(t *testing.T) {
	f := newFixture(t)
	id := f.tournament(t, store.TournamentStatusRunning)
	if _, err := f.jobs.CreateTournamentJob(f.ctx, id, 0); err != nil {
		t.Fatal(err)
	}
	winner := int64(1)
	g := &store.Game{TournamentID: id, BlackAgentID: 1, WhiteAgentID: 2, WinnerID: &winner, Result: store.GameResultBlackWins, MoveCount: 9, StartedAt: f.clock.Now()}
	if err := f.store.CreateGame(f.ctx, nil, g); err != nil {
		t.Fatal(err)
	}
	if err := f.store.IncrementCompletedGames(f.ctx, nil, id); err != nil {
		t.Fatal(err)
	}

	rr := f.do(t, http.MethodGet, "/tournaments/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d", rr.Code)
	}
	got := decode[api.TournamentDetail](t, rr)
	if got.Progress != 0.5 {
		t.Errorf("progress = %v, want 0.5", got.Progress)
	}
	if got.Job == nil || got.Job.Status != string(store.JobStatusPending) {
		t.Errorf("job = %+v", got.Job)
	}
	if len(got.Games) != 1 || got.Games[0].Result != string(store.GameResultBlackWins) {
		t.Errorf("games = %+v", got.Games)
	}

	if rr := f.do(t, http.MethodGet, "/tournaments/9", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown tournament: got %d, want 404", rr.Code)
	}
}

func TestGetTournament_WithoutJob(t *testing.T) {
	f := newFixture(t)
	f.tournament(t, store.TournamentStatusCompleted)

	got := decode[api.TournamentDetail](t, f.do(t, http.MethodGet, "/tournaments/1", nil))
	if got.Job != nil {
		t.Errorf("expected no job, got %+v", got.Job)
	}
	if got.Games == nil {
		t.Error("games should be an empty list, not null")
	}
}

func TestCancelTournament(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "w1")
	job := f.running(t, "w1")

	rr := f.do(t, http.MethodPost, "/tournaments/1/cancel", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}
	tr, _ := f.store.GetTournament(f.ctx, nil, job.TournamentID)
	if tr.Status != store.TournamentStatusCancelled {
		t.Errorf("tournament status = %s", tr.Status)
	}
	j, _ := f.store.GetJob(f.ctx, nil, job.ID)
	if j.Status != store.JobStatusCancelled {
		t.Errorf("job status = %s", j.Status)
	}

	if rr := f.do(t, http.MethodPost, "/tournaments/1/cancel", nil); rr.Code != http.StatusConflict {
		t.Errorf("second cancel: got %d, want 409", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/tournaments/7/cancel", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown tournament: got %d, want 404", rr.Code)
	}
}

func TestDeleteTournament(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "w1")
	job := f.running(t, "w1")

	rr := f.do(t, http.MethodDelete, "/tournaments/1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}
	if _, err := f.store.GetTournament(f.ctx, nil, job.TournamentID); err == nil {
		t.Error("tournament still exists")
	}
	active, _ := f.jobs.GetActiveJob(f.ctx)
	if active != nil {
		t.Errorf("deleted tournament left a running job %s", active.ID)
	}
	w, _ := f.store.GetWorker(f.ctx, nil, "w1")
	if w.CurrentJobID != nil {
		t.Error("worker still points at the deleted job")
	}

	if rr := f.do(t, http.MethodDelete, "/tournaments/1", nil); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", rr.Code)
	}
}
