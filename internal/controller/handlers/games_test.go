package handlers

import (
	"net/http"
	"strings"
	"testing"

	"gomokuplane/internal/render"
	"gomokuplane/internal/store"
	"gomokuplane/pkg/api"
)

func (f *fixture) game(t *testing.T, logLoc, htmlLoc string) int64 {
	t.Helper()
	g := &store.Game{
		TournamentID: 1, BlackAgentID: 1, WhiteAgentID: 2,
		Result: store.GameResultDraw, Termination: "board_full", MoveCount: 64,
		LogLocation: logLoc, HTMLLocation: htmlLoc, StartedAt: f.clock.Now(),
	}
	if err := f.store.CreateGame(f.ctx, nil, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g.ID
}

func TestGetGame(t *testing.T) {
	f := newFixture(t)
	f.game(t, "", "")

	rr := f.do(t, http.MethodGet, "/games/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d", rr.Code)
	}
	got := decode[api.Game](t, rr)
	if got.Result != "draw" || got.MoveCount != 64 || got.Termination != "board_full" {
		t.Errorf("unexpected game %+v", got)
	}
	if rr := f.do(t, http.MethodGet, "/games/2", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown game: got %d, want 404", rr.Code)
	}
}

func TestGameHTML_StoredPage(t *testing.T) {
	f := newFixture(t)
	loc, err := f.artifacts.Put(f.ctx, "t1/g.html", "text/html", []byte("<html>stored</html>"))
	if err != nil {
		t.Fatal(err)
	}
	f.game(t, "", loc)

	rr := f.do(t, http.MethodGet, "/games/1/html", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "<html>stored</html>" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestGameHTML_RebuiltFromLog(t *testing.T) {
	f := newFixture(t)
	doc := render.Document{
		Metadata: render.Metadata{TournamentID: 1, Tournament: "open", Black: "alpha", White: "beta", BoardSize: 3, WinLength: 3},
		Result:   render.Outcome{Termination: "board_full", Reason: "board full", FinalBoard: []string{"XO.", ".X.", "O.."}},
	}
	raw, err := render.JSON(doc)
	if err != nil {
		t.Fatal(err)
	}
	logLoc, err := f.artifacts.Put(f.ctx, "t1/g.json", "application/json", raw)
	if err != nil {
		t.Fatal(err)
	}
	// The page location is recorded but the file is gone.
	f.game(t, logLoc, logLoc+".html")

	rr := f.do(t, http.MethodGet, "/games/1/html", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "alpha") {
		t.Error("rebuilt page does not name the black player")
	}
}

func TestGameHTML_NoArtifacts(t *testing.T) {
	f := newFixture(t)
	f.game(t, "", "")

	if rr := f.do(t, http.MethodGet, "/games/1/html", nil); rr.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", rr.Code)
	}
}
