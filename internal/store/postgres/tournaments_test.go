package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"gomokuplane/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCreateTournament_SetsID(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	tournament := &store.Tournament{
		Name:       "weekly",
		Status:     store.TournamentStatusPending,
		TotalGames: 6,
		AgentIDs:   []int64{1, 2, 3},
		CreatedAt:  now,
	}

	mock.ExpectQuery(`INSERT INTO tournaments`).
		WithArgs("weekly", store.TournamentStatusPending, 6, 0, sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	if err := s.CreateTournament(context.Background(), nil, tournament); err != nil {
		t.Fatalf("CreateTournament failed: %v", err)
	}
	if tournament.ID != 11 {
		t.Errorf("got id %d, want 11", tournament.ID)
	}
}

func TestGetTournament_ScansAgentIDs(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM tournaments WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "status", "total_games", "completed_games", "agent_ids",
			"created_at", "started_at", "completed_at",
		}).AddRow(int64(3), "cup", "running", 6, 2, "{4,5,6}", now, now, nil))

	tournament, err := s.GetTournament(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("GetTournament failed: %v", err)
	}
	if len(tournament.AgentIDs) != 3 || tournament.AgentIDs[2] != 6 {
		t.Errorf("unexpected agent ids: %v", tournament.AgentIDs)
	}
	if tournament.Status != store.TournamentStatusRunning {
		t.Errorf("got status %s, want running", tournament.Status)
	}
	if tournament.CompletedAt != nil {
		t.Errorf("expected nil completed_at")
	}
}

func TestDeleteTournament_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`DELETE FROM tournaments WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteTournament(context.Background(), nil, 9); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrphanedTournaments(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`NOT EXISTS`).
		WithArgs(store.TournamentStatusRunning, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "status", "total_games", "completed_games", "agent_ids",
			"created_at", "started_at", "completed_at",
		}).AddRow(int64(8), "orphan", "running", 2, 0, "{1,2}", now, now, nil))

	orphans, err := s.ListOrphanedTournaments(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != 8 {
		t.Errorf("unexpected orphans: %+v", orphans)
	}
}
