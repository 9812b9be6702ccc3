package postgres

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

var jobRowColumns = []string{
	"id", "tournament_id", "status", "worker_id", "priority", "retry_count", "max_retries",
	"timeout_seconds", "error_message", "created_at", "started_at", "completed_at", "last_heartbeat",
}
