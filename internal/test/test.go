package test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"scribeline/internal/db"
	"scribeline/pkg/tasks"
)

// MockTaskEnqueuer is a mock implementation of tasks.TaskEnqueuer for testing.
type MockTaskEnqueuer struct {
	EnqueuedTasks []*asynq.Task
	EnqueuedOpts  [][]asynq.Option
}

func (m *MockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.EnqueuedTasks = append(m.EnqueuedTasks, task)
	m.EnqueuedOpts = append(m.EnqueuedOpts, opts)
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "free"}, nil
}

// MockDispatcher records dispatched payloads for assertions.
type MockDispatcher struct {
	Dispatched []tasks.TranscribeTaskPayload
	Priorities []string
	Err        error
}

func (m *MockDispatcher) Dispatch(ctx context.Context, payload tasks.TranscribeTaskPayload, priority string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Dispatched = append(m.Dispatched, payload)
	m.Priorities = append(m.Priorities, priority)
	return nil
}

func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	sqlxDB := sqlx.NewDb(mockDb, "sqlmock")

	originalDB := db.DB
	db.DB = sqlxDB
	t.Cleanup(func() {
		db.DB = originalDB
		mockDb.Close()
	})

	return sqlxDB, mock
}

// StringPtr is a convenience for building optional ids in fixtures.
func StringPtr(s string) *string {
	return &s
}
