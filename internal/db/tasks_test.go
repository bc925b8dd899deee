package db_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/db"
	"scribeline/internal/models"
	"scribeline/internal/test"
)

func TestCreateTaskConflictMapsToActiveTaskError(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectQuery(`INSERT INTO tasks`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	task := &models.Task{
		ID:         "task-1",
		TaskType:   models.TaskTypeTranscription,
		SourceType: models.SourceTypeURL,
		SourceURL:  "https://cdn.example.com/a.mp3",
		Priority:   models.PriorityFree,
	}
	err := db.CreateTask(task)

	assert.ErrorIs(t, err, db.ErrActiveTaskExists)
}

func TestClaimTaskOnlyMovesPending(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectExec(`UPDATE tasks SET status = 'processing'.*IN \('pending'\)`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := db.ClaimTask("task-1", false)

	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimTaskRetryMayReclaimProcessing(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectExec(`UPDATE tasks SET status = 'processing'.*IN \('pending', 'processing'\)`).
		WithArgs("task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := db.ClaimTask("task-1", true)

	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepStuckTasksPassesCutoff(t *testing.T) {
	_, mock := test.NewMockDB(t)
	cutoff := time.Now().Add(-10 * time.Minute)

	mock.ExpectExec(`UPDATE tasks.*status = 'processing' AND updated_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	swept, err := db.SweepStuckTasks(cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(2), swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}
