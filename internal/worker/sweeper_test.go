package worker

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/test"
)

func TestSweepOnceFailsStuckTasks(t *testing.T) {
	_, mock := test.NewMockDB(t)
	sweeper := NewSweeper(10 * time.Minute)

	mock.ExpectExec(`UPDATE tasks`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	swept, err := sweeper.SweepOnce()

	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepOnceNothingStuck(t *testing.T) {
	_, mock := test.NewMockDB(t)
	sweeper := NewSweeper(10 * time.Minute)

	mock.ExpectExec(`UPDATE tasks`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	swept, err := sweeper.SweepOnce()

	require.NoError(t, err)
	assert.Zero(t, swept)
	assert.NoError(t, mock.ExpectationsWereMet())
}
