package db

import (
	"database/sql"
	"errors"
	"time"

	"scribeline/internal/models"
)

// ErrActiveTaskExists is returned when the owner already has a task in
// flight; the conditional insert serializes racing admissions.
var ErrActiveTaskExists = errors.New("owner already has an active task")

func CreateTask(task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, anon_id, task_type, source_type, source_url, params, is_trial, priority, status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM tasks
			WHERE ((user_id IS NOT NULL AND user_id = $2) OR (anon_id IS NOT NULL AND anon_id = $3))
			AND status IN ('pending', 'processing')
		)
		RETURNING *`
	err := DB.Get(task, query,
		task.ID, task.UserID, task.AnonID, task.TaskType, task.SourceType,
		task.SourceURL, task.Params, task.IsTrial, task.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrActiveTaskExists
	}
	return err
}

func GetTaskByID(id string) (models.Task, error) {
	task := models.Task{}
	err := DB.Get(&task, "SELECT * FROM tasks WHERE id = $1", id)
	return task, err
}

// ListTasks returns the owner's tasks newest first, optionally filtered
// by status, paginated by created_at cursor.
func ListTasks(userID, anonID *string, status string, cursor *time.Time, limit int) ([]models.Task, error) {
	query := `
		SELECT * FROM tasks
		WHERE ((user_id IS NOT NULL AND user_id = $1) OR (anon_id IS NOT NULL AND anon_id = $2))
		AND ($3 = '' OR status = $3)
		AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC
		LIMIT $5`
	var tasks []models.Task
	err := DB.Select(&tasks, query, userID, anonID, status, cursor, limit)
	return tasks, err
}

// ClaimTask moves a task from pending to processing. With allowRetry a
// redelivered attempt may reclaim its own processing row; a zero-row
// update means another worker holds the task.
func ClaimTask(id string, allowRetry bool) (bool, error) {
	statuses := "('pending')"
	if allowRetry {
		statuses = "('pending', 'processing')"
	}
	res, err := DB.Exec(
		"UPDATE tasks SET status = 'processing', updated_at = NOW() WHERE id = $1 AND status IN "+statuses, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func MarkTaskSucceeded(id, engine string, durationSec float64, costMinutes int) (bool, error) {
	res, err := DB.Exec(`
		UPDATE tasks
		SET status = 'succeeded', engine = $2, duration_sec = $3, cost_minutes = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`,
		id, engine, durationSec, costMinutes)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func MarkTaskFailed(id, errMsg string) error {
	_, err := DB.Exec(`
		UPDATE tasks
		SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, errMsg)
	return err
}

// SweepStuckTasks fails every processing task untouched since cutoff.
func SweepStuckTasks(cutoff time.Time) (int64, error) {
	res, err := DB.Exec(`
		UPDATE tasks
		SET status = 'failed', error = 'task timeout', updated_at = NOW()
		WHERE status = 'processing' AND updated_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListPendingTasks feeds the boot-time recovery pass, which runs with
// either dispatcher mode.
func ListPendingTasks() ([]models.Task, error) {
	var tasks []models.Task
	err := DB.Select(&tasks, "SELECT * FROM tasks WHERE status = 'pending' ORDER BY created_at ASC")
	return tasks, err
}
