package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"scribeline/internal/db"
	"scribeline/pkg/tasks"
)

// TaskHandler adapts the executor to asynq delivery.
type TaskHandler struct {
	executor *Executor
}

func NewTaskHandler(executor *Executor) *TaskHandler {
	return &TaskHandler{executor: executor}
}

func (h *TaskHandler) HandleTranscribeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.TranscribeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	err := h.executor.Execute(ctx, p.TaskID, retryCount > 0)
	if err == nil {
		return nil
	}

	if IsFatal(err) {
		// The task row is already failed; archive the job.
		log.Printf("task %s failed permanently: %v", p.TaskID, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if retryCount >= maxRetry {
		log.Printf("task %s exhausted %d retries: %v", p.TaskID, maxRetry, err)
		if markErr := db.MarkTaskFailed(p.TaskID, err.Error()); markErr != nil {
			log.Printf("failed to mark task %s failed: %v", p.TaskID, markErr)
		}
	}
	return err
}
