package worker

import (
	"context"
	"log"

	"scribeline/internal/db"
	"scribeline/internal/dispatch"
	"scribeline/pkg/tasks"
)

// RecoverPending re-enqueues every pending row found at boot, regardless
// of age. The in-process dispatcher drops queued jobs on crash, so this
// pass is mandatory there; with the durable queue it only re-covers rows
// whose enqueue was lost between insert and dispatch.
func RecoverPending(ctx context.Context, d dispatch.Dispatcher) error {
	pending, err := db.ListPendingTasks()
	if err != nil {
		return err
	}
	for _, task := range pending {
		payload := tasks.TranscribeTaskPayload{
			TaskID:     task.ID,
			SourceType: task.SourceType,
			SourceURL:  task.SourceURL,
			Params:     task.Params,
		}
		if err := d.Dispatch(ctx, payload, task.Priority); err != nil {
			log.Printf("failed to re-enqueue pending task %s: %v", task.ID, err)
			continue
		}
		log.Printf("re-enqueued pending task %s", task.ID)
	}
	if len(pending) > 0 {
		log.Printf("startup recovery re-enqueued %d pending tasks", len(pending))
	}
	return nil
}
