package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"scribeline/internal/models"
)

const (
	TypeTranscribe = "task:transcribe"
)

// Queue names in dequeue-priority order; paid work drains first.
const (
	QueuePaid = "paid"
	QueueFree = "free"
)

// QueueFor maps a task priority to its queue.
func QueueFor(priority string) string {
	if priority == models.PriorityPaid {
		return QueuePaid
	}
	return QueueFree
}

// TranscribeTaskPayload is an opaque envelope; workers re-read the
// authoritative row on pickup, the snapshot is informational.
type TranscribeTaskPayload struct {
	TaskID     string        `json:"task_id"`
	SourceType string        `json:"source_type"`
	SourceURL  string        `json:"source_url"`
	Params     models.Params `json:"params,omitempty"`
}

func NewTranscribeTask(p TranscribeTaskPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTranscribe, payload), nil
}
