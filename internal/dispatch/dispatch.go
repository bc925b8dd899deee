package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"scribeline/pkg/tasks"
)

// Job delivery retry policy, applied per enqueued task. asynq counts
// retries after the first run, so MaxRetry 2 gives three attempts.
const (
	MaxRetry       = 2
	RetryBaseDelay = 5 * time.Second
)

// Dispatcher hands an admitted task to a worker. The two
// implementations are interchangeable behind this contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload tasks.TranscribeTaskPayload, priority string) error
}

// AsynqDispatcher enqueues onto the durable Redis-backed queue. Paid
// work lands on a higher-weight queue and drains first.
type AsynqDispatcher struct {
	client tasks.TaskEnqueuer
}

func NewAsynqDispatcher(client tasks.TaskEnqueuer) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, payload tasks.TranscribeTaskPayload, priority string) error {
	task, err := tasks.NewTranscribeTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create transcribe task: %w", err)
	}
	_, err = d.client.Enqueue(task,
		asynq.Queue(tasks.QueueFor(priority)),
		asynq.MaxRetry(MaxRetry),
		asynq.Timeout(15*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue transcribe task: %w", err)
	}
	return nil
}

// RetryDelay implements exponential backoff starting at RetryBaseDelay:
// 5s, 10s, 20s. Plugged into the asynq server config.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := RetryBaseDelay
	for i := 0; i < n; i++ {
		delay *= 2
	}
	return delay
}

// Runner executes one job; the in-process dispatcher calls it directly.
type Runner func(ctx context.Context, payload tasks.TranscribeTaskPayload) error

// InProcessDispatcher is the single-node development mode: jobs run on a
// local goroutine, FIFO, nothing persisted. A crash drops queued jobs;
// boot-time pending recovery plus the sweeper are the safety net.
type InProcessDispatcher struct {
	run  Runner
	jobs chan tasks.TranscribeTaskPayload
}

func NewInProcessDispatcher(run Runner, buffer int) *InProcessDispatcher {
	if buffer <= 0 {
		buffer = 128
	}
	return &InProcessDispatcher{
		run:  run,
		jobs: make(chan tasks.TranscribeTaskPayload, buffer),
	}
}

// Start drains the job channel until ctx is cancelled.
func (d *InProcessDispatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-d.jobs:
				if err := d.run(ctx, payload); err != nil {
					log.Printf("in-process job for task %s failed: %v", payload.TaskID, err)
				}
			}
		}
	}()
}

func (d *InProcessDispatcher) Dispatch(ctx context.Context, payload tasks.TranscribeTaskPayload, priority string) error {
	select {
	case d.jobs <- payload:
		return nil
	default:
		return fmt.Errorf("in-process job queue is full")
	}
}
