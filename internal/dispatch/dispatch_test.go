package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeline/internal/models"
	"scribeline/internal/test"
	"scribeline/pkg/tasks"
)

func TestAsynqDispatcherRoutesPriorityToQueue(t *testing.T) {
	enqueuer := &test.MockTaskEnqueuer{}
	d := NewAsynqDispatcher(enqueuer)

	err := d.Dispatch(context.Background(), tasks.TranscribeTaskPayload{TaskID: "task-1"}, models.PriorityPaid)

	require.NoError(t, err)
	require.Len(t, enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeTranscribe, enqueuer.EnqueuedTasks[0].Type())
	require.Len(t, enqueuer.EnqueuedOpts[0], 3)
	assert.Equal(t, tasks.QueuePaid, enqueuer.EnqueuedOpts[0][0].Value())
}

func TestQueueFor(t *testing.T) {
	assert.Equal(t, tasks.QueuePaid, tasks.QueueFor(models.PriorityPaid))
	assert.Equal(t, tasks.QueueFree, tasks.QueueFor(models.PriorityFree))
	assert.Equal(t, tasks.QueueFree, tasks.QueueFor(""))
}

func TestRetryDelayIsExponential(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryDelay(0, nil, nil))
	assert.Equal(t, 10*time.Second, RetryDelay(1, nil, nil))
	assert.Equal(t, 20*time.Second, RetryDelay(2, nil, nil))
}

func TestInProcessDispatcherRunsJobsInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 3)

	d := NewInProcessDispatcher(func(ctx context.Context, p tasks.TranscribeTaskPayload) error {
		mu.Lock()
		seen = append(seen, p.TaskID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.Dispatch(ctx, tasks.TranscribeTaskPayload{TaskID: id}, models.PriorityFree))
	}
	d.Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestInProcessDispatcherRejectsWhenFull(t *testing.T) {
	d := NewInProcessDispatcher(func(ctx context.Context, p tasks.TranscribeTaskPayload) error {
		return nil
	}, 1)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, tasks.TranscribeTaskPayload{TaskID: "a"}, models.PriorityFree))
	// The runner was never started, so the buffer stays full.
	assert.Error(t, d.Dispatch(ctx, tasks.TranscribeTaskPayload{TaskID: "b"}, models.PriorityFree))
}
