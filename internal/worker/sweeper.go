package worker

import (
	"log"
	"time"

	"scribeline/internal/db"
)

// Sweeper fails tasks stuck in processing past the timeout. It is the
// sole recovery when a worker dies mid-task or a provider hangs past all
// retries.
type Sweeper struct {
	timeout time.Duration
}

func NewSweeper(timeout time.Duration) *Sweeper {
	return &Sweeper{timeout: timeout}
}

// SweepOnce fails every processing task untouched for longer than the
// timeout and returns how many it marked.
func (s *Sweeper) SweepOnce() (int64, error) {
	cutoff := time.Now().Add(-s.timeout)
	swept, err := db.SweepStuckTasks(cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Printf("sweeper failed %d stuck tasks (idle > %s)", swept, s.timeout)
	}
	return swept, nil
}
