package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const backgroundTaskTimeout = 30 * time.Second

// TaskRunner supervises fire-and-forget side tasks (summarization,
// collaboration forwarding). Failures are logged and never propagate to
// the originating turn. The optional events channel reports task
// completion for observation in tests.
type TaskRunner struct {
	wg     sync.WaitGroup
	events chan<- string
}

// NewTaskRunner creates a task runner. events may be nil.
func NewTaskRunner(events chan<- string) *TaskRunner {
	return &TaskRunner{events: events}
}

// Go runs fn detached from the calling turn with its own deadline.
func (r *TaskRunner) Go(name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("task", name).Msg("background task panicked")
			}
			if r.events != nil {
				select {
				case r.events <- name:
				default:
				}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until all spawned tasks finish. Used during shutdown.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
