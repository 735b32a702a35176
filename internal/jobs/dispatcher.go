// Package jobs runs review pipelines in the background.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/sevigo/pr-reviewer/internal/core"
)

// DefaultQueueSize is used when no queue size is configured.
const DefaultQueueSize = 100

// ErrDispatcherStopped is returned by Dispatch after Stop.
var ErrDispatcherStopped = errors.New("dispatcher is stopped")

// dispatcher implements core.TaskDispatcher and manages a pool of worker
// goroutines that run review tasks.
type dispatcher struct {
	job        core.Job
	queue      chan *core.ReviewTask
	maxWorkers int
	wg         sync.WaitGroup // tracks workers for graceful shutdown
	mu         sync.RWMutex   // guards stopped and the close of queue
	stopped    bool
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// Non-positive maxWorkers defaults to 1 and non-positive queueSize to DefaultQueueSize.
func NewDispatcher(job core.Job, maxWorkers, queueSize int, logger *slog.Logger) core.TaskDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		queue:      make(chan *core.ReviewTask, queueSize),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes tasks from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting review worker", "id", workerID)

	for task := range d.queue {
		d.process(workerID, task)
	}

	d.logger.Debug("shutting down review worker", "id", workerID)
}

func (d *dispatcher) process(workerID int, task *core.ReviewTask) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("review task panicked",
				"worker_id", workerID, "run_id", task.RunID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	d.logger.Info("worker processing review",
		"worker_id", workerID,
		"run_id", task.RunID,
		"review_id", task.ReviewID,
	)

	if err := d.job.Run(context.Background(), task); err != nil {
		d.logger.Error("review run failed",
			"run_id", task.RunID,
			"review_id", task.ReviewID,
			"error", err,
		)
	}
}

// Dispatch queues a task without blocking. It returns core.ErrQueueFull when
// the queue has no room.
func (d *dispatcher) Dispatch(_ context.Context, task *core.ReviewTask) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- task:
		d.logger.Debug("review queued", "run_id", task.RunID, "review_id", task.ReviewID)
		return nil
	default:
		return fmt.Errorf("cannot queue review %d: %w", task.ReviewID, core.ErrQueueFull)
	}
}

// Stop closes the queue and waits until every queued task has run.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.logger.Info("stopping dispatcher and waiting for reviews to finish")
	d.wg.Wait()
	d.logger.Info("all review runs have finished")
}
