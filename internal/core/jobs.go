package core

import (
	"context"
)

// ReviewTask is one queued pipeline run. The task owns the Review row named by
// ReviewID from creation until it reaches a terminal state.
type ReviewTask struct {
	RunID         string
	ReviewID      int64
	PullRequestID int64
	Repository    *Repository
	Trigger       *ReviewTrigger
}

// TaskDispatcher defines the contract for a system that can accept and queue
// review tasks for asynchronous processing. This interface decouples the
// event source (e.g., a webhook handler) from the job execution mechanism.
type TaskDispatcher interface {
	// Dispatch queues a task. It returns ErrQueueFull when the task cannot be
	// accepted, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, task *ReviewTask) error
	// Stop waits for queued and in-flight tasks to finish.
	Stop()
}

// Job represents a single, executable unit of work processed by the dispatcher.
type Job interface {
	// Run executes the task. Its outcome is recorded on the task's Review row;
	// the returned error is only used for logging.
	Run(ctx context.Context, task *ReviewTask) error
}

// ReviewTriggerer starts a review for an upserted pull request without waiting for it.
type ReviewTriggerer interface {
	Trigger(ctx context.Context, repo *Repository, pr *PullRequest, trigger *ReviewTrigger) (*Review, error)
}
