package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/storage"
)

// Orchestrator creates review rows and hands them to the worker pool.
type Orchestrator struct {
	store      storage.Store
	dispatcher core.TaskDispatcher
	job        core.Job
	logger     *slog.Logger
}

var _ core.ReviewTriggerer = (*Orchestrator)(nil)

// NewOrchestrator creates an Orchestrator. job is used by RunNow; background
// runs go through dispatcher.
func NewOrchestrator(store storage.Store, dispatcher core.TaskDispatcher, job core.Job, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: store, dispatcher: dispatcher, job: job, logger: logger}
}

// Trigger creates a pending review for pr and queues it. It never waits for
// the run. If the task cannot be queued, the review is closed as error.
func (o *Orchestrator) Trigger(ctx context.Context, repo *core.Repository, pr *core.PullRequest, trigger *core.ReviewTrigger) (*core.Review, error) {
	task, review, err := o.newTask(ctx, repo, pr, trigger)
	if err != nil {
		return nil, err
	}

	if err := o.dispatcher.Dispatch(ctx, task); err != nil {
		o.logger.Error("failed to queue review", "run_id", task.RunID, "review_id", review.ID, "error", err)
		o.abandon(ctx, review, err)
		return review, err
	}

	o.logger.Info("review queued",
		"run_id", task.RunID, "review_id", review.ID, "repo", repo.FullName, "pr", pr.Number)
	return review, nil
}

// RunNow creates a review and runs the pipeline synchronously, returning the
// review in its terminal state.
func (o *Orchestrator) RunNow(ctx context.Context, repo *core.Repository, pr *core.PullRequest, trigger *core.ReviewTrigger) (*core.Review, error) {
	task, review, err := o.newTask(ctx, repo, pr, trigger)
	if err != nil {
		return nil, err
	}
	runErr := o.job.Run(ctx, task)

	final, err := o.store.GetReview(ctx, review.ID)
	if err != nil {
		return review, fmt.Errorf("failed to reload review %d: %w", review.ID, err)
	}
	return final, runErr
}

func (o *Orchestrator) newTask(ctx context.Context, repo *core.Repository, pr *core.PullRequest, trigger *core.ReviewTrigger) (*core.ReviewTask, *core.Review, error) {
	review := &core.Review{
		PullRequestID: pr.ID,
		Status:        core.ReviewStatusPending,
		StartedAt:     time.Now().UTC(),
	}
	if err := o.store.CreateReview(ctx, review); err != nil {
		return nil, nil, fmt.Errorf("failed to create review for pull request %d: %w", pr.ID, err)
	}

	return &core.ReviewTask{
		RunID:         uuid.NewString(),
		ReviewID:      review.ID,
		PullRequestID: pr.ID,
		Repository:    repo,
		Trigger:       trigger,
	}, review, nil
}

// abandon closes a review that will never run so it is not stranded in pending.
func (o *Orchestrator) abandon(ctx context.Context, review *core.Review, cause error) {
	summary := cause.Error()
	if errors.Is(cause, core.ErrQueueFull) {
		summary = core.ErrQueueFull.Error()
	}

	if err := o.store.UpdateReviewStatus(ctx, review.ID, core.ReviewStatusPending, core.ReviewStatusRunning); err != nil {
		o.logger.Error("failed to close unqueued review", "review_id", review.ID, "error", err)
		return
	}
	completedAt := time.Now().UTC()
	if err := o.store.CompleteReview(ctx, review.ID, &core.ReviewOutcome{
		Status:      core.ReviewStatusError,
		Summary:     summary,
		CompletedAt: completedAt,
	}); err != nil {
		o.logger.Error("failed to close unqueued review", "review_id", review.ID, "error", err)
		return
	}
	review.Status = core.ReviewStatusError
	review.Summary = &summary
	review.CompletedAt = &completedAt
}
