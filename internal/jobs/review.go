package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/diff"
	"github.com/sevigo/pr-reviewer/internal/github"
	"github.com/sevigo/pr-reviewer/internal/llm"
	"github.com/sevigo/pr-reviewer/internal/storage"
)

// EmptyDiffSummary is recorded when no file survives filtering.
const EmptyDiffSummary = "No reviewable changes found in this pull request."

// ReviewJob runs the review pipeline for one task:
// fetch, filter, analyze, persist, publish.
type ReviewJob struct {
	store       storage.Store
	clients     github.ClientFactory
	credentials core.CredentialResolver
	providers   llm.ProviderFactory
	analyzer    llm.Analyzer
	filter      *diff.Filter
	logger      *slog.Logger
}

// NewReviewJob creates the pipeline job executed by the dispatcher's workers.
func NewReviewJob(
	store storage.Store,
	clients github.ClientFactory,
	credentials core.CredentialResolver,
	providers llm.ProviderFactory,
	analyzer llm.Analyzer,
	filter *diff.Filter,
	logger *slog.Logger,
) *ReviewJob {
	if filter == nil {
		filter = diff.NewFilter()
	}
	return &ReviewJob{
		store:       store,
		clients:     clients,
		credentials: credentials,
		providers:   providers,
		analyzer:    analyzer,
		filter:      filter,
		logger:      logger,
	}
}

// Run moves the task's review to running and drives it to done or error.
// A returned error has already been recorded on the review.
func (j *ReviewJob) Run(ctx context.Context, task *core.ReviewTask) (err error) {
	logger := j.logger.With(
		"run_id", task.RunID,
		"review_id", task.ReviewID,
		"repo", task.Trigger.RepoFullName,
		"pr", task.Trigger.PRNumber,
	)

	if err := j.store.UpdateReviewStatus(ctx, task.ReviewID, core.ReviewStatusPending, core.ReviewStatusRunning); err != nil {
		return fmt.Errorf("failed to start review %d: %w", task.ReviewID, err)
	}
	logger.Info("review started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("review run panicked: %v", r)
			logger.Error("review run panicked", "panic", r, "stack", string(debug.Stack()))
			j.fail(ctx, task.ReviewID, err, logger)
		}
	}()

	client, err := j.clients.ForRepository(ctx, task.Repository, task.Trigger.InstallationID)
	if err != nil {
		return j.fail(ctx, task.ReviewID, fmt.Errorf("failed to create GitHub client: %w", err), logger)
	}

	files, err := client.ListPullRequestFiles(ctx, task.Trigger.RepoOwner, task.Trigger.RepoName, task.Trigger.PRNumber)
	if err != nil {
		return j.fail(ctx, task.ReviewID, fmt.Errorf("failed to fetch pull request files: %w", err), logger)
	}

	reviewable := j.filter.Apply(files)
	logger.Info("pull request files fetched", "files", len(files), "reviewable", len(reviewable))

	if len(reviewable) == 0 {
		return j.complete(ctx, task.ReviewID, &core.ReviewOutcome{
			Status:      core.ReviewStatusDone,
			Summary:     EmptyDiffSummary,
			CompletedAt: time.Now().UTC(),
		}, logger)
	}

	cred, err := j.credentials.Resolve(ctx, task.Repository)
	if err != nil {
		return j.fail(ctx, task.ReviewID, fmt.Errorf("failed to resolve AI credential: %w", err), logger)
	}
	gen, err := j.providers.ForCredential(ctx, cred)
	if err != nil {
		return j.fail(ctx, task.ReviewID, fmt.Errorf("failed to create AI provider: %w", err), logger)
	}

	result, err := j.analyzer.Analyze(ctx, gen, llm.ModelProvider(cred.Provider), reviewable, task.Repository.Rules())
	if err != nil {
		return j.fail(ctx, task.ReviewID, fmt.Errorf("analysis failed: %w", err), logger)
	}

	outcome := &core.ReviewOutcome{
		Status:      core.ReviewStatusDone,
		Summary:     result.Summary,
		TokensUsed:  result.TokensUsed,
		Comments:    result.Comments,
		CompletedAt: time.Now().UTC(),
	}
	if err := j.complete(ctx, task.ReviewID, outcome, logger); err != nil {
		return err
	}

	j.publish(ctx, client, task, outcome, logger)
	return nil
}

func (j *ReviewJob) complete(ctx context.Context, reviewID int64, outcome *core.ReviewOutcome, logger *slog.Logger) error {
	if err := j.store.CompleteReview(ctx, reviewID, outcome); err != nil {
		return j.fail(ctx, reviewID, fmt.Errorf("failed to persist review: %w", err), logger)
	}
	logger.Info("review done", "comments", len(outcome.Comments), "tokens", outcome.TokensUsed)
	return nil
}

// publish posts the review. Failures are logged; the review stays done.
func (j *ReviewJob) publish(ctx context.Context, client github.Client, task *core.ReviewTask, outcome *core.ReviewOutcome, logger *slog.Logger) {
	target := github.Target{
		Owner:   task.Trigger.RepoOwner,
		Repo:    task.Trigger.RepoName,
		Number:  task.Trigger.PRNumber,
		HeadSHA: task.Trigger.HeadSHA,
	}
	result, err := github.NewPublisher(client, logger).Publish(ctx, target, outcome.Summary, outcome.Comments)
	if err != nil {
		logger.Error("failed to publish review", "error", err)
		return
	}
	logger.Info("review published", "outcome", result)
}

// fail records cause on the review and returns it.
func (j *ReviewJob) fail(ctx context.Context, reviewID int64, cause error, logger *slog.Logger) error {
	logger.Error("review failed", "error", cause)
	err := j.store.CompleteReview(ctx, reviewID, &core.ReviewOutcome{
		Status:      core.ReviewStatusError,
		Summary:     cause.Error(),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("failed to record review error", "error", err)
	}
	return cause
}
