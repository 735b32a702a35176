// Package storage implements persistence for repositories, pull requests and reviews.
package storage

import (
	"context"

	"github.com/sevigo/pr-reviewer/internal/core"
)

// Store defines the interface for all database operations. It enforces the
// uniqueness invariants of the data model: one repository per full name,
// one pull request per (repository, number), one connection per user.
type Store interface {
	GetOrCreateUser(ctx context.Context, login string) (*core.User, error)
	GetUser(ctx context.Context, id int64) (*core.User, error)
	GetConnectionForUser(ctx context.Context, userID int64) (*core.Connection, error)

	CreateRepository(ctx context.Context, repo *core.Repository) error
	GetRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error)
	ListRepositories(ctx context.Context) ([]*core.Repository, error)

	// UpsertPullRequest inserts the pull request or, when (repository, number)
	// already exists, updates only its title and status. pr.ID is set either way.
	UpsertPullRequest(ctx context.Context, pr *core.PullRequest) error
	GetPullRequest(ctx context.Context, id int64) (*core.PullRequest, error)
	GetPullRequestByNumber(ctx context.Context, repoID int64, number int) (*core.PullRequest, error)

	CreateReview(ctx context.Context, review *core.Review) error
	GetReview(ctx context.Context, id int64) (*core.Review, error)
	ListReviewsForPullRequest(ctx context.Context, pullRequestID int64) ([]*core.Review, error)
	// UpdateReviewStatus moves a review from one state to another. It fails with
	// core.ErrIllegalTransition if the transition is not allowed or the row is no
	// longer in the expected state.
	UpdateReviewStatus(ctx context.Context, id int64, from, to core.ReviewStatus) error
	// CompleteReview moves a running review to its terminal state and, for done,
	// inserts its comments in the same transaction.
	CompleteReview(ctx context.Context, id int64, outcome *core.ReviewOutcome) error
	ListReviewComments(ctx context.Context, reviewID int64) ([]*core.ReviewComment, error)
}
