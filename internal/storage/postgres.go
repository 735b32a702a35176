package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/pr-reviewer/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return err
}

func (s *postgresStore) GetOrCreateUser(ctx context.Context, login string) (*core.User, error) {
	query := `
		INSERT INTO users (login) VALUES ($1)
		ON CONFLICT (login) DO UPDATE SET login = EXCLUDED.login
		RETURNING id, login, ai_api_key, created_at`
	var u core.User
	if err := s.db.GetContext(ctx, &u, query, login); err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", login, err)
	}
	return &u, nil
}

func (s *postgresStore) GetUser(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	err := s.db.GetContext(ctx, &u, `SELECT id, login, ai_api_key, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

func (s *postgresStore) GetConnectionForUser(ctx context.Context, userID int64) (*core.Connection, error) {
	query := `
		SELECT id, user_id, account_id, username, access_token, created_at, updated_at
		FROM connections WHERE user_id = $1`
	var c core.Connection
	if err := s.db.GetContext(ctx, &c, query, userID); err != nil {
		return nil, notFound(err, fmt.Sprintf("connection for user %d", userID))
	}
	return &c, nil
}

func (s *postgresStore) CreateRepository(ctx context.Context, repo *core.Repository) error {
	query := `
		INSERT INTO repositories (full_name, owner_id, webhook_secret, custom_rules, installation_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	row := s.db.QueryRowxContext(ctx, query, repo.FullName, repo.OwnerID, repo.WebhookSecret, repo.CustomRules, repo.InstallationID)
	if err := row.Scan(&repo.ID, &repo.CreatedAt, &repo.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.FullName, err)
	}
	return nil
}

const repositoryColumns = `id, full_name, owner_id, webhook_secret, custom_rules, installation_id, created_at, updated_at`

func (s *postgresStore) GetRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error) {
	var r core.Repository
	err := s.db.GetContext(ctx, &r, `SELECT `+repositoryColumns+` FROM repositories WHERE full_name = $1`, fullName)
	if err != nil {
		return nil, notFound(err, "repository "+fullName)
	}
	return &r, nil
}

func (s *postgresStore) ListRepositories(ctx context.Context) ([]*core.Repository, error) {
	var repos []*core.Repository
	if err := s.db.SelectContext(ctx, &repos, `SELECT `+repositoryColumns+` FROM repositories ORDER BY full_name`); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return repos, nil
}

func (s *postgresStore) UpsertPullRequest(ctx context.Context, pr *core.PullRequest) error {
	query := `
		INSERT INTO pull_requests (repository_id, number, title, author, url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (repository_id, number) DO UPDATE
		SET title = EXCLUDED.title, status = EXCLUDED.status, updated_at = NOW()
		RETURNING id, author, url, created_at, updated_at`
	row := s.db.QueryRowxContext(ctx, query, pr.RepositoryID, pr.Number, pr.Title, pr.Author, pr.URL, pr.Status)
	if err := row.Scan(&pr.ID, &pr.Author, &pr.URL, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert pull request #%d: %w", pr.Number, err)
	}
	return nil
}

const pullRequestColumns = `id, repository_id, number, title, author, url, status, created_at, updated_at`

func (s *postgresStore) GetPullRequest(ctx context.Context, id int64) (*core.PullRequest, error) {
	var pr core.PullRequest
	if err := s.db.GetContext(ctx, &pr, `SELECT `+pullRequestColumns+` FROM pull_requests WHERE id = $1`, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("pull request %d", id))
	}
	return &pr, nil
}

func (s *postgresStore) GetPullRequestByNumber(ctx context.Context, repoID int64, number int) (*core.PullRequest, error) {
	var pr core.PullRequest
	query := `SELECT ` + pullRequestColumns + ` FROM pull_requests WHERE repository_id = $1 AND number = $2`
	if err := s.db.GetContext(ctx, &pr, query, repoID, number); err != nil {
		return nil, notFound(err, fmt.Sprintf("pull request #%d", number))
	}
	return &pr, nil
}

func (s *postgresStore) CreateReview(ctx context.Context, review *core.Review) error {
	if review.Status == "" {
		review.Status = core.ReviewStatusPending
	}
	query := `
		INSERT INTO reviews (pull_request_id, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := s.db.QueryRowxContext(ctx, query, review.PullRequestID, review.Status, review.StartedAt).Scan(&review.ID); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

const reviewColumns = `id, pull_request_id, status, started_at, completed_at, summary, tokens_used`

func (s *postgresStore) GetReview(ctx context.Context, id int64) (*core.Review, error) {
	var r core.Review
	if err := s.db.GetContext(ctx, &r, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id); err != nil {
		return nil, notFound(err, fmt.Sprintf("review %d", id))
	}
	return &r, nil
}

func (s *postgresStore) ListReviewsForPullRequest(ctx context.Context, pullRequestID int64) ([]*core.Review, error) {
	var reviews []*core.Review
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE pull_request_id = $1 ORDER BY started_at DESC`
	if err := s.db.SelectContext(ctx, &reviews, query, pullRequestID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *postgresStore) UpdateReviewStatus(ctx context.Context, id int64, from, to core.ReviewStatus) error {
	if err := core.CheckTransition(from, to); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE reviews SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update review %d: %w", id, err)
	}
	return expectOneRow(res, id, from)
}

func (s *postgresStore) CompleteReview(ctx context.Context, id int64, outcome *core.ReviewOutcome) error {
	if err := core.CheckTransition(core.ReviewStatusRunning, outcome.Status); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET status = $1, summary = $2, tokens_used = $3, completed_at = $4
		WHERE id = $5 AND status = $6`,
		outcome.Status, outcome.Summary, outcome.TokensUsed, outcome.CompletedAt, id, core.ReviewStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete review %d: %w", id, err)
	}
	if err := expectOneRow(res, id, core.ReviewStatusRunning); err != nil {
		return err
	}

	if outcome.Status == core.ReviewStatusDone && len(outcome.Comments) > 0 {
		comments := make([]core.ReviewComment, len(outcome.Comments))
		for i, c := range outcome.Comments {
			c.ReviewID = id
			comments[i] = c
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO review_comments (review_id, file_path, line, body, category, severity)
			VALUES (:review_id, :file_path, :line, :body, :category, :severity)`, comments)
		if err != nil {
			return fmt.Errorf("failed to insert review comments: %w", err)
		}
	}

	return tx.Commit()
}

func (s *postgresStore) ListReviewComments(ctx context.Context, reviewID int64) ([]*core.ReviewComment, error) {
	var comments []*core.ReviewComment
	query := `
		SELECT id, review_id, file_path, line, body, category, severity, created_at
		FROM review_comments WHERE review_id = $1 ORDER BY id`
	if err := s.db.SelectContext(ctx, &comments, query, reviewID); err != nil {
		return nil, fmt.Errorf("failed to list review comments: %w", err)
	}
	return comments, nil
}

func expectOneRow(res sql.Result, id int64, from core.ReviewStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: review %d is not %s", core.ErrIllegalTransition, id, from)
	}
	return nil
}
