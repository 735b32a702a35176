// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sevigo/pr-reviewer/internal/core"
)

const (
	filesPerPage = 100

	// maxParallelPages bounds concurrent page fetches once the last page is known.
	maxParallelPages = 4

	// lowRateRemaining is the point below which remaining quota is logged.
	lowRateRemaining = 100
)

// Review events accepted by GitHub.
const (
	EventComment        = "COMMENT"
	EventRequestChanges = "REQUEST_CHANGES"
)

// DraftReviewComment represents a single comment to be posted as part of a review.
type DraftReviewComment struct {
	Path string
	Line int
	Body string
}

// ReviewRequest is the payload of a single pull request review submission.
type ReviewRequest struct {
	CommitID string
	Body     string
	Event    string
	Comments []DraftReviewComment
}

// StatusError describes a GitHub API call that failed, keeping the HTTP
// status and, for paged listings, the page that failed.
type StatusError struct {
	Op         string
	StatusCode int
	Page       int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("github %s failed (status %d, page %d): %v", e.Op, e.StatusCode, e.Page, e.Err)
	}
	return fmt.Sprintf("github %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// RateLimited reports whether the failure was caused by GitHub rate limiting.
func (e *StatusError) RateLimited() bool {
	var rl *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	return errors.As(e.Err, &rl) || errors.As(e.Err, &abuse)
}

// Client defines the GitHub operations needed to fetch pull request changes
// and publish reviews.
//
//go:generate mockgen -destination=../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error)
	CreateReview(ctx context.Context, owner, repo string, number int, req ReviewRequest) error
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewTokenClient creates a client authenticated with a bearer token. apiURL
// overrides the default API endpoint and limiter paces outbound requests;
// both are optional.
func NewTokenClient(ctx context.Context, token, apiURL string, limiter *rate.Limiter, logger *slog.Logger) (Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Transport = NewRateLimitedTransport(tc.Transport, limiter)

	client, err := newClientWithBaseURL(tc, apiURL)
	if err != nil {
		return nil, err
	}
	return NewGitHubClient(client, logger), nil
}

func newClientWithBaseURL(hc *http.Client, apiURL string) (*github.Client, error) {
	client := github.NewClient(hc)
	if apiURL == "" {
		return client, nil
	}
	base, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}
	client.BaseURL = base
	return client, nil
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, resp, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	g.observeRate(resp)
	if err != nil {
		g.reportRateLimit(err)
		return nil, &StatusError{Op: "get pull request", StatusCode: statusCode(resp), Err: err}
	}
	return pr, nil
}

// ListPullRequestFiles retrieves every file changed by a pull request,
// 100 per page. When the first response advertises the last page, the
// remaining pages are fetched concurrently and reassembled in page order.
func (g *gitHubClient) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error) {
	first, resp, err := g.listFilesPage(ctx, owner, repo, number, 1)
	if err != nil {
		return nil, err
	}
	files := first
	if resp.NextPage == 0 || len(first) < filesPerPage {
		return files, nil
	}

	if resp.LastPage > resp.NextPage {
		rest, err := g.listPagesParallel(ctx, owner, repo, number, resp.NextPage, resp.LastPage)
		if err != nil {
			return nil, err
		}
		return append(files, rest...), nil
	}

	page := resp.NextPage
	for page != 0 {
		batch, resp, err := g.listFilesPage(ctx, owner, repo, number, page)
		if err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < filesPerPage {
			break
		}
		page = resp.NextPage
	}
	return files, nil
}

func (g *gitHubClient) listPagesParallel(ctx context.Context, owner, repo string, number, from, to int) ([]core.ChangedFile, error) {
	pages := make([][]core.ChangedFile, to-from+1)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelPages)
	for i := range pages {
		page := from + i
		eg.Go(func() error {
			batch, _, err := g.listFilesPage(egCtx, owner, repo, number, page)
			if err != nil {
				return err
			}
			pages[i] = batch
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var files []core.ChangedFile
	for _, batch := range pages {
		files = append(files, batch...)
		if len(batch) < filesPerPage {
			break
		}
	}
	return files, nil
}

func (g *gitHubClient) listFilesPage(ctx context.Context, owner, repo string, number, page int) ([]core.ChangedFile, *github.Response, error) {
	opts := &github.ListOptions{PerPage: filesPerPage, Page: page}
	files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
	g.observeRate(resp)
	if err != nil {
		g.reportRateLimit(err)
		g.logger.Error("failed to list files for pull request",
			"owner", owner, "repo", repo, "pr", number, "page", page, "error", err)
		return nil, resp, &StatusError{Op: "list pull request files", StatusCode: statusCode(resp), Page: page, Err: err}
	}

	out := make([]core.ChangedFile, 0, len(files))
	for _, f := range files {
		out = append(out, core.ChangedFile{
			Filename:  f.GetFilename(),
			Status:    f.GetStatus(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Patch:     f.GetPatch(),
		})
	}
	return out, resp, nil
}

// CreateReview submits a pull request review with a body and optional inline comments.
func (g *gitHubClient) CreateReview(ctx context.Context, owner, repo string, number int, req ReviewRequest) error {
	ghComments := make([]*github.DraftReviewComment, 0, len(req.Comments))
	for _, c := range req.Comments {
		ghComments = append(ghComments, &github.DraftReviewComment{
			Path: github.Ptr(c.Path),
			Line: github.Ptr(c.Line),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(c.Body),
		})
	}

	event := req.Event
	if event == "" {
		event = EventComment
	}
	reviewRequest := &github.PullRequestReviewRequest{
		Body:     github.Ptr(req.Body),
		Event:    github.Ptr(event),
		Comments: ghComments,
	}
	if req.CommitID != "" {
		reviewRequest.CommitID = github.Ptr(req.CommitID)
	}

	_, resp, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, reviewRequest)
	g.observeRate(resp)
	if err != nil {
		g.reportRateLimit(err)
		g.logger.Error("failed to create pull request review",
			"owner", owner, "repo", repo, "pr", number, "comments", len(ghComments), "error", err)
		return &StatusError{Op: "create review", StatusCode: statusCode(resp), Err: err}
	}
	return nil
}

func (g *gitHubClient) observeRate(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	if resp.Rate.Remaining < lowRateRemaining {
		g.logger.Warn("GitHub rate limit running low",
			"remaining", resp.Rate.Remaining, "limit", resp.Rate.Limit, "reset", resp.Rate.Reset.Time)
	}
}

func (g *gitHubClient) reportRateLimit(err error) {
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		g.logger.Warn("GitHub rate limit exceeded", "limit", rl.Rate.Limit, "reset", rl.Rate.Reset.Time)
		return
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		g.logger.Warn("GitHub secondary rate limit hit", "retry_after", abuse.GetRetryAfter())
	}
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
