// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/storage"
)

// MemoryStore is a goroutine-safe in-memory implementation of storage.Store
// that enforces the same uniqueness and state-machine rules as Postgres.
type MemoryStore struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]*core.User
	connections  map[int64]*core.Connection // by user id
	repos        map[string]*core.Repository
	pullRequests map[int64]*core.PullRequest
	reviews      map[int64]*core.Review
	comments     map[int64][]*core.ReviewComment

	// Fail, when set, is returned by the named operation.
	Fail map[string]error
	// Calls counts invocations per operation.
	Calls map[string]int
}

var _ storage.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        map[int64]*core.User{},
		connections:  map[int64]*core.Connection{},
		repos:        map[string]*core.Repository{},
		pullRequests: map[int64]*core.PullRequest{},
		reviews:      map[int64]*core.Review{},
		comments:     map[int64][]*core.ReviewComment{},
		Fail:         map[string]error{},
		Calls:        map[string]int{},
	}
}

func (m *MemoryStore) enter(op string) error {
	m.Calls[op]++
	return m.Fail[op]
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddConnection stores an OAuth connection for a user.
func (m *MemoryStore) AddConnection(c *core.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.connections[c.UserID] = c
}

// SetUserAPIKey stores an AI-provider key for a user.
func (m *MemoryStore) SetUserAPIKey(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.AIAPIKey = &key
	}
}

// PullRequestCount returns the number of stored pull requests.
func (m *MemoryStore) PullRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pullRequests)
}

// ReviewCount returns the number of stored reviews.
func (m *MemoryStore) ReviewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reviews)
}

func (m *MemoryStore) GetOrCreateUser(_ context.Context, login string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrCreateUser"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	u := &core.User{ID: m.id(), Login: login, CreatedAt: time.Now()}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id int64) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetConnectionForUser(_ context.Context, userID int64) (*core.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetConnectionForUser"); err != nil {
		return nil, err
	}
	c, ok := m.connections[userID]
	if !ok {
		return nil, fmt.Errorf("connection for user %d: %w", userID, core.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) CreateRepository(_ context.Context, repo *core.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateRepository"); err != nil {
		return err
	}
	if _, exists := m.repos[repo.FullName]; exists {
		return fmt.Errorf("repository %s already exists", repo.FullName)
	}
	repo.ID = m.id()
	repo.CreatedAt = time.Now()
	repo.UpdatedAt = repo.CreatedAt
	cp := *repo
	m.repos[repo.FullName] = &cp
	return nil
}

func (m *MemoryStore) GetRepositoryByFullName(_ context.Context, fullName string) (*core.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetRepositoryByFullName"); err != nil {
		return nil, err
	}
	r, ok := m.repos[fullName]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", fullName, core.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListRepositories(_ context.Context) ([]*core.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListRepositories"); err != nil {
		return nil, err
	}
	out := make([]*core.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *MemoryStore) UpsertPullRequest(_ context.Context, pr *core.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpsertPullRequest"); err != nil {
		return err
	}
	for _, existing := range m.pullRequests {
		if existing.RepositoryID == pr.RepositoryID && existing.Number == pr.Number {
			existing.Title = pr.Title
			existing.Status = pr.Status
			existing.UpdatedAt = time.Now()
			*pr = *existing
			return nil
		}
	}
	pr.ID = m.id()
	pr.CreatedAt = time.Now()
	pr.UpdatedAt = pr.CreatedAt
	cp := *pr
	m.pullRequests[pr.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPullRequest(_ context.Context, id int64) (*core.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetPullRequest"); err != nil {
		return nil, err
	}
	pr, ok := m.pullRequests[id]
	if !ok {
		return nil, fmt.Errorf("pull request %d: %w", id, core.ErrNotFound)
	}
	cp := *pr
	return &cp, nil
}

func (m *MemoryStore) GetPullRequestByNumber(_ context.Context, repoID int64, number int) (*core.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetPullRequestByNumber"); err != nil {
		return nil, err
	}
	for _, pr := range m.pullRequests {
		if pr.RepositoryID == repoID && pr.Number == number {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("pull request #%d: %w", number, core.ErrNotFound)
}

func (m *MemoryStore) CreateReview(_ context.Context, review *core.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateReview"); err != nil {
		return err
	}
	if review.Status == "" {
		review.Status = core.ReviewStatusPending
	}
	review.ID = m.id()
	cp := *review
	m.reviews[review.ID] = &cp
	return nil
}

func (m *MemoryStore) GetReview(_ context.Context, id int64) (*core.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetReview"); err != nil {
		return nil, err
	}
	r, ok := m.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %d: %w", id, core.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListReviewsForPullRequest(_ context.Context, pullRequestID int64) ([]*core.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListReviewsForPullRequest"); err != nil {
		return nil, err
	}
	var out []*core.Review
	for _, r := range m.reviews {
		if r.PullRequestID == pullRequestID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateReviewStatus(_ context.Context, id int64, from, to core.ReviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateReviewStatus"); err != nil {
		return err
	}
	if err := core.CheckTransition(from, to); err != nil {
		return err
	}
	r, ok := m.reviews[id]
	if !ok || r.Status != from {
		return fmt.Errorf("%w: review %d is not %s", core.ErrIllegalTransition, id, from)
	}
	r.Status = to
	return nil
}

func (m *MemoryStore) CompleteReview(_ context.Context, id int64, outcome *core.ReviewOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CompleteReview"); err != nil {
		return err
	}
	if err := core.CheckTransition(core.ReviewStatusRunning, outcome.Status); err != nil {
		return err
	}
	r, ok := m.reviews[id]
	if !ok || r.Status != core.ReviewStatusRunning {
		return fmt.Errorf("%w: review %d is not running", core.ErrIllegalTransition, id)
	}
	summary, tokens, completed := outcome.Summary, outcome.TokensUsed, outcome.CompletedAt
	r.Status = outcome.Status
	r.Summary = &summary
	r.TokensUsed = &tokens
	r.CompletedAt = &completed
	if outcome.Status == core.ReviewStatusDone {
		for _, c := range outcome.Comments {
			c.ID = m.id()
			c.ReviewID = id
			c.CreatedAt = completed
			m.comments[id] = append(m.comments[id], &c)
		}
	}
	return nil
}

func (m *MemoryStore) ListReviewComments(_ context.Context, reviewID int64) ([]*core.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListReviewComments"); err != nil {
		return nil, err
	}
	out := make([]*core.ReviewComment, 0, len(m.comments[reviewID]))
	for _, c := range m.comments[reviewID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}
