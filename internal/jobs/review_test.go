package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/diff"
	"github.com/sevigo/pr-reviewer/internal/github"
	"github.com/sevigo/pr-reviewer/internal/llm"
	"github.com/sevigo/pr-reviewer/internal/mocks"
	"github.com/sevigo/pr-reviewer/internal/storage/storagetest"
)

type fakeClients struct {
	client github.Client
	err    error
}

func (f fakeClients) ForRepository(context.Context, *core.Repository, int64) (github.Client, error) {
	return f.client, f.err
}

type fakeCredentials struct{ err error }

func (f fakeCredentials) Resolve(context.Context, *core.Repository) (*core.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Credential{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk", Source: core.CredentialSourceDefault}, nil
}

type fakeGenerator struct {
	content string
	err     error
	calls   int
	panics  bool
}

func (g *fakeGenerator) Complete(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
	g.calls++
	if g.panics {
		panic("provider exploded")
	}
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Completion{Content: g.content, PromptTokens: 900, CompletionTokens: 100}, nil
}

type fakeProviders struct{ gen *fakeGenerator }

func (f fakeProviders) ForCredential(context.Context, *core.Credential) (llm.Generator, error) {
	return f.gen, nil
}

type pipeline struct {
	store *storagetest.MemoryStore
	repo  *core.Repository
	pr    *core.PullRequest
	orch  *Orchestrator
}

func newPipeline(t *testing.T, clients github.ClientFactory, creds core.CredentialResolver, gen *fakeGenerator) *pipeline {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	store := storagetest.NewMemoryStore()
	owner, err := store.GetOrCreateUser(ctx, "octocat")
	require.NoError(t, err)
	repo := &core.Repository{FullName: "octo/app", OwnerID: owner.ID}
	require.NoError(t, store.CreateRepository(ctx, repo))
	pr := &core.PullRequest{RepositoryID: repo.ID, Number: 7, Title: "Add query", Status: core.PRStatusOpen}
	require.NoError(t, store.UpsertPullRequest(ctx, pr))

	pm, err := llm.NewPromptManager()
	require.NoError(t, err)

	job := NewReviewJob(store, clients, creds, fakeProviders{gen: gen}, llm.NewAnalyzer(pm, logger), diff.NewFilter(), logger)
	return &pipeline{
		store: store,
		repo:  repo,
		pr:    pr,
		orch:  NewOrchestrator(store, nil, job, logger),
	}
}

func (p *pipeline) run(t *testing.T) (*core.Review, []*core.ReviewComment, error) {
	t.Helper()
	trigger := &core.ReviewTrigger{
		Action: "opened", RepoOwner: "octo", RepoName: "app", RepoFullName: "octo/app",
		PRNumber: 7, HeadSHA: "abc123",
	}
	review, err := p.orch.RunNow(context.Background(), p.repo, p.pr, trigger)
	require.NotNil(t, review)
	comments, listErr := p.store.ListReviewComments(context.Background(), review.ID)
	require.NoError(t, listErr)
	return review, comments, err
}

var changedFiles = []core.ChangedFile{
	{Filename: "db/query.go", Status: "modified", Patch: "@@ -10,1 +10,2 @@\n q := base\n+q += input"},
	{Filename: "go.sum", Status: "modified", Patch: "@@ -1 +1 @@\n+h1:abc"},
	{Filename: "main.go", Status: "modified", Patch: "@@ -1 +1,2 @@\n package main\n+import \"os\""},
}

const modelAnswer = `{"summary": "The query is built unsafely.", "comments": [
	{"filePath": "db/query.go", "line": 11, "body": "User input is concatenated into SQL.", "category": "security", "severity": "error"},
	{"filePath": "go.sum", "line": 1, "body": "Filtered file, must be dropped."}
]}`

func TestReviewJob_DoneWithComments(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return(changedFiles, nil)

	var published github.ReviewRequest
	client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, req github.ReviewRequest) error {
			published = req
			return nil
		})

	gen := &fakeGenerator{content: modelAnswer}
	p := newPipeline(t, fakeClients{client: client}, fakeCredentials{}, gen)

	review, comments, err := p.run(t)
	require.NoError(t, err)

	assert.Equal(t, core.ReviewStatusDone, review.Status)
	assert.Equal(t, "The query is built unsafely.", *review.Summary)
	assert.Equal(t, 1000, *review.TokensUsed)
	assert.NotNil(t, review.CompletedAt)
	require.Len(t, comments, 1)
	assert.Equal(t, "db/query.go", comments[0].FilePath)
	assert.Equal(t, 11, comments[0].Line)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, github.EventRequestChanges, published.Event)
	assert.Equal(t, "abc123", published.CommitID)
	require.Len(t, published.Comments, 1)
}

type recordingAnalyzer struct {
	provider llm.ModelProvider
}

func (a *recordingAnalyzer) Analyze(_ context.Context, _ llm.Generator, provider llm.ModelProvider, files []core.ChangedFile, _ string) (*core.AnalysisResult, error) {
	a.provider = provider
	return &core.AnalysisResult{Summary: "Looks fine.", IncludedFiles: []string{files[0].Filename}}, nil
}

func TestReviewJob_PassesCredentialProviderToAnalyzer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return(changedFiles, nil)
	client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).Return(nil)

	p := newPipeline(t, fakeClients{client: client}, fakeCredentials{}, &fakeGenerator{})
	analyzer := &recordingAnalyzer{}
	logger := slog.New(slog.DiscardHandler)
	job := NewReviewJob(p.store, fakeClients{client: client}, fakeCredentials{}, fakeProviders{gen: &fakeGenerator{}}, analyzer, diff.NewFilter(), logger)
	p.orch = NewOrchestrator(p.store, nil, job, logger)

	review, _, err := p.run(t)
	require.NoError(t, err)
	assert.Equal(t, core.ReviewStatusDone, review.Status)
	assert.Equal(t, llm.ModelProvider(llm.ProviderOpenAI), analyzer.provider)
}

func TestReviewJob_EmptyDiff(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return([]core.ChangedFile{
		{Filename: "package-lock.json", Patch: "@@ -1 +1 @@\n+{}"},
		{Filename: "docs/logo.png"},
	}, nil)
	// no CreateReview expectation: nothing is published

	gen := &fakeGenerator{content: modelAnswer}
	p := newPipeline(t, fakeClients{client: client}, fakeCredentials{}, gen)

	review, comments, err := p.run(t)
	require.NoError(t, err)

	assert.Equal(t, core.ReviewStatusDone, review.Status)
	assert.Equal(t, EmptyDiffSummary, *review.Summary)
	assert.Equal(t, 0, *review.TokensUsed)
	assert.Empty(t, comments)
	assert.Zero(t, gen.calls)
}

func TestReviewJob_InlineFailureFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return(changedFiles, nil)
	gomock.InOrder(
		client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).
			Return(&github.StatusError{Op: "create review", StatusCode: http.StatusUnprocessableEntity, Err: errors.New("line must be part of the diff")}),
		client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, _ int, req github.ReviewRequest) error {
				assert.Empty(t, req.Comments)
				assert.Equal(t, github.EventComment, req.Event)
				assert.Contains(t, req.Body, "db/query.go:11")
				return nil
			}),
	)

	p := newPipeline(t, fakeClients{client: client}, fakeCredentials{}, &fakeGenerator{content: modelAnswer})

	review, comments, err := p.run(t)
	require.NoError(t, err)
	assert.Equal(t, core.ReviewStatusDone, review.Status)
	assert.Len(t, comments, 1)
}

func TestReviewJob_PublishFailureKeepsDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return(changedFiles, nil)
	client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).
		Return(errors.New("forbidden")).Times(2)

	p := newPipeline(t, fakeClients{client: client}, fakeCredentials{}, &fakeGenerator{content: modelAnswer})

	review, _, err := p.run(t)
	require.NoError(t, err)
	assert.Equal(t, core.ReviewStatusDone, review.Status)
}

func TestReviewJob_Failures(t *testing.T) {
	diffErr := &github.StatusError{Op: "list pull request files", StatusCode: http.StatusBadGateway, Page: 2, Err: errors.New("bad gateway")}

	tests := []struct {
		name        string
		clientErr   error
		listErr     error
		credErr     error
		gen         *fakeGenerator
		wantSummary []string
	}{
		{
			name:        "diff host non-2xx",
			listErr:     diffErr,
			gen:         &fakeGenerator{},
			wantSummary: []string{"502", "page 2"},
		},
		{
			name:        "no connection",
			clientErr:   core.ErrNoConnection,
			gen:         &fakeGenerator{},
			wantSummary: []string{core.ErrNoConnection.Error()},
		},
		{
			name:        "no credential",
			credErr:     core.ErrNoCredential,
			gen:         &fakeGenerator{},
			wantSummary: []string{core.ErrNoCredential.Error()},
		},
		{
			name:        "provider transport error",
			gen:         &fakeGenerator{err: errors.New("connection reset by peer")},
			wantSummary: []string{"connection reset by peer"},
		},
		{
			name:        "panic during analysis",
			gen:         &fakeGenerator{panics: true},
			wantSummary: []string{"panicked", "provider exploded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			if tt.clientErr == nil {
				client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return(changedFiles, tt.listErr)
			}

			p := newPipeline(t, fakeClients{client: client, err: tt.clientErr}, fakeCredentials{err: tt.credErr}, tt.gen)

			review, comments, err := p.run(t)
			require.Error(t, err)
			assert.Equal(t, core.ReviewStatusError, review.Status)
			require.NotNil(t, review.Summary)
			for _, want := range tt.wantSummary {
				assert.Contains(t, *review.Summary, want)
			}
			assert.NotNil(t, review.CompletedAt)
			assert.Empty(t, comments)
		})
	}
}

func TestReviewJob_RejectsReviewNotPending(t *testing.T) {
	p := newPipeline(t, fakeClients{}, fakeCredentials{}, &fakeGenerator{})
	ctx := context.Background()

	review := &core.Review{PullRequestID: p.pr.ID, Status: core.ReviewStatusPending}
	require.NoError(t, p.store.CreateReview(ctx, review))
	require.NoError(t, p.store.UpdateReviewStatus(ctx, review.ID, core.ReviewStatusPending, core.ReviewStatusRunning))

	err := p.orch.job.Run(ctx, &core.ReviewTask{
		ReviewID: review.ID, Repository: p.repo,
		Trigger: &core.ReviewTrigger{RepoOwner: "octo", RepoName: "app", RepoFullName: "octo/app", PRNumber: 7},
	})
	require.ErrorIs(t, err, core.ErrIllegalTransition)
}
