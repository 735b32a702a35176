package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/credentials"
	"github.com/sevigo/pr-reviewer/internal/diff"
	"github.com/sevigo/pr-reviewer/internal/github"
	"github.com/sevigo/pr-reviewer/internal/jobs"
	"github.com/sevigo/pr-reviewer/internal/llm"
	"github.com/sevigo/pr-reviewer/internal/mocks"
	"github.com/sevigo/pr-reviewer/internal/server/handler"
	"github.com/sevigo/pr-reviewer/internal/storage/storagetest"
)

type staticClients struct{ client github.Client }

func (s staticClients) ForRepository(context.Context, *core.Repository, int64) (github.Client, error) {
	return s.client, nil
}

type cannedGenerator struct{ content string }

func (g cannedGenerator) Complete(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
	return &llm.Completion{Content: g.content, PromptTokens: 400, CompletionTokens: 50}, nil
}

type cannedProviders struct{ gen llm.Generator }

func (p cannedProviders) ForCredential(context.Context, *core.Credential) (llm.Generator, error) {
	return p.gen, nil
}

func TestWebhook_DeliveryRunsReviewToCompletion(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	store := storagetest.NewMemoryStore()
	owner, err := store.GetOrCreateUser(ctx, "octo")
	require.NoError(t, err)
	store.AddConnection(&core.Connection{UserID: owner.ID, AccessToken: "gho_token"})
	require.NoError(t, store.CreateRepository(ctx, &core.Repository{
		FullName:      "octo/app",
		OwnerID:       owner.ID,
		WebhookSecret: ptr(repoSecret),
	}))

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ListPullRequestFiles(gomock.Any(), "octo", "app", 7).Return([]core.ChangedFile{
		{Filename: "db/query.go", Status: "modified", Patch: "@@ -10,1 +10,2 @@\n q := base\n+q += input"},
		{Filename: "yarn.lock", Status: "modified", Patch: "@@ -1 +1 @@\n+x"},
	}, nil)
	published := make(chan github.ReviewRequest, 1)
	client.EXPECT().CreateReview(gomock.Any(), "octo", "app", 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, req github.ReviewRequest) error {
			published <- req
			return nil
		})

	pm, err := llm.NewPromptManager()
	require.NoError(t, err)
	gen := cannedGenerator{content: `{"summary": "Unsafe query.", "comments": [
		{"filePath": "db/query.go", "line": 11, "body": "Input is concatenated into SQL.", "category": "security", "severity": "error"}
	]}`}
	resolver := credentials.NewResolver(store, config.AIConfig{Provider: llm.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"}, logger)
	job := jobs.NewReviewJob(store, staticClients{client: client}, resolver, cannedProviders{gen: gen},
		llm.NewAnalyzer(pm, logger), diff.NewFilter(), logger)
	dispatcher := jobs.NewDispatcher(job, 2, 10, logger)
	t.Cleanup(dispatcher.Stop)
	orch := jobs.NewOrchestrator(store, dispatcher, job, logger)

	e := &env{store: store, handler: handler.NewWebhookHandler(store, orch, "", logger)}
	body := payload("opened", "octo/app")
	rec := e.deliver("pull_request", body, sign(repoSecret, body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ReviewTriggered bool  `json:"reviewTriggered"`
		PullRequestID   int64 `json:"pullRequestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.ReviewTriggered)

	var review *core.Review
	require.Eventually(t, func() bool {
		reviews, err := store.ListReviewsForPullRequest(ctx, resp.PullRequestID)
		if err != nil || len(reviews) != 1 {
			return false
		}
		review = reviews[0]
		return review.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, core.ReviewStatusDone, review.Status)
	require.NotNil(t, review.Summary)
	assert.Equal(t, "Unsafe query.", *review.Summary)
	require.NotNil(t, review.TokensUsed)
	assert.Equal(t, 450, *review.TokensUsed)

	comments, err := store.ListReviewComments(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "db/query.go", comments[0].FilePath)
	assert.Equal(t, 11, comments[0].Line)
	assert.Equal(t, core.SeverityError, comments[0].Severity)

	select {
	case req := <-published:
		assert.Equal(t, "abc123", req.CommitID)
		require.Len(t, req.Comments, 1)
		assert.Equal(t, "db/query.go", req.Comments[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("review was not published")
	}
}
