package core

import (
	"errors"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPullRequestEvent(action string) *github.PullRequestEvent {
	return &github.PullRequestEvent{
		Action: github.Ptr(action),
		Number: github.Ptr(42),
		Repo: &github.Repository{
			Name:     github.Ptr("widgets"),
			FullName: github.Ptr("acme/widgets"),
			Owner:    &github.User{Login: github.Ptr("acme")},
		},
		PullRequest: &github.PullRequest{
			Number:  github.Ptr(42),
			Title:   github.Ptr("Add widget cache"),
			HTMLURL: github.Ptr("https://github.com/acme/widgets/pull/42"),
			State:   github.Ptr("open"),
			User:    &github.User{Login: github.Ptr("octocat")},
			Head:    &github.PullRequestBranch{SHA: github.Ptr("abc123")},
		},
		Installation: &github.Installation{ID: github.Ptr(int64(7))},
	}
}

func TestTriggerFromPullRequestEvent(t *testing.T) {
	for _, action := range []string{"opened", "synchronize", "reopened"} {
		t.Run(action, func(t *testing.T) {
			trigger, err := TriggerFromPullRequestEvent(newPullRequestEvent(action))
			require.NoError(t, err)
			assert.Equal(t, "acme", trigger.RepoOwner)
			assert.Equal(t, "widgets", trigger.RepoName)
			assert.Equal(t, "acme/widgets", trigger.RepoFullName)
			assert.Equal(t, 42, trigger.PRNumber)
			assert.Equal(t, "Add widget cache", trigger.PRTitle)
			assert.Equal(t, "octocat", trigger.PRAuthor)
			assert.Equal(t, PRStatusOpen, trigger.PRStatus)
			assert.Equal(t, "abc123", trigger.HeadSHA)
			assert.Equal(t, int64(7), trigger.InstallationID)
		})
	}
}

func TestTriggerFromPullRequestEvent_Ignored(t *testing.T) {
	for _, action := range []string{"closed", "labeled", "edited", ""} {
		t.Run(action, func(t *testing.T) {
			_, err := TriggerFromPullRequestEvent(newPullRequestEvent(action))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIgnoredAction))
		})
	}
}

func TestTriggerFromPullRequestEvent_Invalid(t *testing.T) {
	noRepo := newPullRequestEvent("opened")
	noRepo.Repo = nil
	_, err := TriggerFromPullRequestEvent(noRepo)
	assert.Error(t, err)

	noPR := newPullRequestEvent("opened")
	noPR.PullRequest = nil
	_, err = TriggerFromPullRequestEvent(noPR)
	assert.Error(t, err)

	badNumber := newPullRequestEvent("opened")
	badNumber.Number = github.Ptr(0)
	badNumber.PullRequest.Number = nil
	_, err = TriggerFromPullRequestEvent(badNumber)
	assert.Error(t, err)
}

func TestTriggerFromPullRequest(t *testing.T) {
	pr := newPullRequestEvent("opened").PullRequest
	pr.Merged = github.Ptr(true)
	pr.State = github.Ptr("closed")

	trigger := TriggerFromPullRequest("acme", "widgets", pr)
	assert.Equal(t, ManualAction, trigger.Action)
	assert.Equal(t, "acme/widgets", trigger.RepoFullName)
	assert.Equal(t, 42, trigger.PRNumber)
	assert.Equal(t, "octocat", trigger.PRAuthor)
	assert.Equal(t, PRStatusMerged, trigger.PRStatus)
	assert.Equal(t, "abc123", trigger.HeadSHA)
	assert.Zero(t, trigger.InstallationID)

	record := trigger.PullRequest(9)
	assert.Equal(t, int64(9), record.RepositoryID)
	assert.Equal(t, 42, record.Number)
	assert.Equal(t, "Add widget cache", record.Title)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", record.URL)
	assert.Equal(t, PRStatusMerged, record.Status)
}

func TestReviewRulesText(t *testing.T) {
	rules := &ReviewRules{
		Instructions: []string{"Prefer table-driven tests", "  "},
		Focus:        []string{"sql injection", "goroutine leaks"},
		Ignore:       []string{"docs/"},
	}
	assert.Equal(t,
		"- Prefer table-driven tests\n- Focus on: sql injection, goroutine leaks\n- Do not comment on: docs/",
		rules.Text())

	var empty *ReviewRules
	assert.Empty(t, empty.Text())
}
