package core

import (
	"errors"
	"fmt"

	"github.com/google/go-github/v73/github"
)

// ErrIgnoredAction marks pull request events that never trigger a review.
var ErrIgnoredAction = errors.New("pull request action does not trigger a review")

var reviewActions = map[string]struct{}{
	"opened":      {},
	"synchronize": {},
	"reopened":    {},
}

// ReviewTrigger is the internal view of a pull request event that should start a review.
type ReviewTrigger struct {
	Action string

	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRTitle  string
	PRAuthor string
	PRURL    string
	PRStatus PRStatus
	HeadSHA  string

	InstallationID int64
}

// PullRequest returns the pull request record the trigger refers to.
func (t *ReviewTrigger) PullRequest(repositoryID int64) *PullRequest {
	return &PullRequest{
		RepositoryID: repositoryID,
		Number:       t.PRNumber,
		Title:        t.PRTitle,
		Author:       t.PRAuthor,
		URL:          t.PRURL,
		Status:       t.PRStatus,
	}
}

// TriggerFromPullRequestEvent transforms a raw GitHub PullRequestEvent into a
// ReviewTrigger. It acts as an anti-corruption layer: actions other than
// opened, synchronize and reopened yield ErrIgnoredAction, and payloads missing
// the data a review needs are rejected.
func TriggerFromPullRequestEvent(event *github.PullRequestEvent) (*ReviewTrigger, error) {
	if event == nil {
		return nil, fmt.Errorf("event is nil")
	}
	if _, ok := reviewActions[event.GetAction()]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrIgnoredAction, event.GetAction())
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("pull request is missing from the event")
	}

	number := event.GetNumber()
	if number == 0 {
		number = pr.GetNumber()
	}
	if number <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", number)
	}

	fullName := repo.GetFullName()
	if fullName == "" {
		fullName = repo.GetOwner().GetLogin() + "/" + repo.GetName()
	}

	return &ReviewTrigger{
		Action:         event.GetAction(),
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   fullName,
		PRNumber:       number,
		PRTitle:        pr.GetTitle(),
		PRAuthor:       pr.GetUser().GetLogin(),
		PRURL:          pr.GetHTMLURL(),
		PRStatus:       statusFromPullRequest(pr),
		HeadSHA:        pr.GetHead().GetSHA(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

// ManualAction is the trigger action recorded for reviews started by an operator.
const ManualAction = "manual"

// TriggerFromPullRequest builds a trigger for a pull request fetched directly
// from the API rather than delivered by a webhook.
func TriggerFromPullRequest(owner, name string, pr *github.PullRequest) *ReviewTrigger {
	return &ReviewTrigger{
		Action:       ManualAction,
		RepoOwner:    owner,
		RepoName:     name,
		RepoFullName: owner + "/" + name,
		PRNumber:     pr.GetNumber(),
		PRTitle:      pr.GetTitle(),
		PRAuthor:     pr.GetUser().GetLogin(),
		PRURL:        pr.GetHTMLURL(),
		PRStatus:     statusFromPullRequest(pr),
		HeadSHA:      pr.GetHead().GetSHA(),
	}
}

func statusFromPullRequest(pr *github.PullRequest) PRStatus {
	switch {
	case pr.GetMerged():
		return PRStatusMerged
	case pr.GetState() == "closed":
		return PRStatusClosed
	default:
		return PRStatusOpen
	}
}
