package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/pr-reviewer/internal/core"
)

const reviewHeader = "### 🤖 AI Code Review"

// Outcome reports how a review was delivered.
type Outcome string

// Outcome values.
const (
	OutcomeInline   Outcome = "inline"
	OutcomeBodyOnly Outcome = "body_only"
)

// Target identifies the pull request a review is posted to.
type Target struct {
	Owner   string
	Repo    string
	Number  int
	HeadSHA string
}

// Publisher posts a completed review to a pull request.
type Publisher interface {
	Publish(ctx context.Context, target Target, summary string, comments []core.ReviewComment) (Outcome, error)
}

type publisher struct {
	client Client
	logger *slog.Logger
}

// NewPublisher creates a Publisher that submits reviews through client.
func NewPublisher(client Client, logger *slog.Logger) Publisher {
	return &publisher{client: client, logger: logger}
}

// Publish submits one review with inline comments. If GitHub rejects it for
// any reason, it retries once with every comment folded into the body.
func (p *publisher) Publish(ctx context.Context, target Target, summary string, comments []core.ReviewComment) (Outcome, error) {
	body := formatReviewBody(summary, comments)

	inline := make([]DraftReviewComment, 0, len(comments))
	for _, c := range comments {
		inline = append(inline, DraftReviewComment{
			Path: c.FilePath,
			Line: c.Line,
			Body: formatInlineComment(c),
		})
	}

	err := p.client.CreateReview(ctx, target.Owner, target.Repo, target.Number, ReviewRequest{
		CommitID: target.HeadSHA,
		Body:     body,
		Event:    reviewEvent(comments),
		Comments: inline,
	})
	if err == nil {
		return OutcomeInline, nil
	}

	p.logger.Warn("inline review rejected, falling back to body-only review",
		"owner", target.Owner, "repo", target.Repo, "pr", target.Number, "error", err)

	err = p.client.CreateReview(ctx, target.Owner, target.Repo, target.Number, ReviewRequest{
		CommitID: target.HeadSHA,
		Body:     body + formatFallbackList(comments),
		Event:    EventComment,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish body-only review: %w", err)
	}
	return OutcomeBodyOnly, nil
}

func reviewEvent(comments []core.ReviewComment) string {
	for _, c := range comments {
		if c.Severity == core.SeverityError {
			return EventRequestChanges
		}
	}
	return EventComment
}

// formatReviewBody renders the header, the summary and a severity breakdown.
func formatReviewBody(summary string, comments []core.ReviewComment) string {
	var sb strings.Builder
	sb.WriteString(reviewHeader)
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(summary))

	if len(comments) == 0 {
		return sb.String()
	}

	counts := make(map[core.Severity]int, len(core.Severities))
	for _, c := range comments {
		counts[c.Severity]++
	}

	sb.WriteString("\n\n---\n")
	sb.WriteString("| Severity | Count |\n")
	sb.WriteString("|----------|-------|\n")
	for _, sev := range core.Severities {
		fmt.Fprintf(&sb, "| %s %s | %d |\n", severityEmoji(sev), sev, counts[sev])
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// formatInlineComment prefixes the body with a severity badge and category.
func formatInlineComment(c core.ReviewComment) string {
	return fmt.Sprintf("**%s %s** · `%s`\n\n%s",
		severityEmoji(c.Severity), strings.ToUpper(string(c.Severity)), c.Category, c.Body)
}

func formatFallbackList(comments []core.ReviewComment) string {
	if len(comments) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n#### Comments\n\n")
	for _, c := range comments {
		// continuation lines are indented to stay inside the list item
		body := strings.ReplaceAll(strings.TrimSpace(c.Body), "\n", "\n  ")
		fmt.Fprintf(&sb, "- `%s:%d` [%s/%s] %s\n", c.FilePath, c.Line, c.Severity, c.Category, body)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// severityEmoji returns an emoji for the given severity level.
func severityEmoji(severity core.Severity) string {
	switch severity {
	case core.SeverityError:
		return "🔴"
	case core.SeverityWarning:
		return "🟡"
	case core.SeverityInfo:
		return "🔵"
	default:
		return "⚪"
	}
}
