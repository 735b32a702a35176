package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/diff"
)

// MaxPromptChars caps the combined size of the per-file segments in one prompt.
const MaxPromptChars = 60000

// Analyzer turns a set of reviewable files into a validated analysis.
type Analyzer interface {
	Analyze(ctx context.Context, gen Generator, provider ModelProvider, files []core.ChangedFile, customRules string) (*core.AnalysisResult, error)
}

type analyzer struct {
	prompts *PromptManager
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer rendering prompts from pm.
func NewAnalyzer(pm *PromptManager, logger *slog.Logger) Analyzer {
	return &analyzer{prompts: pm, logger: logger}
}

// Analyze makes exactly one provider call, using the prompt variant for
// provider when one exists. Provider errors are returned; unusable answers
// are not.
func (a *analyzer) Analyze(ctx context.Context, gen Generator, provider ModelProvider, files []core.ChangedFile, customRules string) (*core.AnalysisResult, error) {
	segments, included := buildSegments(files)
	if len(included) < len(files) {
		a.logger.Info("prompt size limit reached, skipping remaining files",
			"included", len(included), "skipped", len(files)-len(included))
	}

	if provider == "" {
		provider = DefaultProvider
	}
	prompt, err := a.prompts.Render(CodeReviewPrompt, provider, CodeReviewData{
		CustomRules: strings.TrimSpace(customRules),
		Files:       segments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render review prompt: %w", err)
	}

	completion, err := gen.Complete(ctx, CompletionRequest{
		System:      prompt.System,
		User:        prompt.User,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("AI provider call failed: %w", err)
	}

	allowed := make(map[string]struct{}, len(included))
	for _, path := range included {
		allowed[path] = struct{}{}
	}
	summary, comments := parseReviewJSON(completion.Content, allowed)

	a.logger.Debug("analysis complete",
		"files", len(included), "comments", len(comments), "tokens", completion.TotalTokens())

	return &core.AnalysisResult{
		Summary:       summary,
		Comments:      comments,
		TokensUsed:    completion.TotalTokens(),
		IncludedFiles: included,
	}, nil
}

// buildSegments renders one segment per file while the running total stays
// within MaxPromptChars. The first file that would exceed it ends the prompt.
func buildSegments(files []core.ChangedFile) (string, []string) {
	var sb strings.Builder
	included := make([]string, 0, len(files))

	for _, f := range files {
		segment := fileSegment(f)
		if sb.Len()+len(segment) > MaxPromptChars {
			break
		}
		sb.WriteString(segment)
		included = append(included, normalizePath(f.Filename))
	}
	return sb.String(), included
}

func fileSegment(f core.ChangedFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### File: %s\n", f.Filename)
	if ranges := diff.LineRanges(f.Patch); len(ranges) > 0 {
		fmt.Fprintf(&sb, "Commentable lines: %s\n", diff.FormatRanges(ranges))
	}
	sb.WriteString("```diff\n")
	sb.WriteString(strings.TrimRight(f.Patch, "\n"))
	sb.WriteString("\n```\n\n")
	return sb.String()
}
