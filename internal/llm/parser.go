package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sevigo/pr-reviewer/internal/core"
)

// Summaries used when the model's answer cannot be used.
const (
	summaryEmptyResponse = "The AI provider returned an empty response, so no review comments were produced."
	summaryInvalidJSON   = "The AI provider returned a response that was not valid JSON, so no review comments were produced."
	summaryMissing       = "The AI review did not include a summary."
)

type rawReview struct {
	Summary  string            `json:"summary"`
	Comments []json.RawMessage `json:"comments"`
}

type rawComment struct {
	FilePath string          `json:"filePath"`
	Line     json.RawMessage `json:"line"`
	Body     string          `json:"body"`
	Category string          `json:"category"`
	Severity string          `json:"severity"`
}

// parseReviewJSON validates the model output against the files that were
// part of the prompt. It never fails: unusable output yields no comments and
// an explanatory summary.
func parseReviewJSON(content string, included map[string]struct{}) (string, []core.ReviewComment) {
	content = stripJSONFence(content)
	if content == "" {
		return summaryEmptyResponse, nil
	}

	var review rawReview
	if err := json.Unmarshal([]byte(content), &review); err != nil {
		return summaryInvalidJSON, nil
	}

	summary := cleanText(review.Summary)
	if summary == "" {
		summary = summaryMissing
	}

	comments := make([]core.ReviewComment, 0, len(review.Comments))
	for _, raw := range review.Comments {
		var rc rawComment
		if err := json.Unmarshal(raw, &rc); err != nil {
			continue
		}
		path := normalizePath(rc.FilePath)
		if _, ok := included[path]; !ok {
			continue
		}
		line, ok := parseLine(rc.Line)
		if !ok {
			continue
		}
		body := cleanText(rc.Body)
		if body == "" {
			continue
		}
		comments = append(comments, core.ReviewComment{
			FilePath: path,
			Line:     line,
			Body:     body,
			Category: core.NormalizeCategory(rc.Category),
			Severity: core.NormalizeSeverity(rc.Severity),
		})
	}
	return summary, comments
}

// parseLine accepts only a JSON number holding a positive integer.
func parseLine(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// cleanText drops NUL bytes, which PostgreSQL text columns reject.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// stripJSONFence removes ```json ... ``` wrapping that some LLMs add around their output.
func stripJSONFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return ""
	}
	inner := trimmed[idx+1:]
	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}
