package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/sevigo/pr-reviewer/internal/core"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

const wrapWidth = 100

func statusLabel(s core.ReviewStatus) string {
	switch s {
	case core.ReviewStatusDone:
		return successColor.Sprint(s)
	case core.ReviewStatusError:
		return errorColor.Sprint(s)
	case core.ReviewStatusRunning:
		return warnColor.Sprint(s)
	default:
		return dimColor.Sprint(s)
	}
}

func severityBadge(s core.Severity) string {
	label := " " + strings.ToUpper(string(s)) + " "
	switch s {
	case core.SeverityError:
		return color.New(color.BgRed, color.FgWhite, color.Bold).Sprint(label)
	case core.SeverityWarning:
		return color.New(color.BgYellow, color.FgBlack).Sprint(label)
	default:
		return color.New(color.BgBlue, color.FgWhite).Sprint(label)
	}
}

func duration(r *core.Review) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func tokens(r *core.Review) string {
	if r.TokensUsed == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *r.TokensUsed)
}

// renderMarkdown renders model output for the terminal, returning the input
// unchanged if rendering fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printReview(w io.Writer, review *core.Review, comments []*core.ReviewComment) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w)
	titleColor.Fprintln(w, separator)
	titleColor.Fprintf(w, "REVIEW #%d\n", review.ID)
	titleColor.Fprintln(w, separator)
	fmt.Fprintf(w, "Status:   %s\n", statusLabel(review.Status))
	fmt.Fprintf(w, "Duration: %s\n", duration(review))
	fmt.Fprintf(w, "Tokens:   %s\n", tokens(review))

	if review.Summary != nil && strings.TrimSpace(*review.Summary) != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderMarkdown(*review.Summary))
	}

	if len(comments) == 0 {
		if review.Status == core.ReviewStatusDone {
			fmt.Fprintln(w)
			successColor.Fprintln(w, "No issues found!")
		}
		return
	}

	fmt.Fprintln(w)
	warnColor.Fprintf(w, "COMMENTS (%d)\n", len(comments))
	for _, c := range comments {
		fmt.Fprintln(w)
		fmt.Fprint(w, severityBadge(c.Severity))
		boldColor.Fprintf(w, " %s", c.FilePath)
		dimColor.Fprintf(w, ":%d  [%s]\n", c.Line, c.Category)
		fmt.Fprint(w, renderMarkdown(c.Body))
	}
}
