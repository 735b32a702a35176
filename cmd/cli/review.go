package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/pr-reviewer/internal/core"
	"github.com/sevigo/pr-reviewer/internal/gitutil"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and run pull request reviews",
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review with its summary and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewShow,
}

var reviewListCmd = &cobra.Command{
	Use:     "list <owner/name> <number>",
	Short:   "List the reviews recorded for a pull request",
	Example: `  reviewer-cli review list acme/widgets 42`,
	Args:    cobra.ExactArgs(2),
	RunE:    runReviewList,
}

var reviewRunCmd = &cobra.Command{
	Use:   "run <pr-url>",
	Short: "Review a pull request now and publish the result",
	Long: `Fetch the pull request from GitHub, record it, and run the review pipeline
synchronously. The repository must already be registered.`,
	Example: `  reviewer-cli review run https://github.com/acme/widgets/pull/42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runReviewRun,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewRunCmd)
}

func runReviewShow(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid review id %q", args[0])
	}

	a, cleanup, err := initApp()
	if err != nil {
		return err
	}
	defer cleanup()

	review, err := a.Store.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("review %d not found", id)
		}
		return fmt.Errorf("failed to load review %d: %w", id, err)
	}
	comments, err := a.Store.ListReviewComments(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load comments for review %d: %w", id, err)
	}

	printReview(os.Stdout, review, comments)
	return nil
}

func runReviewList(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	number, err := strconv.Atoi(args[1])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid pull request number %q", args[1])
	}

	a, cleanup, err := initApp()
	if err != nil {
		return err
	}
	defer cleanup()

	repo, err := a.Store.GetRepositoryByFullName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to find repository %s: %w", args[0], err)
	}
	pr, err := a.Store.GetPullRequestByNumber(ctx, repo.ID, number)
	if err != nil {
		return fmt.Errorf("failed to find pull request %s#%d: %w", repo.FullName, number, err)
	}
	reviews, err := a.Store.ListReviewsForPullRequest(ctx, pr.ID)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}

	titleColor.Printf("%s#%d", repo.FullName, pr.Number)
	dimColor.Printf("  %s\n\n", pr.Title)
	if len(reviews) == 0 {
		dimColor.Println("No reviews recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tTOKENS")
	for _, r := range reviews {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			statusLabel(r.Status),
			r.StartedAt.Format(time.RFC822),
			duration(r),
			tokens(r),
		)
	}
	return w.Flush()
}

func runReviewRun(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, number, err := gitutil.ParsePullRequestURL(args[0])
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	a, cleanup, err := initApp()
	if err != nil {
		return err
	}
	defer cleanup()

	fullName := owner + "/" + name
	repo, err := a.Store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("repository %s is not registered\n\nTip: run reviewer-cli repo register %s --owner <login>", fullName, fullName)
		}
		return fmt.Errorf("failed to look up repository %s: %w", fullName, err)
	}

	client, err := a.Clients.ForRepository(ctx, repo, 0)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	ghPR, err := client.GetPullRequest(ctx, owner, name, number)
	if err != nil {
		return fmt.Errorf("failed to fetch PR: %w\n\nTip: Check that the PR exists and the credentials have access", err)
	}

	trigger := core.TriggerFromPullRequest(owner, name, ghPR)
	pr := trigger.PullRequest(repo.ID)
	if err := a.Store.UpsertPullRequest(ctx, pr); err != nil {
		return fmt.Errorf("failed to record pull request: %w", err)
	}

	titleColor.Printf("Reviewing %s#%d", fullName, number)
	dimColor.Printf("  %s\n", pr.Title)

	start := time.Now()
	review, runErr := a.Orchestrator.RunNow(ctx, repo, pr, trigger)
	if review == nil {
		return runErr
	}
	dimColor.Printf("Finished in %s\n", time.Since(start).Round(time.Millisecond))

	comments, err := a.Store.ListReviewComments(ctx, review.ID)
	if err != nil {
		return fmt.Errorf("failed to load comments for review %d: %w", review.ID, err)
	}
	printReview(os.Stdout, review, comments)
	return runErr
}
