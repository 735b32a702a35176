package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
)

var (
	registerOwner          string
	registerSecret         string
	registerRulesFile      string
	registerInstallationID int64
	repoListJSON           bool
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories registered for review",
}

var repoRegisterCmd = &cobra.Command{
	Use:   "register <owner/name>",
	Short: "Register a repository so its pull request webhooks trigger reviews",
	Example: `  reviewer-cli repo register acme/widgets --owner octocat
  reviewer-cli repo register acme/widgets --owner octocat --secret s3cr3t --rules-file rules.yml`,
	Args: cobra.ExactArgs(1),
	RunE: runRepoRegister,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE:  runRepoList,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	repoRegisterCmd.Flags().StringVar(&registerOwner, "owner", "", "Login of the user that owns the repository")
	repoRegisterCmd.Flags().StringVar(&registerSecret, "secret", "", "Webhook secret for this repository")
	repoRegisterCmd.Flags().StringVar(&registerRulesFile, "rules-file", "", "YAML file with custom review rules")
	repoRegisterCmd.Flags().Int64Var(&registerInstallationID, "installation-id", 0, "GitHub App installation id")
	_ = repoRegisterCmd.MarkFlagRequired("owner")

	repoListCmd.Flags().BoolVar(&repoListJSON, "json", false, "Output in JSON format")

	repoCmd.AddCommand(repoRegisterCmd)
	repoCmd.AddCommand(repoListCmd)
}

// buildRepository validates the arguments of repo register and returns the
// record to insert, without an owner id.
func buildRepository(fullName, secret, rulesFile string, installationID int64) (*core.Repository, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("repository must be in owner/name form, got %q", fullName)
	}

	repo := &core.Repository{FullName: fullName}
	if secret != "" {
		repo.WebhookSecret = &secret
	}
	if installationID > 0 {
		repo.InstallationID = &installationID
	}
	if rulesFile != "" {
		rules, err := config.LoadReviewRules(rulesFile)
		if err != nil {
			return nil, err
		}
		if text := rules.Text(); text != "" {
			repo.CustomRules = &text
		}
	}
	return repo, nil
}

func runRepoRegister(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	repo, err := buildRepository(args[0], registerSecret, registerRulesFile, registerInstallationID)
	if err != nil {
		return err
	}

	a, cleanup, err := initApp()
	if err != nil {
		return err
	}
	defer cleanup()

	owner, err := a.Store.GetOrCreateUser(ctx, registerOwner)
	if err != nil {
		return fmt.Errorf("failed to resolve owner %s: %w", registerOwner, err)
	}
	repo.OwnerID = owner.ID

	if err := a.Store.CreateRepository(ctx, repo); err != nil {
		return fmt.Errorf("failed to register %s: %w", repo.FullName, err)
	}

	successColor.Printf("Registered %s", repo.FullName)
	dimColor.Printf(" (id %d, owner %s)\n", repo.ID, owner.Login)
	if repo.WebhookSecret == nil && a.Cfg.GitHub.WebhookSecret == "" {
		warnColor.Println("No webhook secret configured: deliveries will be accepted unsigned.")
	}
	return nil
}

func runRepoList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, cleanup, err := initApp()
	if err != nil {
		return err
	}
	defer cleanup()

	repos, err := a.Store.ListRepositories(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve repositories: %w", err)
	}

	if repoListJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(repos)
	}

	if len(repos) == 0 {
		dimColor.Println("No repositories are registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tREPOSITORY\tSECRET\tRULES\tINSTALLATION\tUPDATED")
	for _, repo := range repos {
		installation := "-"
		if repo.InstallationID != nil {
			installation = fmt.Sprintf("%d", *repo.InstallationID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			repo.ID,
			repo.FullName,
			yesNo(repo.Secret() != ""),
			yesNo(repo.Rules() != ""),
			installation,
			repo.UpdatedAt.Format(time.RFC822),
		)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
