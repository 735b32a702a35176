package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/pr-reviewer/internal/app"
	"github.com/sevigo/pr-reviewer/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:          "reviewer-cli",
	Short:        "reviewer-cli administers the PR reviewer service.",
	Long:         `A CLI for registering repositories, inspecting stored reviews and running a review for a single pull request.`,
	SilenceUsage: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(reviewCmd)
}

// initApp builds the service from the same environment the server reads.
// The returned function stops the workers and closes the database.
func initApp() (*app.App, func(), error) {
	a, cleanup, err := wire.InitializeApp()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app services: %w", err)
	}
	return a, func() {
		a.StopWorkers()
		cleanup()
	}, nil
}
