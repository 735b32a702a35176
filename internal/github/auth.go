package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"golang.org/x/time/rate"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
)

// ConnectionSource looks up a user's stored access token.
type ConnectionSource interface {
	GetConnectionForUser(ctx context.Context, userID int64) (*core.Connection, error)
}

// ClientFactory builds a GitHub client authorized to act on a repository.
type ClientFactory interface {
	ForRepository(ctx context.Context, repo *core.Repository, installationID int64) (Client, error)
}

type clientFactory struct {
	cfg         config.GitHubConfig
	connections ConnectionSource
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClientFactory returns a factory that authorizes with the repository
// owner's connection token, falling back to a GitHub App installation token
// when the app is configured.
func NewClientFactory(cfg config.GitHubConfig, connections ConnectionSource, logger *slog.Logger) ClientFactory {
	return &clientFactory{
		cfg:         cfg,
		connections: connections,
		limiter:     NewRequestLimiter(cfg.RequestsPerSecond),
		logger:      logger,
	}
}

// ForRepository resolves credentials for repo. installationID comes from the
// triggering event and may be zero, in which case the repository's stored
// installation is used.
func (f *clientFactory) ForRepository(ctx context.Context, repo *core.Repository, installationID int64) (Client, error) {
	conn, err := f.connections.GetConnectionForUser(ctx, repo.OwnerID)
	switch {
	case err == nil && conn.AccessToken != "":
		return NewTokenClient(ctx, conn.AccessToken, f.cfg.APIURL, f.limiter, f.logger)
	case err != nil && !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("failed to load connection for user %d: %w", repo.OwnerID, err)
	}

	if installationID == 0 && repo.InstallationID != nil {
		installationID = *repo.InstallationID
	}
	if !f.cfg.AppConfigured() || installationID == 0 {
		return nil, fmt.Errorf("repository %s: %w", repo.FullName, core.ErrNoConnection)
	}
	return f.installationClient(installationID)
}

// installationClient creates a client authenticated as a specific application installation.
// Installation tokens are minted and refreshed by the transport.
func (f *clientFactory) installationClient(installationID int64) (Client, error) {
	f.logger.Info("creating GitHub installation client", "installation_id", installationID)

	privateKey, err := os.ReadFile(f.cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", f.cfg.PrivateKeyPath, err)
	}

	itr, err := ghinstallation.New(http.DefaultTransport, f.cfg.AppID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	if f.cfg.APIURL != "" {
		itr.BaseURL = strings.TrimSuffix(f.cfg.APIURL, "/")
	}

	hc := &http.Client{Transport: NewRateLimitedTransport(itr, f.limiter)}
	client, err := newClientWithBaseURL(hc, f.cfg.APIURL)
	if err != nil {
		return nil, err
	}
	return NewGitHubClient(client, f.logger), nil
}
