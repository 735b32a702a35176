// Package credentials resolves which AI-provider key a review run uses.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
)

// UserSource loads repository owners.
type UserSource interface {
	GetUser(ctx context.Context, id int64) (*core.User, error)
}

type resolver struct {
	users  UserSource
	ai     config.AIConfig
	logger *slog.Logger
}

// NewResolver returns a resolver that prefers the repository owner's stored
// key and falls back to the configured shared key.
func NewResolver(users UserSource, ai config.AIConfig, logger *slog.Logger) core.CredentialResolver {
	return &resolver{users: users, ai: ai, logger: logger}
}

func (r *resolver) Resolve(ctx context.Context, repo *core.Repository) (*core.Credential, error) {
	user, err := r.users.GetUser(ctx, repo.OwnerID)
	switch {
	case err == nil:
		if user.AIAPIKey != nil && strings.TrimSpace(*user.AIAPIKey) != "" {
			return r.credential(strings.TrimSpace(*user.AIAPIKey), core.CredentialSourceUser), nil
		}
	case errors.Is(err, core.ErrNotFound):
		r.logger.Warn("repository owner not found, using default AI credential",
			"repo", repo.FullName, "owner_id", repo.OwnerID)
	default:
		return nil, fmt.Errorf("failed to load repository owner %d: %w", repo.OwnerID, err)
	}

	// ollama is served locally and needs no key
	if r.ai.APIKey == "" && r.ai.Provider != "ollama" {
		return nil, fmt.Errorf("repository %s: %w", repo.FullName, core.ErrNoCredential)
	}
	return r.credential(r.ai.APIKey, core.CredentialSourceDefault), nil
}

func (r *resolver) credential(key string, source core.CredentialSource) *core.Credential {
	return &core.Credential{
		Provider: r.ai.Provider,
		Model:    r.ai.Model,
		APIKey:   key,
		Source:   source,
	}
}
