package core

import "context"

// CredentialSource tells where an AI credential came from.
type CredentialSource string

// CredentialSource values.
const (
	CredentialSourceUser    CredentialSource = "user"
	CredentialSourceDefault CredentialSource = "default"
)

// Credential is a usable AI-provider credential.
type Credential struct {
	Provider string
	Model    string
	APIKey   string
	Source   CredentialSource
}

// CredentialResolver resolves the AI-provider credential for a repository,
// preferring a per-user stored key over the shared default.
type CredentialResolver interface {
	Resolve(ctx context.Context, repo *Repository) (*Credential, error)
}
