// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "time"

// PRStatus represents the lifecycle state of a pull request on the source-control host.
type PRStatus string

// PRStatus values.
const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

// User is an account that owns repositories and may carry its own AI-provider key.
type User struct {
	ID        int64     `db:"id"`
	Login     string    `db:"login"`
	AIAPIKey  *string   `db:"ai_api_key"`
	CreatedAt time.Time `db:"created_at"`
}

// Repository is a source-control project registered for automated review.
type Repository struct {
	ID             int64     `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	OwnerID        int64     `db:"owner_id" json:"owner_id"`
	WebhookSecret  *string   `db:"webhook_secret" json:"-"`
	CustomRules    *string   `db:"custom_rules" json:"custom_rules,omitempty"`
	InstallationID *int64    `db:"installation_id" json:"installation_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Secret returns the configured webhook secret or an empty string.
func (r *Repository) Secret() string {
	if r == nil || r.WebhookSecret == nil {
		return ""
	}
	return *r.WebhookSecret
}

// Rules returns the free-text review rules or an empty string.
func (r *Repository) Rules() string {
	if r == nil || r.CustomRules == nil {
		return ""
	}
	return *r.CustomRules
}

// PullRequest is one tracked pull request. (RepositoryID, Number) is unique.
type PullRequest struct {
	ID           int64     `db:"id" json:"id"`
	RepositoryID int64     `db:"repository_id" json:"repository_id"`
	Number       int       `db:"number" json:"number"`
	Title        string    `db:"title" json:"title"`
	Author       string    `db:"author" json:"author"`
	URL          string    `db:"url" json:"url"`
	Status       PRStatus  `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Connection is a user's OAuth link to the source-control host.
type Connection struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AccountID   int64     `db:"account_id"`
	Username    string    `db:"username"`
	AccessToken string    `db:"access_token"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ChangedFile holds the filename and patch data for a single file
// included in a pull request.
type ChangedFile struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
	Patch     string
}
