// Package handler provides HTTP handlers for the review service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/pr-reviewer/internal/core"
)

const (
	// maxPayloadBytes matches GitHub's webhook payload cap.
	maxPayloadBytes = 25 << 20

	signatureHeader  = "X-Hub-Signature-256"
	pullRequestEvent = "pull_request"
)

// RepositoryStore is the persistence the webhook needs.
type RepositoryStore interface {
	GetRepositoryByFullName(ctx context.Context, fullName string) (*core.Repository, error)
	UpsertPullRequest(ctx context.Context, pr *core.PullRequest) error
}

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	store        RepositoryStore
	triggerer    core.ReviewTriggerer
	globalSecret string
	logger       *slog.Logger
}

// NewWebhookHandler creates a webhook handler. globalSecret verifies deliveries
// for repositories without their own secret and may be empty.
func NewWebhookHandler(store RepositoryStore, triggerer core.ReviewTriggerer, globalSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:        store,
		triggerer:    triggerer,
		globalSecret: globalSecret,
		logger:       logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type triggeredResponse struct {
	ReviewTriggered bool  `json:"reviewTriggered"`
	PullRequestID   int64 `json:"pullRequestId"`
}

// Handle processes GitHub webhook requests. It returns as soon as the review
// is queued and never waits on the pipeline.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "could not read payload"})
		return
	}

	eventType := github.WebHookType(r)
	if eventType != pullRequestEvent {
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		writeJSON(w, http.StatusOK, messageResponse{Message: "event type not handled"})
		return
	}

	parsed, err := github.ParseWebHook(eventType, body)
	if err != nil {
		h.logger.Warn("could not parse webhook", "error", err)
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "could not parse webhook"})
		return
	}
	event, ok := parsed.(*github.PullRequestEvent)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "unexpected payload"})
		return
	}

	trigger, err := core.TriggerFromPullRequestEvent(event)
	if err != nil {
		if errors.Is(err, core.ErrIgnoredAction) {
			h.logger.Debug("ignoring pull request action", "action", event.GetAction(), "repo", event.GetRepo().GetFullName())
			writeJSON(w, http.StatusOK, messageResponse{Message: "action ignored"})
			return
		}
		h.logger.Warn("malformed pull request event", "error", err)
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "malformed pull request event"})
		return
	}

	ctx := r.Context()
	repo, err := h.store.GetRepositoryByFullName(ctx, trigger.RepoFullName)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			h.logger.Info("webhook for unregistered repository", "repo", trigger.RepoFullName)
			writeJSON(w, http.StatusOK, messageResponse{Message: "repository not registered"})
			return
		}
		h.logger.Error("failed to look up repository", "repo", trigger.RepoFullName, "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
		return
	}

	if !h.verify(r, body, repo) {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid signature"})
		return
	}

	pr := trigger.PullRequest(repo.ID)
	if err := h.store.UpsertPullRequest(ctx, pr); err != nil {
		h.logger.Error("failed to upsert pull request", "repo", repo.FullName, "pr", trigger.PRNumber, "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "failed to store pull request"})
		return
	}

	if _, err := h.triggerer.Trigger(ctx, repo, pr, trigger); err != nil {
		h.logger.Error("failed to trigger review", "repo", repo.FullName, "pr", pr.Number, "error", err)
	}

	writeJSON(w, http.StatusCreated, triggeredResponse{ReviewTriggered: true, PullRequestID: pr.ID})
}

// verify checks the delivery signature against the repository secret or,
// failing that, the global secret. Without any secret the delivery is accepted.
func (h *WebhookHandler) verify(r *http.Request, body []byte, repo *core.Repository) bool {
	secret := repo.Secret()
	if secret == "" {
		secret = h.globalSecret
	}
	if secret == "" {
		h.logger.Warn("no webhook secret configured, accepting unsigned delivery", "repo", repo.FullName)
		return true
	}

	if err := github.ValidateSignature(r.Header.Get(signatureHeader), body, []byte(secret)); err != nil {
		h.logger.Warn("invalid webhook signature", "repo", repo.FullName, "error", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
