package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/pr-reviewer/internal/server/handler"
	"github.com/sevigo/pr-reviewer/internal/storage/storagetest"
)

type stubChecker struct{ err error }

func (s *stubChecker) Check(context.Context) error { return s.err }

func TestRouter(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	webhook := handler.NewWebhookHandler(storagetest.NewMemoryStore(), nil, "", logger)
	checker := &stubChecker{}
	r := NewRouter(webhook, checker, logger)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	checker.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", strings.NewReader(`{}`))
	req.Header.Set("X-GitHub-Event", "ping")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhook/github", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
