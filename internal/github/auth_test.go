package github

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
)

type fakeConnections struct {
	conn *core.Connection
	err  error
}

func (f fakeConnections) GetConnectionForUser(context.Context, int64) (*core.Connection, error) {
	return f.conn, f.err
}

func TestClientFactory_ForRepository(t *testing.T) {
	installation := int64(99)
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name    string
		cfg     config.GitHubConfig
		conns   fakeConnections
		repo    *core.Repository
		wantErr error
	}{
		{
			name:  "owner connection token",
			conns: fakeConnections{conn: &core.Connection{UserID: 1, AccessToken: "gho_token"}},
			repo:  &core.Repository{FullName: "octo/app", OwnerID: 1},
		},
		{
			name:    "no connection and no app",
			conns:   fakeConnections{err: core.ErrNotFound},
			repo:    &core.Repository{FullName: "octo/app", OwnerID: 1, InstallationID: &installation},
			wantErr: core.ErrNoConnection,
		},
		{
			name:    "app configured but repository has no installation",
			cfg:     config.GitHubConfig{AppID: 12, PrivateKeyPath: "/nonexistent/key.pem"},
			conns:   fakeConnections{err: core.ErrNotFound},
			repo:    &core.Repository{FullName: "octo/app", OwnerID: 1},
			wantErr: core.ErrNoConnection,
		},
		{
			name:  "store failure is not treated as missing connection",
			conns: fakeConnections{err: errors.New("connection refused")},
			repo:  &core.Repository{FullName: "octo/app", OwnerID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewClientFactory(tt.cfg, tt.conns, logger)
			client, err := f.ForRepository(context.Background(), tt.repo, 0)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
			case tt.conns.err != nil:
				require.Error(t, err)
				assert.NotErrorIs(t, err, core.ErrNoConnection)
			default:
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestClientFactory_InstallationKeyMissing(t *testing.T) {
	installation := int64(99)
	cfg := config.GitHubConfig{AppID: 12, PrivateKeyPath: "/nonexistent/key.pem"}
	f := NewClientFactory(cfg, fakeConnections{err: core.ErrNotFound}, slog.New(slog.DiscardHandler))

	_, err := f.ForRepository(context.Background(), &core.Repository{FullName: "octo/app", InstallationID: &installation}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}

func TestNewRequestLimiter(t *testing.T) {
	assert.Nil(t, NewRequestLimiter(0))
	assert.Nil(t, NewRequestLimiter(-1))

	l := NewRequestLimiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())

	assert.Equal(t, 10, NewRequestLimiter(10).Burst())
}
