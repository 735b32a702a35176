package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		AI:     AIConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Review: ReviewConfig{MaxWorkers: 2, QueueSize: 10},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid config", mutate: func(_ *Config) {}},
		{name: "Missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "Unknown provider", mutate: func(c *Config) { c.AI.Provider = "bard" }, wantErr: true},
		{name: "Missing model", mutate: func(c *Config) { c.AI.Model = "" }, wantErr: true},
		{name: "Zero workers", mutate: func(c *Config) { c.Review.MaxWorkers = 0 }, wantErr: true},
		{name: "Zero queue", mutate: func(c *Config) { c.Review.QueueSize = 0 }, wantErr: true},
		{name: "Negative rate", mutate: func(c *Config) { c.GitHub.RequestsPerSecond = -1 }, wantErr: true},
		{name: "App id without key", mutate: func(c *Config) { c.GitHub.AppID = 12 }, wantErr: true},
		{name: "App id with key", mutate: func(c *Config) {
			c.GitHub.AppID = 12
			c.GitHub.PrivateKeyPath = "key.pem"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LLM_PROVIDER", "OLLAMA")
	t.Setenv("LLM_MODEL", "qwen2.5-coder")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("REPO_CACHE_TTL", "1m")
	t.Setenv("DIFF_EXCLUDE_PATTERNS", "*.pb.go, testdata/ ,")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.AI.Model)
	assert.Equal(t, 3, cfg.Review.MaxWorkers)
	assert.Equal(t, 100, cfg.Review.QueueSize)
	assert.Equal(t, time.Minute, cfg.Review.RepoCacheTTL)
	assert.Equal(t, []string{"*.pb.go", "testdata/"}, cfg.Review.ExcludePatterns)
	assert.Equal(t, "s3cret", cfg.GitHub.WebhookSecret)
	assert.False(t, cfg.GitHub.AppConfigured())
}

func TestLoadReviewRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	content := "instructions:\n  - Flag unchecked errors\nfocus:\n  - concurrency\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadReviewRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flag unchecked errors"}, rules.Instructions)
	assert.Equal(t, []string{"concurrency"}, rules.Focus)

	_, err = LoadReviewRules(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, ErrRulesNotFound))

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("instructions: [unclosed"), 0o600))
	_, err = LoadReviewRules(bad)
	assert.True(t, errors.Is(err, ErrRulesParsing))
}
