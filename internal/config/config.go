// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/pr-reviewer/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig
	Logging  logger.Config
	Database DBConfig
	GitHub   GitHubConfig
	AI       AIConfig
	Review   ReviewConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string
}

// DBConfig configures the Postgres connection pool.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GitHubConfig configures access to the source-control host.
type GitHubConfig struct {
	APIURL            string
	WebhookSecret     string
	AppID             int64
	PrivateKeyPath    string
	RequestsPerSecond float64
}

// AppConfigured reports whether GitHub App credentials are available.
func (g GitHubConfig) AppConfigured() bool {
	return g.AppID > 0 && g.PrivateKeyPath != ""
}

// AIConfig configures the default AI provider.
type AIConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	OllamaHost string
	Timeout    time.Duration
}

// ReviewConfig configures the review pipeline.
type ReviewConfig struct {
	MaxWorkers      int
	QueueSize       int
	RepoCacheTTL    time.Duration
	ExcludePatterns []string
}

var supportedProviders = map[string]bool{
	"openai": true,
	"gemini": true,
	"ollama": true,
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "reviewer")
	v.SetDefault("DB_NAME", "pr_reviewer")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("GITHUB_PRIVATE_KEY_PATH", "")
	v.SetDefault("GITHUB_REQUESTS_PER_SECOND", 10)
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("LLM_TIMEOUT", "3m")
	v.SetDefault("MAX_WORKERS", 5)
	v.SetDefault("QUEUE_SIZE", 100)
	v.SetDefault("REPO_CACHE_TTL", "30s")
	v.SetDefault("DIFF_EXCLUDE_PATTERNS", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{Port: v.GetString("SERVER_PORT")},
		Logging: logger.Config{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		GitHub: GitHubConfig{
			APIURL:            v.GetString("GITHUB_API_URL"),
			WebhookSecret:     v.GetString("GITHUB_WEBHOOK_SECRET"),
			AppID:             v.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath:    v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			RequestsPerSecond: v.GetFloat64("GITHUB_REQUESTS_PER_SECOND"),
		},
		AI: AIConfig{
			Provider:   strings.ToLower(v.GetString("LLM_PROVIDER")),
			Model:      v.GetString("LLM_MODEL"),
			APIKey:     v.GetString("LLM_API_KEY"),
			BaseURL:    v.GetString("LLM_BASE_URL"),
			OllamaHost: v.GetString("OLLAMA_HOST"),
			Timeout:    v.GetDuration("LLM_TIMEOUT"),
		},
		Review: ReviewConfig{
			MaxWorkers:      v.GetInt("MAX_WORKERS"),
			QueueSize:       v.GetInt("QUEUE_SIZE"),
			RepoCacheTTL:    v.GetDuration("REPO_CACHE_TTL"),
			ExcludePatterns: splitList(v.GetString("DIFF_EXCLUDE_PATTERNS")),
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT must be set")
	}
	if !supportedProviders[c.AI.Provider] {
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.AI.Provider)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("LLM_MODEL must be set")
	}
	if c.Review.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.Review.MaxWorkers)
	}
	if c.Review.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be positive, got %d", c.Review.QueueSize)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("GITHUB_REQUESTS_PER_SECOND cannot be negative")
	}
	if (c.GitHub.AppID > 0) != (c.GitHub.PrivateKeyPath != "") {
		return fmt.Errorf("GITHUB_APP_ID and GITHUB_PRIVATE_KEY_PATH must be set together")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
