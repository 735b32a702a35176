package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/pr-reviewer/internal/config"
	"github.com/sevigo/pr-reviewer/internal/core"
)

// Supported provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// ProviderFactory builds a Generator for a resolved credential.
type ProviderFactory interface {
	ForCredential(ctx context.Context, cred *core.Credential) (Generator, error)
}

type providerFactory struct {
	cfg        config.AIConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProviderFactory creates a factory sharing one HTTP client across providers.
func NewProviderFactory(cfg config.AIConfig, logger *slog.Logger) ProviderFactory {
	return &providerFactory{
		cfg:        cfg,
		httpClient: newProviderHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

func (f *providerFactory) ForCredential(ctx context.Context, cred *core.Credential) (Generator, error) {
	switch cred.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(f.cfg.BaseURL, cred.APIKey, cred.Model, f.httpClient)

	case ProviderGemini:
		if cred.APIKey == "" {
			return nil, fmt.Errorf("gemini provider: %w", core.ErrNoCredential)
		}
		model, err := gemini.New(ctx,
			gemini.WithModel(cred.Model),
			gemini.WithAPIKey(cred.APIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return NewModelGenerator(model), nil

	case ProviderOllama:
		model, err := ollama.New(
			ollama.WithServerURL(f.cfg.OllamaHost),
			ollama.WithHTTPClient(f.httpClient),
			ollama.WithModel(cred.Model),
			ollama.WithLogger(f.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model: %w", err)
		}
		return NewModelGenerator(model), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cred.Provider)
	}
}

func newProviderHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
