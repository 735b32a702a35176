package llm

import (
	"context"
	"fmt"
)

// Defaults for a review completion.
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 4096
)

// CompletionRequest is a single chat-style completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a JSON object response where supported.
	JSONMode bool
}

// Completion is the provider's answer. Token counts are zero when the
// provider does not report them.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (c *Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

// Generator produces completions from an AI provider.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// APIError is a non-2xx answer from an AI provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
