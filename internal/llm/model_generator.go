package llm

import (
	"context"
	"strings"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/schema"
)

// ModelGenerator adapts a GoFrame model to the Generator interface.
type ModelGenerator struct {
	model llms.Model
}

// NewModelGenerator wraps model.
func NewModelGenerator(model llms.Model) *ModelGenerator {
	return &ModelGenerator{model: model}
}

// Complete sends the system prompt (when set) followed by the user prompt.
// Sampling options are forwarded as call options; providers ignore the
// ones they do not support.
func (g *ModelGenerator) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	msgs := make([]schema.MessageContent, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, req.User))

	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithJSONMode(req.JSONMode),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := g.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}

	out := &Completion{}
	var info map[string]any
	if resp != nil && len(resp.Choices) > 0 && resp.Choices[0] != nil {
		out.Content = resp.Choices[0].Content
		info = resp.Choices[0].GenerationInfo
	}

	prompt, hasPrompt := intFromInfo(info, "PromptTokens")
	completion, hasCompletion := intFromInfo(info, "CompletionTokens")
	total, hasTotal := intFromInfo(info, "TotalTokens")
	switch {
	case hasPrompt || hasCompletion:
		out.PromptTokens = prompt
		out.CompletionTokens = completion
	case hasTotal:
		// Only a total is reported; keep it so TotalTokens matches.
		out.PromptTokens = total
	default:
		out.PromptTokens = g.countTokens(ctx, req.System+"\n\n"+req.User)
		out.CompletionTokens = g.countTokens(ctx, out.Content)
	}
	return out, nil
}

func (g *ModelGenerator) countTokens(ctx context.Context, text string) int {
	t, ok := g.model.(llms.Tokenizer)
	if !ok || strings.TrimSpace(text) == "" {
		return 0
	}
	n, err := t.CountTokens(ctx, text)
	if err != nil {
		return 0
	}
	return n
}

func intFromInfo(info map[string]any, key string) (int, bool) {
	v, ok := info[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
