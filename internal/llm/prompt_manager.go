package llm

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// ModelProvider selects a provider-specific prompt variant.
type ModelProvider string

// PromptKey names a prompt task.
type PromptKey string

const (
	DefaultProvider  ModelProvider = "default"
	CodeReviewPrompt PromptKey     = "code_review"
)

// Every prompt file defines these two templates.
const (
	systemSection = "system"
	userSection   = "user"
)

// CodeReviewData fills the code_review template.
type CodeReviewData struct {
	CustomRules string
	Files       string
}

// Prompt is a rendered system and user message pair.
type Prompt struct {
	System string
	User   string
}

// PromptManager holds the embedded prompt templates, keyed by task and provider.
type PromptManager struct {
	prompts map[PromptKey]map[ModelProvider]*template.Template
}

// NewPromptManager parses every embedded prompts/<key>_<provider>.prompt file.
func NewPromptManager() (*PromptManager, error) {
	return newPromptManager(promptFiles, "prompts")
}

func newPromptManager(fsys fs.FS, dir string) (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[PromptKey]map[ModelProvider]*template.Template),
	}

	names, err := fs.Glob(fsys, path.Join(dir, "*.prompt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	for _, name := range names {
		key, provider, err := parsePromptName(path.Base(name))
		if err != nil {
			return nil, err
		}

		tmpl, err := template.New(path.Base(name)).Option("missingkey=error").ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		for _, section := range []string{systemSection, userSection} {
			if tmpl.Lookup(section) == nil {
				return nil, fmt.Errorf("prompt %s does not define %q", name, section)
			}
		}

		if _, ok := pm.prompts[key]; !ok {
			pm.prompts[key] = make(map[ModelProvider]*template.Template)
		}
		pm.prompts[key][provider] = tmpl
	}

	return pm, nil
}

// parsePromptName splits code_review_default.prompt into its key and provider.
func parsePromptName(fileName string) (PromptKey, ModelProvider, error) {
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	i := strings.LastIndex(base, "_")
	if i <= 0 || i == len(base)-1 {
		return "", "", fmt.Errorf("invalid prompt filename format: %s (expected 'key_provider.prompt')", fileName)
	}
	return PromptKey(base[:i]), ModelProvider(base[i+1:]), nil
}

// Get returns the template for key, preferring a provider-specific variant.
func (pm *PromptManager) Get(key PromptKey, provider ModelProvider) (*template.Template, error) {
	variants, ok := pm.prompts[key]
	if !ok {
		return nil, fmt.Errorf("no prompts found for key '%s'", key)
	}
	if tmpl, ok := variants[provider]; ok {
		return tmpl, nil
	}
	if tmpl, ok := variants[DefaultProvider]; ok {
		return tmpl, nil
	}
	return nil, fmt.Errorf("no template found for key '%s' and provider '%s', and no default was available", key, provider)
}

// Render executes both sections of the prompt with data.
func (pm *PromptManager) Render(key PromptKey, provider ModelProvider, data any) (*Prompt, error) {
	tmpl, err := pm.Get(key, provider)
	if err != nil {
		return nil, err
	}

	system, err := execSection(tmpl, systemSection, data)
	if err != nil {
		return nil, err
	}
	user, err := execSection(tmpl, userSection, data)
	if err != nil {
		return nil, err
	}
	return &Prompt{System: system, User: user}, nil
}

func execSection(tmpl *template.Template, section string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, section, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", section, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
