package llm

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptManager_EmbeddedCodeReview(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	prompt, err := pm.Render(CodeReviewPrompt, "openai", CodeReviewData{Files: "### File: a.go\n"})
	require.NoError(t, err)
	assert.Contains(t, prompt.System, "JSON object")
	assert.Contains(t, prompt.User, "### File: a.go")
	assert.NotContains(t, prompt.User, "Repository review rules")

	prompt, err = pm.Render(CodeReviewPrompt, DefaultProvider, CodeReviewData{CustomRules: "- No panics."})
	require.NoError(t, err)
	assert.Contains(t, prompt.User, "Repository review rules:\n- No panics.")
}

func TestPromptManager_ProviderVariant(t *testing.T) {
	fsys := fstest.MapFS{
		"p/greet_default.prompt": {Data: []byte(`{{define "system"}}sys{{end}}{{define "user"}}hello {{.}}{{end}}`)},
		"p/greet_ollama.prompt":  {Data: []byte(`{{define "system"}}terse{{end}}{{define "user"}}hi {{.}}{{end}}`)},
	}
	pm, err := newPromptManager(fsys, "p")
	require.NoError(t, err)

	got, err := pm.Render("greet", "ollama", "bob")
	require.NoError(t, err)
	assert.Equal(t, &Prompt{System: "terse", User: "hi bob"}, got)

	got, err = pm.Render("greet", "gemini", "bob")
	require.NoError(t, err)
	assert.Equal(t, &Prompt{System: "sys", User: "hello bob"}, got)

	_, err = pm.Render("missing", DefaultProvider, nil)
	assert.Error(t, err)
}

func TestPromptManager_RejectsBadFiles(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"bad name":        {"p/nounderscore.prompt": {Data: []byte(`{{define "system"}}{{end}}{{define "user"}}{{end}}`)}},
		"missing section": {"p/greet_default.prompt": {Data: []byte(`{{define "system"}}sys{{end}}`)}},
		"bad syntax":      {"p/greet_default.prompt": {Data: []byte(`{{define "system"}}{{end}`)}},
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newPromptManager(fsys, "p")
			assert.Error(t, err)
		})
	}
}
