package core

import "strings"

// ReviewRules is the YAML shape of a repository's review rules file.
type ReviewRules struct {
	// Free-text instructions appended to the review prompt.
	Instructions []string `yaml:"instructions"`

	// Areas the reviewer should pay particular attention to.
	// Example: ["sql injection", "goroutine leaks"]
	Focus []string `yaml:"focus"`

	// Paths or topics the reviewer should not comment on.
	Ignore []string `yaml:"ignore"`
}

// Text flattens the rules into the free-text form stored on a repository.
func (r *ReviewRules) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, in := range r.Instructions {
		if in = strings.TrimSpace(in); in != "" {
			sb.WriteString("- " + in + "\n")
		}
	}
	if len(r.Focus) > 0 {
		sb.WriteString("- Focus on: " + strings.Join(r.Focus, ", ") + "\n")
	}
	if len(r.Ignore) > 0 {
		sb.WriteString("- Do not comment on: " + strings.Join(r.Ignore, ", ") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
