// Package diff selects the files of a pull request that are worth sending to review.
package diff

import (
	"path"
	"strings"

	"github.com/sevigo/pr-reviewer/internal/core"
)

// MaxPatchChars is the largest patch, in characters, that is sent to review.
const MaxPatchChars = 10000

// DefaultExcludePatterns matches lock files, build output, minified assets and source maps.
// Patterns ending in "/" match a directory at any depth unless they start with
// "/", which anchors them to the repository root. Patterns containing a "/"
// are matched with path.Match against the full path, others against the
// file's base name.
var DefaultExcludePatterns = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Cargo.lock",
	"poetry.lock",
	"composer.lock",
	"Gemfile.lock",
	"*.lock",
	"/dist/",
	"/build/",
	"/out/",
	"/.next/",
	"vendor/",
	"node_modules/",
	"*.min.js",
	"*.min.css",
	"*.map",
}

// Filter drops files that should not be reviewed. The zero value applies the defaults.
type Filter struct {
	patterns []string
}

// NewFilter returns a filter applying the default patterns plus extra ones.
func NewFilter(extra ...string) *Filter {
	patterns := make([]string, 0, len(DefaultExcludePatterns)+len(extra))
	patterns = append(patterns, DefaultExcludePatterns...)
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &Filter{patterns: patterns}
}

// Apply returns the reviewable subset of files in their input order.
func (f *Filter) Apply(files []core.ChangedFile) []core.ChangedFile {
	patterns := DefaultExcludePatterns
	if f != nil && f.patterns != nil {
		patterns = f.patterns
	}

	out := make([]core.ChangedFile, 0, len(files))
	for _, file := range files {
		if file.Patch == "" {
			continue
		}
		if len(file.Patch) > MaxPatchChars {
			continue
		}
		if Excluded(file.Filename, patterns) {
			continue
		}
		out = append(out, file)
	}
	return out
}

// FilterFiles applies the default rules to files.
func FilterFiles(files []core.ChangedFile) []core.ChangedFile {
	return (*Filter)(nil).Apply(files)
}

// Excluded reports whether filename matches any of the patterns.
func Excluded(filename string, patterns []string) bool {
	filename = strings.TrimPrefix(filename, "./")
	base := path.Base(filename)
	for _, p := range patterns {
		anchored := strings.HasPrefix(p, "/")
		p = strings.TrimPrefix(p, "/")
		if dir, ok := strings.CutSuffix(p, "/"); ok {
			if strings.HasPrefix(filename, dir+"/") {
				return true
			}
			if !anchored && strings.Contains(filename, "/"+dir+"/") {
				return true
			}
			continue
		}
		if anchored || strings.Contains(p, "/") {
			if ok, _ := path.Match(p, filename); ok {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}
