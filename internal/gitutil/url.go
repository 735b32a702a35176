// Package gitutil parses pull request references given on the command line.
package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// https://github.com/{owner}/{repo}/pull/{number}, optionally followed by
	// a tab such as /files or /commits.
	prURLRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([^/\s]+)/([^/\s]+)/pull/([^/\s]+)(?:/(?:files|commits|checks))?$`)

	// {owner}/{repo}#{number}
	prShortRegex = regexp.MustCompile(`^([^/\s#]+)/([^/\s#]+)#([^/\s#]+)$`)
)

// ParsePullRequestURL extracts the owner, repository and number from a pull
// request URL or from the owner/repo#number shorthand.
func ParsePullRequestURL(ref string) (owner, repo string, number int, err error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")

	matches := prURLRegex.FindStringSubmatch(ref)
	if matches == nil {
		matches = prShortRegex.FindStringSubmatch(ref)
	}
	if matches == nil {
		return "", "", 0, fmt.Errorf("invalid pull request URL format: %s", ref)
	}

	number, err = strconv.Atoi(matches[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid PR number %q", matches[3])
	}
	return matches[1], strings.TrimSuffix(matches[2], ".git"), number, nil
}
