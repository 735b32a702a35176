package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// LineRange is an inclusive range of new-side line numbers.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// CommentableLines extracts all line numbers that can receive an inline comment:
// the lines present on the new (+) side of the diff.
func CommentableLines(patch string) map[int]struct{} {
	valid := make(map[int]struct{})
	current := -1

	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "@@") {
			current = -1
			if m := hunkHeaderRegex.FindStringSubmatch(line); len(m) >= 2 {
				if start, err := strconv.Atoi(m[1]); err == nil {
					current = start
				}
			}
			continue
		}
		if current == -1 {
			continue
		}

		// ' ' unchanged, '+' added, '-' removed (old side only)
		switch {
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
			valid[current] = struct{}{}
			current++
		case strings.HasPrefix(line, "-"), line == "", strings.HasPrefix(line, `\`):
			continue
		}
	}
	return valid
}

// LineRanges collapses the commentable lines of patch into sorted ranges.
func LineRanges(patch string) []LineRange {
	valid := CommentableLines(patch)
	if len(valid) == 0 {
		return nil
	}
	lines := make([]int, 0, len(valid))
	for l := range valid {
		lines = append(lines, l)
	}
	sort.Ints(lines)

	var ranges []LineRange
	cur := LineRange{Start: lines[0], End: lines[0]}
	for _, l := range lines[1:] {
		if l == cur.End+1 {
			cur.End = l
			continue
		}
		ranges = append(ranges, cur)
		cur = LineRange{Start: l, End: l}
	}
	return append(ranges, cur)
}

// FormatRanges renders ranges as "3-7, 12, 40-41".
func FormatRanges(ranges []LineRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
