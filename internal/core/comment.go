package core

import (
	"strings"
	"time"
)

// Category classifies a review finding.
type Category string

// Category values.
const (
	CategorySecurity     Category = "security"
	CategoryPerformance  Category = "performance"
	CategoryStyle        Category = "style"
	CategoryBug          Category = "bug"
	CategoryBestPractice Category = "best-practice"
)

// Severity ranks a review finding.
type Severity string

// Severity values, lowest first.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo}

// NormalizeCategory maps free-form model output onto a known category,
// falling back to best-practice.
func NormalizeCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CategorySecurity, CategoryPerformance, CategoryStyle, CategoryBug, CategoryBestPractice:
		return c
	default:
		return CategoryBestPractice
	}
}

// NormalizeSeverity maps free-form model output onto a known severity,
// falling back to info.
func NormalizeSeverity(raw string) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return s
	default:
		return SeverityInfo
	}
}

// ReviewComment is one validated finding anchored to a file and line.
type ReviewComment struct {
	ID        int64     `db:"id" json:"id"`
	ReviewID  int64     `db:"review_id" json:"review_id"`
	FilePath  string    `db:"file_path" json:"file_path"`
	Line      int       `db:"line" json:"line"`
	Body      string    `db:"body" json:"body"`
	Category  Category  `db:"category" json:"category"`
	Severity  Severity  `db:"severity" json:"severity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AnalysisResult is the validated output of one AI analysis.
type AnalysisResult struct {
	Summary    string
	Comments   []ReviewComment
	TokensUsed int
	// IncludedFiles lists the paths that made it into the prompt, in order.
	IncludedFiles []string
}
