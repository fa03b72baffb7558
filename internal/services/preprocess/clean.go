// Package preprocess cleans extracted report text and classifies it before analysis.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the truncation limit applied when no limit is configured
const DefaultMaxChars = 15000

// TruncationMarker is appended to text cut at the character limit
const TruncationMarker = "\n... (truncated)"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	pageFooter    = regexp.MustCompile(`(?i)Page \d+ of \d+`)

	medicalReportMarkers = []string{"patient", "diagnosis", "medical", "doctor", "hospital", "report"}

	bloodMarkers = regexp.MustCompile(`(?i)\b(HB|Hgb|Hemoglobin|WBC|RBC|Platelets?|MCV|MCH|ESR|CRP|Bilirubin)\b`)
)

// CleanText collapses whitespace, strips "Page N of M" footers and truncates
// to maxChars characters. A non-positive maxChars uses DefaultMaxChars.
func CleanText(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	t := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	t = pageFooter.ReplaceAllString(t, "")

	if utf8.RuneCountInString(t) > maxChars {
		t = string([]rune(t)[:maxChars]) + TruncationMarker
	}
	return t
}

// Truncate returns at most n characters of s
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// IsMedicalReport is the coarse gate applied before a report is analysed
func IsMedicalReport(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range medicalReportMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsBloodReport reports whether the text names common CBC or lab panel markers
func IsBloodReport(text string) bool {
	return bloodMarkers.MatchString(text)
}
