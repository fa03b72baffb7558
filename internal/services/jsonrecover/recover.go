// Package jsonrecover extracts a single JSON object from free-form model output.
package jsonrecover

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSON matches a ```json fenced block holding an object
var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// Recover returns the most plausible JSON object contained in raw.
// Strategies, first success wins:
//  1. the whole string is an object
//  2. the interior of a ```json fenced block
//  3. a balanced-brace scan from the first '{', string and escape aware,
//     moving to the next '{' whenever a balanced candidate fails to parse
//
// It never panics; ok is false when nothing parses.
func Recover(raw string) (map[string]any, bool) {
	if obj, ok := parseObject(raw); ok {
		return obj, true
	}

	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, true
		}
	}

	return scanBalanced(raw)
}

// Parse accepts raw only when the whole string is a JSON object
func Parse(raw string) (map[string]any, bool) {
	return parseObject(raw)
}

func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func scanBalanced(raw string) (map[string]any, bool) {
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		if end := findClosingBrace(raw, start); end >= 0 {
			if obj, ok := parseObject(raw[start : end+1]); ok {
				return obj, true
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// findClosingBrace returns the index of the brace closing the one at start,
// ignoring braces inside double-quoted strings. Returns -1 when unbalanced.
func findClosingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
