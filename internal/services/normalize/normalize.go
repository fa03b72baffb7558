// Package normalize coerces loosely typed model output into a models.SpecialistResult.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/healthscope/internal/models"
)

var listSeparator = regexp.MustCompile(`[\n;,]`)

// Result converts d into a fully populated SpecialistResult. It is total:
// every input, including nil, yields a result with all fields set.
func Result(d map[string]any, agentName string) models.SpecialistResult {
	if d == nil {
		d = map[string]any{}
	}

	out := models.NewSpecialistResult("")

	out.Summary = firstString(d, "summary", "summary_text", "executive_summary")
	out.MajorProblem = firstString(d, "major_problem", "major_issue")
	out.Condition = firstString(d, "condition", "diagnosis")
	out.Severity = Level(firstString(d, "severity", "risk"))
	out.Confidence = Level(firstString(d, "confidence"))
	out.Focus = firstString(d, "focus")
	out.Explanation = firstString(d, "explanation", "reasoning")

	out.Findings = List(d["findings"])
	out.LikelyConditions = List(d["likely_conditions"])
	out.RecommendedTests = List(d["recommended_tests"])
	out.RecommendedTreatments = List(d["recommended_treatments"])
	out.Recommendations = List(d["recommendations"])
	out.NextSteps = List(d["next_steps"])
	out.PatientActions = List(d["patient_actions"])
	out.Evidence = evidence(d["evidence"])
	out.AbnormalValues = abnormalValues(d["abnormal_values"])

	if role := firstString(d, "role"); role != "" {
		out.Role = role
	} else {
		out.Role = agentName
	}

	return out
}

// Level maps a severity/confidence value onto low, medium or high.
// Empty and unknown values become medium.
func Level(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case models.LevelLow:
		return models.LevelLow
	case models.LevelHigh:
		return models.LevelHigh
	default:
		return models.LevelMedium
	}
}

// List coerces a list-ish value:
//   - sequences keep their elements, stringified
//   - strings split on newline, semicolon or comma with empty pieces dropped
//   - nil gives an empty list
//   - anything else becomes a one-element list
func List(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, Stringify(item))
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case string:
		return SplitList(t)
	default:
		return []string{Stringify(t)}
	}
}

// SplitList splits on newline, semicolon or comma, trimming and dropping empty pieces
func SplitList(s string) []string {
	out := []string{}
	for _, part := range listSeparator.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Stringify renders a decoded JSON value as text.
// Numbers use the shortest form (5 not 5.000000); objects and arrays are JSON-encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// firstString returns the stringified value of the first key holding a non-empty value
func firstString(d map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := d[key]
		if !ok || isEmpty(v) {
			continue
		}
		return Stringify(v)
	}
	return ""
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func evidence(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		return List(t)
	case []string:
		return List(t)
	case string:
		return []string{t}
	default:
		return []string{Stringify(t)}
	}
}

func abnormalValues(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return t
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return map[string]any{"value": t}
		}
		if m, ok := parsed.(map[string]any); ok {
			return m
		}
		return map[string]any{"value": t}
	default:
		return map[string]any{"value": Stringify(t)}
	}
}
