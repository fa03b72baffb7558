package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/healthscope/internal/models"
)

func assertPopulated(t *testing.T, r models.SpecialistResult) {
	t.Helper()

	assert.Contains(t, []string{models.LevelLow, models.LevelMedium, models.LevelHigh}, r.Severity)
	assert.Contains(t, []string{models.LevelLow, models.LevelMedium, models.LevelHigh}, r.Confidence)
	assert.NotEmpty(t, r.Role)

	for _, list := range [][]string{
		r.Findings, r.LikelyConditions, r.RecommendedTests, r.RecommendedTreatments,
		r.Recommendations, r.NextSteps, r.PatientActions, r.Evidence,
	} {
		assert.NotNil(t, list)
	}
	assert.NotNil(t, r.AbnormalValues)
}

func TestResult_EmptyInputIsTotal(t *testing.T) {
	for _, in := range []map[string]any{nil, {}, {"foo": float64(1), "bar": "baz"}} {
		r := Result(in, "Cardiologist")
		assertPopulated(t, r)

		assert.Equal(t, "", r.Summary)
		assert.Equal(t, "", r.MajorProblem)
		assert.Equal(t, "", r.Condition)
		assert.Equal(t, "", r.Focus)
		assert.Equal(t, "", r.Explanation)
		assert.Equal(t, models.LevelMedium, r.Severity)
		assert.Equal(t, models.LevelMedium, r.Confidence)
		assert.Equal(t, "Cardiologist", r.Role)

		for _, list := range [][]string{
			r.Findings, r.LikelyConditions, r.RecommendedTests, r.RecommendedTreatments,
			r.Recommendations, r.NextSteps, r.PatientActions, r.Evidence,
		} {
			assert.Empty(t, list)
		}
		assert.Empty(t, r.AbnormalValues)
	}
}

func TestResult_WrongTypedValues(t *testing.T) {
	r := Result(map[string]any{
		"summary":           float64(5),
		"role":              []any{},
		"confidence":        true,
		"severity":          map[string]any{"level": "high"},
		"findings":          map[string]any{"a": "b"},
		"next_steps":        float64(3),
		"evidence":          false,
		"abnormal_values":   []any{"x"},
		"likely_conditions": true,
	}, "Pulmonologist")
	assertPopulated(t, r)

	assert.Equal(t, "5", r.Summary)
	assert.Equal(t, "Pulmonologist", r.Role)
	assert.Equal(t, models.LevelMedium, r.Confidence)
	assert.Equal(t, models.LevelMedium, r.Severity)
	assert.Equal(t, []string{`{"a":"b"}`}, r.Findings)
	assert.Equal(t, []string{"3"}, r.NextSteps)
	assert.Equal(t, []string{"false"}, r.Evidence)
	assert.Equal(t, []string{"true"}, r.LikelyConditions)
	assert.Equal(t, map[string]any{"value": `["x"]`}, r.AbnormalValues)
	assert.Empty(t, r.RecommendedTests)
}

func TestList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"Mixed separators", "a, b; c\nd", []string{"a", "b", "c", "d"}},
		{"Empty pieces dropped", " ,;\n x ,, ", []string{"x"}},
		{"Nil", nil, []string{}},
		{"Integer-valued number", float64(5), []string{"5"}},
		{"Fractional number", 12.5, []string{"12.5"}},
		{"Sequence stringified", []any{"ECG", float64(2), true}, []string{"ECG", "2", "true"}},
		{"Object becomes single element", map[string]any{"k": "v"}, []string{`{"k":"v"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, List(tt.in))
		})
	}
}

func TestResult_Aliases(t *testing.T) {
	r := Result(map[string]any{
		"summary_text": "from alias",
		"major_issue":  "chest pain",
		"diagnosis":    "angina",
		"risk":         "HIGH",
		"reasoning":    "because",
		"role":         "Custom",
	}, "Cardiologist")

	assert.Equal(t, "from alias", r.Summary)
	assert.Equal(t, "chest pain", r.MajorProblem)
	assert.Equal(t, "angina", r.Condition)
	assert.Equal(t, models.LevelHigh, r.Severity)
	assert.Equal(t, "because", r.Explanation)
	assert.Equal(t, "Custom", r.Role)
}

func TestResult_PrimaryKeyWinsOverAlias(t *testing.T) {
	r := Result(map[string]any{
		"summary":           "",
		"summary_text":      "second",
		"executive_summary": "third",
	}, "X")
	assert.Equal(t, "second", r.Summary)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "low", Level("Low"))
	assert.Equal(t, "high", Level(" high "))
	assert.Equal(t, "medium", Level(""))
	assert.Equal(t, "medium", Level("severe"))
}

func TestResult_Evidence(t *testing.T) {
	assert.Equal(t, []string{"one line"}, Result(map[string]any{"evidence": "one line"}, "").Evidence)
	assert.Equal(t, []string{"a", "b"}, Result(map[string]any{"evidence": []any{"a", "b"}}, "").Evidence)
	assert.Equal(t, []string{"3"}, Result(map[string]any{"evidence": float64(3)}, "").Evidence)
}

func TestResult_AbnormalValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want map[string]any
	}{
		{"Mapping passes through", map[string]any{"Hb": "8.5 g/dL"}, map[string]any{"Hb": "8.5 g/dL"}},
		{"String encoded mapping", `{"WBC":"12000"}`, map[string]any{"WBC": "12000"}},
		{"String encoded list is wrapped", `[1,2]`, map[string]any{"value": "[1,2]"}},
		{"Unparseable string is wrapped", "Hb low", map[string]any{"value": "Hb low"}},
		{"Number is wrapped", float64(7), map[string]any{"value": "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Result(map[string]any{"abnormal_values": tt.in}, "")
			assert.Equal(t, tt.want, r.AbnormalValues)
		})
	}
}

func TestResult_RoleFallsBackToEmpty(t *testing.T) {
	assert.Equal(t, "", Result(map[string]any{}, "").Role)
}
