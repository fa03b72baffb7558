package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
)

// recorder captures prompts and answers each with reply
type recorder struct {
	prompts []string
	reply   string
	err     error
}

func (r *recorder) provider() interfaces.CompletionProvider {
	return interfaces.CompletionFunc(func(ctx context.Context, system, user string) (string, error) {
		r.prompts = append(r.prompts, user)
		return r.reply, r.err
	})
}

func newTranslator(r *recorder) *Translator {
	return NewTranslator(r.provider(), arbor.NewLogger())
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		lang string
		name string
		ok   bool
	}{
		{"hi", "Hindi", true},
		{"gu", "Gujarati", true},
		{" HI ", "Hindi", true},
		{"en", "", false},
		{"fr", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			name, ok := LanguageName(tt.lang)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestTranslateText(t *testing.T) {
	r := &recorder{reply: "नमस्ते"}
	tr := newTranslator(r)

	out, err := tr.TranslateText(context.Background(), "Hello", "hi")
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते", out)
	require.Len(t, r.prompts, 1)
	assert.Equal(t, "Translate the following text to Hindi in natural, patient-friendly language:\n\nHello\n\nTranslated:", r.prompts[0])
}

func TestTranslateText_Passthrough(t *testing.T) {
	r := &recorder{reply: "should not be used"}
	tr := newTranslator(r)

	for _, lang := range []string{"en", "", "de"} {
		out, err := tr.TranslateText(context.Background(), "Hello", lang)
		require.NoError(t, err)
		assert.Equal(t, "Hello", out)
	}

	out, err := tr.TranslateText(context.Background(), "", "gu")
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Empty(t, r.prompts)
}

func TestTranslateText_ProviderError(t *testing.T) {
	tr := newTranslator(&recorder{err: errors.New("quota")})

	out, err := tr.TranslateText(context.Background(), "Hello", "gu")
	assert.Error(t, err)
	assert.Equal(t, "Hello", out)
}

func TestTranslateStructured(t *testing.T) {
	obj := map[string]any{"summary": "Chest pain"}

	t.Run("JSON reply", func(t *testing.T) {
		r := &recorder{reply: "```json\n{\"summary\": \"सीने में दर्द\"}\n```"}
		out := newTranslator(r).TranslateStructured(context.Background(), obj, "cardiology findings", "hi")

		assert.Equal(t, map[string]any{"summary": "सीने में दर्द"}, out)
		require.Len(t, r.prompts, 1)
		assert.Contains(t, r.prompts[0], `{"summary":"Chest pain"}`)
		assert.Contains(t, r.prompts[0], "into Hindi")
		assert.Contains(t, r.prompts[0], "Do NOT change the keys")
	})

	t.Run("plain text reply", func(t *testing.T) {
		out := newTranslator(&recorder{reply: "सीने में दर्द"}).TranslateStructured(context.Background(), obj, "x", "hi")
		assert.Equal(t, "सीने में दर्द", out)
	})

	t.Run("provider error keeps original", func(t *testing.T) {
		out := newTranslator(&recorder{err: errors.New("down")}).TranslateStructured(context.Background(), obj, "x", "hi")
		assert.Equal(t, obj, out)
	})

	t.Run("english untouched", func(t *testing.T) {
		r := &recorder{reply: "{}"}
		out := newTranslator(r).TranslateStructured(context.Background(), obj, "x", "en")
		assert.Equal(t, obj, out)
		assert.Empty(t, r.prompts)
	})

	t.Run("string input", func(t *testing.T) {
		r := &recorder{reply: "અનુવાદ"}
		out := newTranslator(r).TranslateStructured(context.Background(), "text", "x", "gu")
		assert.Equal(t, "અનુવાદ", out)
		assert.True(t, strings.HasPrefix(r.prompts[0], "Translate the following text to Gujarati"))
	})
}

func TestTranslateResult(t *testing.T) {
	original := models.NewSpecialistResult("Cardiologist")
	original.Summary = "Chest pain"
	original.Findings = []string{"Tachycardia"}

	t.Run("map reply keeps typed shape and role", func(t *testing.T) {
		r := &recorder{reply: `{"summary": "सीने में दर्द", "findings": ["टैचीकार्डिया"], "severity": "high", "role": "हृदय रोग विशेषज्ञ"}`}
		out := newTranslator(r).TranslateResult(context.Background(), original, "cardiology findings", "hi")

		assert.Equal(t, "सीने में दर्द", out.Summary)
		assert.Equal(t, []string{"टैचीकार्डिया"}, out.Findings)
		assert.Equal(t, models.LevelHigh, out.Severity)
		assert.Equal(t, "Cardiologist", out.Role)
		assert.NotNil(t, out.Recommendations)
	})

	t.Run("text reply replaces summary", func(t *testing.T) {
		out := newTranslator(&recorder{reply: "सीने में दर्द"}).TranslateResult(context.Background(), original, "x", "hi")
		assert.Equal(t, "सीने में दर्द", out.Summary)
		assert.Equal(t, original.Findings, out.Findings)
	})
}

func TestTranslateReport(t *testing.T) {
	original := models.AggregatedReport{
		ExecutiveSummary:       "Summary",
		ConsensusFindings:      []string{"A"},
		AllConditions:          []string{"B"},
		Recommendations:        []string{},
		NextSteps:              []string{models.NextStepReviewSpecs},
		SpecialistSuggestions:  []string{},
		SpecialistExplanations: map[string]string{},
		Disclaimer:             models.Disclaimer,
	}

	t.Run("partial reply keeps missing fields", func(t *testing.T) {
		r := &recorder{reply: `{"executive_summary": "सारांश", "all_conditions": ["ख"]}`}
		out := newTranslator(r).TranslateReport(context.Background(), original, "hi")

		assert.Equal(t, "सारांश", out.ExecutiveSummary)
		assert.Equal(t, []string{"ख"}, out.AllConditions)
		assert.Equal(t, []string{"A"}, out.ConsensusFindings)
		assert.Equal(t, models.Disclaimer, out.Disclaimer)
		assert.Equal(t, []string{"B"}, original.AllConditions)
	})

	t.Run("mismatched shape keeps original", func(t *testing.T) {
		r := &recorder{reply: `{"all_conditions": "not a list"}`}
		out := newTranslator(r).TranslateReport(context.Background(), original, "hi")
		assert.Equal(t, original, out)
	})

	t.Run("text reply replaces executive summary", func(t *testing.T) {
		out := newTranslator(&recorder{reply: "સારાંશ"}).TranslateReport(context.Background(), original, "gu")
		assert.Equal(t, "સારાંશ", out.ExecutiveSummary)
		assert.Equal(t, original.ConsensusFindings, out.ConsensusFindings)
	})
}
