package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/jsonrecover"
	"github.com/ternarybob/healthscope/internal/services/normalize"
)

const textPromptTemplate = "Translate the following text to %s in natural, patient-friendly language:\n\n%s\n\nTranslated:"

const structuredPromptTemplate = "You are a clinical translator. Translate only the VALUES in the provided JSON object (%s) into %s. " +
	"Do NOT change the keys; return ONLY valid JSON (no surrounding text).\n\n" +
	"Input JSON:\n%s\n\nReturn JSON with the same keys and %s-translated values."

var languages = map[string]string{
	"hi": "Hindi",
	"gu": "Gujarati",
}

// LanguageName maps a language code to the name used in prompts.
// English and unknown codes report false.
func LanguageName(lang string) (string, bool) {
	name, ok := languages[strings.ToLower(strings.TrimSpace(lang))]
	return name, ok
}

// Translator rewrites patient-facing text into a supported language
type Translator struct {
	provider interfaces.CompletionProvider
	logger   arbor.ILogger
}

// NewTranslator creates a translator backed by provider
func NewTranslator(provider interfaces.CompletionProvider, logger arbor.ILogger) *Translator {
	return &Translator{provider: provider, logger: logger}
}

// TranslateText translates text into lang. Unsupported languages, "en" and
// empty text are returned unchanged.
func (t *Translator) TranslateText(ctx context.Context, text, lang string) (string, error) {
	name, ok := LanguageName(lang)
	if !ok || text == "" {
		return text, nil
	}

	out, err := t.provider.Prompt(ctx, fmt.Sprintf(textPromptTemplate, name, text))
	if err != nil {
		return text, fmt.Errorf("failed to translate text to %s: %w", name, err)
	}
	return out, nil
}

// TranslateStructured translates the values of obj while keeping its keys.
// The result is a map when the model replies with JSON, the translated text
// when it does not, and obj itself when the provider fails.
func (t *Translator) TranslateStructured(ctx context.Context, obj any, role, lang string) any {
	name, ok := LanguageName(lang)
	if !ok || obj == nil {
		return obj
	}

	if s, isString := obj.(string); isString {
		out, err := t.TranslateText(ctx, s, lang)
		if err != nil {
			t.logger.Warn().Err(err).Str("role", role).Msg("Translation failed, keeping original text")
			return obj
		}
		return out
	}

	encoded, err := json.Marshal(obj)
	if err != nil {
		encoded = []byte(fmt.Sprint(obj))
	}

	reply, err := t.provider.Prompt(ctx, fmt.Sprintf(structuredPromptTemplate, role, name, encoded, name))
	if err != nil {
		t.logger.Warn().Err(err).Str("role", role).Str("lang", lang).Msg("Structured translation failed, keeping original")
		return obj
	}

	if m, ok := jsonrecover.Recover(reply); ok {
		return m
	}

	t.logger.Debug().Str("role", role).Msg("Translator reply was not JSON, using plain text")
	return reply
}

// TranslateResult translates a specialist result, keeping the typed shape.
// A plain-text reply replaces the summary.
func (t *Translator) TranslateResult(ctx context.Context, r models.SpecialistResult, role, lang string) models.SpecialistResult {
	switch v := t.TranslateStructured(ctx, r, role, lang).(type) {
	case map[string]any:
		translated := normalize.Result(v, r.Role)
		translated.Role = r.Role
		return translated
	case string:
		r.Summary = v
		return r
	default:
		return r
	}
}

// TranslateReport translates an aggregated report, keeping the typed shape.
// Fields missing from the reply keep their original values; a plain-text
// reply replaces the executive summary.
func (t *Translator) TranslateReport(ctx context.Context, report models.AggregatedReport, lang string) models.AggregatedReport {
	switch v := t.TranslateStructured(ctx, report, "final report", lang).(type) {
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return report
		}
		var translated models.AggregatedReport
		if err := json.Unmarshal(data, &translated); err != nil {
			t.logger.Warn().Err(err).Msg("Translated report did not match the report shape, keeping original")
			return report
		}
		return mergeReport(translated, report)
	case string:
		report.ExecutiveSummary = v
		return report
	default:
		return report
	}
}

func mergeReport(translated, original models.AggregatedReport) models.AggregatedReport {
	if translated.ExecutiveSummary == "" {
		translated.ExecutiveSummary = original.ExecutiveSummary
	}
	if translated.Disclaimer == "" {
		translated.Disclaimer = original.Disclaimer
	}
	if translated.ConsensusFindings == nil {
		translated.ConsensusFindings = original.ConsensusFindings
	}
	if translated.AllConditions == nil {
		translated.AllConditions = original.AllConditions
	}
	if translated.Recommendations == nil {
		translated.Recommendations = original.Recommendations
	}
	if translated.NextSteps == nil {
		translated.NextSteps = original.NextSteps
	}
	if translated.SpecialistSuggestions == nil {
		translated.SpecialistSuggestions = original.SpecialistSuggestions
	}
	if translated.SpecialistExplanations == nil {
		translated.SpecialistExplanations = original.SpecialistExplanations
	}
	return translated
}
