package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/models"
	"github.com/ternarybob/healthscope/internal/services/jsonrecover"
	"github.com/ternarybob/healthscope/internal/services/normalize"
)

// OutcomeKind records which path of the analysis state machine produced a result
type OutcomeKind string

const (
	// OutcomeParsed: the model returned a recoverable JSON object
	OutcomeParsed OutcomeKind = "json"
	// OutcomeClarifier: the model asked a question or was unavailable; deterministic fallback used
	OutcomeClarifier OutcomeKind = "clarifier_fallback"
	// OutcomePlainText: the model answered in prose; the prose became the summary
	OutcomePlainText OutcomeKind = "plain_text"
	// OutcomeProviderError: the completion call failed
	OutcomeProviderError OutcomeKind = "provider_error"
)

const analyzePromptTemplate = "Please analyze the patient report below and return a JSON object with keys:\n" +
	"  - patient_name (string, if available, else 'Unknown')\n" +
	"  - summary (short text)\n" +
	"  - likely_conditions (array of short strings)\n" +
	"  - recommendations (array of short strings)\n" +
	"  - confidence (one of low/medium/high)\n" +
	"  - focus (one-line description of what this specialist focuses on)\n\n" +
	"Respond with JSON only.\n\nReport:\n%s"

const strictPromptTemplate = "Respond ONLY with valid JSON. Do not include any explanatory text. " +
	"Return an object with these keys when possible: patient_name, focus (one-line), findings (array), severity (one of low/medium/high), " +
	"summary, likely_conditions (array), recommended_tests (array), recommended_treatments (array), next_steps (array), confidence.\n\n" +
	"Report:\n%s"

// Analysis is a specialist result together with the raw model text and the path that produced it
type Analysis struct {
	Result models.SpecialistResult
	Kind   OutcomeKind
	Raw    string
}

// Specialist runs one role against the completion provider
type Specialist struct {
	role     Role
	provider interfaces.CompletionProvider
	logger   arbor.ILogger
	maxChars int
}

// NewSpecialist creates a specialist for role. maxChars bounds the text cleaning
// used by the clarifier fallback.
func NewSpecialist(role Role, provider interfaces.CompletionProvider, logger arbor.ILogger, maxChars int) *Specialist {
	return &Specialist{
		role:     role,
		provider: provider,
		logger:   logger,
		maxChars: maxChars,
	}
}

// Role returns the configured role
func (s *Specialist) Role() Role {
	return s.role
}

// Analyze asks the model for a structured opinion on text. It never fails:
// malformed or missing model output degrades through the fallback chain.
func (s *Specialist) Analyze(ctx context.Context, text string) Analysis {
	start := time.Now()

	raw, err := s.provider.Chat(ctx, s.role.Prompt, fmt.Sprintf(analyzePromptTemplate, text))
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("role", s.role.Name).
			Dur("duration", time.Since(start)).
			Msg("Completion failed for specialist")

		return Analysis{
			Result: normalize.Result(map[string]any{
				"summary":    models.LLMErrorPrefix + err.Error(),
				"confidence": models.LevelLow,
			}, s.role.Name),
			Kind: OutcomeProviderError,
		}
	}

	analysis := Analysis{Raw: raw}

	if obj, ok := recoverObject(raw); ok {
		analysis.Result = normalize.Result(obj, s.role.Name)
		analysis.Kind = OutcomeParsed
	} else if IsClarifier(raw) {
		analysis.Result = ClarifierFallback(s.role.Name, text, s.maxChars)
		analysis.Kind = OutcomeClarifier
	} else {
		analysis.Result = normalize.Result(map[string]any{
			"summary":    raw,
			"confidence": models.LevelMedium,
		}, s.role.Name)
		analysis.Kind = OutcomePlainText
	}

	s.logger.Debug().
		Str("role", s.role.Name).
		Str("outcome", string(analysis.Kind)).
		Int("raw_length", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("Specialist analysis complete")

	return analysis
}

// AnalyzeStrict repeats the request with a JSON-only prompt and no system
// instruction. ok is false when the call fails or no object can be recovered.
func (s *Specialist) AnalyzeStrict(ctx context.Context, text string) (models.SpecialistResult, bool) {
	raw, err := s.provider.Prompt(ctx, fmt.Sprintf(strictPromptTemplate, text))
	if err != nil {
		s.logger.Warn().Err(err).Str("role", s.role.Name).Msg("Strict analysis failed")
		return models.SpecialistResult{}, false
	}

	obj, ok := recoverObject(raw)
	if !ok {
		return models.SpecialistResult{}, false
	}
	return normalize.Result(obj, s.role.Name), true
}

func recoverObject(raw string) (map[string]any, bool) {
	if obj, ok := jsonrecover.Parse(raw); ok {
		return obj, true
	}
	return jsonrecover.Recover(raw)
}
