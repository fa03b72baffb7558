// Package doctor builds the combined executive summary a clinician sees across several cases.
package doctor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/services/jsonrecover"
	"github.com/ternarybob/healthscope/internal/services/translate"
)

const summaryPromptTemplate = "You are a senior clinician. Given the following patient summaries, produce a concise combined executive summary " +
	"and highlight key common recommendations and patterns.\n\n%s\n\nRespond JSON with keys: summary, highlights"

const languageSuffixTemplate = "\n\nPlease respond in %s. Return the JSON fields ('summary' and 'highlights') in %s as well."

var fencedBlock = regexp.MustCompile("(?s)```.*?```")

// Service produces combined case summaries
type Service struct {
	provider interfaces.CompletionProvider
	logger   arbor.ILogger
}

// NewService creates a doctor summary service
func NewService(provider interfaces.CompletionProvider, logger arbor.ILogger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// Summarize combines cases into one summary object. The object always has a
// "summary" key; "highlights" is present when the model supplied it.
func (s *Service) Summarize(ctx context.Context, cases []string, lang string) map[string]any {
	start := time.Now()

	nonEmpty := make([]string, 0, len(cases))
	for _, c := range cases {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}

	prompt := fmt.Sprintf(summaryPromptTemplate, strings.Join(nonEmpty, "\n\n"))
	if name, ok := translate.LanguageName(lang); ok {
		prompt += fmt.Sprintf(languageSuffixTemplate, name, name)
	}

	reply, err := s.provider.Prompt(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Int("cases", len(nonEmpty)).Msg("Doctor summary completion failed")
		return map[string]any{"summary": fmt.Sprintf("LLM error: %v", err)}
	}

	if parsed, ok := jsonrecover.Recover(reply); ok {
		s.logger.Info().
			Int("cases", len(nonEmpty)).
			Dur("duration", time.Since(start)).
			Msg("Doctor summary generated")
		return parsed
	}

	cleaned := fencedBlock.ReplaceAllString(reply, "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "\n\n", "\n"))

	s.logger.Debug().Int("cases", len(nonEmpty)).Msg("Doctor summary reply was not JSON, returning cleaned text")
	return map[string]any{"summary": cleaned}
}
