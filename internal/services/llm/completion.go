package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/interfaces"
)

const (
	noPromptReply       = "No prompt provided to LLM."
	noTextToSummarize   = "No text provided to summarize."
	emptyGreeting       = "Hello! Tell me your symptoms and I'll try to help."
	summarizePrompt     = "Summarize this text for a patient:\n"
	echoLimit           = 240
	offlineClarifier    = "How long have you had these symptoms?"
	unavailableTemplate = "(LLM unavailable) I saw: %s. Could you share how long you've had these symptoms?"
)

// CompletionService implements interfaces.CompletionProvider over a ContentGenerator.
// Without an API key it answers with a local clarifying question instead of failing.
type CompletionService struct {
	generator ContentGenerator
	logger    arbor.ILogger
}

var _ interfaces.CompletionProvider = (*CompletionService)(nil)

// NewCompletionService creates a completion service
func NewCompletionService(generator ContentGenerator, logger arbor.ILogger) *CompletionService {
	if !generator.Configured() {
		logger.Warn().
			Str("provider", string(generator.DefaultProvider())).
			Msg("No API key configured - completions fall back to local replies")
	}
	return &CompletionService{
		generator: generator,
		logger:    logger,
	}
}

// Chat sends an optional system prompt and a user prompt
func (s *CompletionService) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if userPrompt == "" && systemPrompt == "" {
		return noPromptReply, nil
	}

	var messages []interfaces.Message
	if systemPrompt != "" {
		messages = append(messages, interfaces.Message{Role: RoleSystem, Content: systemPrompt})
	}
	if userPrompt != "" {
		messages = append(messages, interfaces.Message{Role: RoleUser, Content: userPrompt})
	}
	last := messages[len(messages)-1].Content

	if !s.generator.Configured() {
		short := strings.TrimSpace(last)
		if short == "" {
			return emptyGreeting, nil
		}
		return fmt.Sprintf("I understand: %s. %s", truncateRunes(short, echoLimit), offlineClarifier), nil
	}

	if userPrompt == "" {
		// providers require a user turn
		messages = []interfaces.Message{{Role: RoleUser, Content: systemPrompt}}
	}

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{Messages: messages})
	if err != nil {
		s.logger.Warn().Err(err).Int("prompt_length", len(last)).Msg("Completion failed")
		if last != "" {
			return fmt.Sprintf(unavailableTemplate, truncateRunes(last, echoLimit)), nil
		}
		return "", err
	}
	return resp.Text, nil
}

// Prompt sends a single combined prompt
func (s *CompletionService) Prompt(ctx context.Context, prompt string) (string, error) {
	return s.Chat(ctx, "", prompt)
}

// Summarize produces a patient-facing summary. Unlike Chat, failures are returned.
func (s *CompletionService) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return noTextToSummarize, nil
	}
	if !s.generator.Configured() {
		return "", interfaces.ErrProviderNotConfigured
	}

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages: []interfaces.Message{{Role: RoleUser, Content: summarizePrompt + text}},
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("text_length", len(text)).Msg("Summary failed")
		return "", err
	}
	return resp.Text, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
