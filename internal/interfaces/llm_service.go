package interfaces

import (
	"context"
	"errors"
)

// ErrProviderNotConfigured is returned when no API key is available for the selected provider
var ErrProviderNotConfigured = errors.New("completion provider not configured")

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// CompletionProvider turns prompts into model text.
//
// Implementations may return an unavailability sentinel text instead of an
// error when the upstream model fails; callers must handle both.
type CompletionProvider interface {
	// Chat sends an optional system prompt and a user prompt.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Prompt sends a single combined prompt with no system instruction.
	Prompt(ctx context.Context, prompt string) (string, error)

	// Summarize produces a patient-facing summary of text.
	Summarize(ctx context.Context, text string) (string, error)
}

// CompletionFunc adapts a function to CompletionProvider, routing every call through fn.
// Summarize wraps the text in the standard summary prompt.
type CompletionFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompletionFunc) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

func (f CompletionFunc) Prompt(ctx context.Context, prompt string) (string, error) {
	return f(ctx, "", prompt)
}

func (f CompletionFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, "", "Summarize this text for a patient:\n"+text)
}
