package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/interfaces"
)

func newTestFactory(provider common.LLMProvider) *ProviderFactory {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = provider
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, arbor.NewLogger())
}

func clearKeyEnv(t *testing.T) {
	for _, name := range []string{
		"HEALTHSCOPE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"HEALTHSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func TestProviderFactory_DetectProvider(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-3", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-flash", ProviderGemini},
		{"", ProviderGemini},
		{"unknown-model", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, ProviderClaude, newTestFactory(common.LLMProviderClaude).DetectProvider(""))
}

func TestProviderFactory_NormalizeModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)
	assert.Equal(t, "claude-sonnet-4-20250514", f.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("Google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("gemini-2.5-flash"))
}

func TestProviderFactory_Configured(t *testing.T) {
	clearKeyEnv(t)

	f := newTestFactory(common.LLMProviderGemini)
	assert.False(t, f.Configured())

	t.Setenv("GEMINI_API_KEY", "test-key")
	assert.True(t, f.Configured())

	claude := newTestFactory(common.LLMProviderClaude)
	assert.False(t, claude.Configured())
	claude.claudeConfig.APIKey = "config-key"
	assert.True(t, claude.Configured())
}

func TestProviderFactory_ClientWithoutKey(t *testing.T) {
	clearKeyEnv(t)
	f := newTestFactory(common.LLMProviderClaude)

	_, err := f.GetClaudeClient()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrProviderNotConfigured)
}

func TestRetryConfig(t *testing.T) {
	c := NewRetryConfig(0)
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries)
	assert.Equal(t, 5, NewRetryConfig(5).MaxRetries)

	assert.Equal(t, 2*time.Second, c.CalculateBackoff(0, 0))
	assert.Equal(t, 4*time.Second, c.CalculateBackoff(1, 0))
	assert.Equal(t, 11*time.Second, c.CalculateBackoff(0, 10*time.Second))
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(10, 0))
}

func TestRetryClassification(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("Quota exceeded")))
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRetryable(errors.New("529 overloaded_error")))
	assert.False(t, IsRetryable(errors.New("400 invalid request")))

	delay := ExtractRetryDelay(errors.New("Please retry in 12.5s., Status: RESOURCE_EXHAUSTED"))
	assert.Equal(t, 12500*time.Millisecond, delay)
	assert.Zero(t, ExtractRetryDelay(errors.New("no hint")))
}

func TestConvertMessages(t *testing.T) {
	messages := []interfaces.Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	claude, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	assert.Len(t, claude, 2)

	gemini, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	require.Len(t, gemini, 2)
	assert.Equal(t, "model", gemini[1].Role)

	_, _, err = convertMessagesToGemini([]interfaces.Message{{Role: RoleSystem, Content: "only"}})
	assert.Error(t, err)
	_, _, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
}
