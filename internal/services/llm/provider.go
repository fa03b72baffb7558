package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/healthscope/internal/common"
	"github.com/ternarybob/healthscope/internal/interfaces"
	"github.com/ternarybob/healthscope/internal/metrics"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []interfaces.Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	JSONOutput        bool // Ask the provider for a JSON MIME response where supported (Gemini)
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// ContentGenerator is what the completion service needs from a provider backend
type ContentGenerator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	// Configured reports whether the default provider has an API key
	Configured() bool
	DefaultProvider() ProviderType
}

// ProviderFactory creates and manages AI providers
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger
	retry        *RetryConfig

	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeAPIKey string
	limiters     map[ProviderType]*rate.Limiter
}

// NewProviderFactory creates a new provider factory. Each provider gets its own
// limiter spaced by llm.rate_limit.
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	limit := rate.Inf
	if spacing := common.ParseDurationOr(llmConfig.RateLimit, 0); spacing > 0 {
		limit = rate.Every(spacing)
	}

	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		logger:       logger,
		retry:        NewRetryConfig(llmConfig.MaxRetries),
		limiters: map[ProviderType]*rate.Limiter{
			ProviderGemini: rate.NewLimiter(limit, 1),
			ProviderClaude: rate.NewLimiter(limit, 1),
		},
	}
}

// DefaultProvider returns the configured provider
func (f *ProviderFactory) DefaultProvider() ProviderType {
	if f.llmConfig.DefaultProvider == "" {
		return ProviderGemini
	}
	return ProviderType(f.llmConfig.DefaultProvider)
}

// Configured reports whether an API key resolves for the default provider
func (f *ProviderFactory) Configured() bool {
	return f.apiKey(f.DefaultProvider()) != ""
}

func (f *ProviderFactory) apiKey(provider ProviderType) string {
	var key string
	switch provider {
	case ProviderClaude:
		key, _ = common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey)
	default:
		key, _ = common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey)
	}
	return key
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	default:
		return f.DefaultProvider()
	}
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	default:
		return f.geminiConfig.Model
	}
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrProviderNotConfigured, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient() (anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeAPIKey != "" {
		return f.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey)
	if err != nil {
		return anthropic.Client{}, fmt.Errorf("%w: %v", interfaces.ErrProviderNotConfigured, err)
	}

	f.claudeClient = anthropic.NewClient(option.WithAPIKey(apiKey))
	f.claudeAPIKey = apiKey
	return f.claudeClient, nil
}

// GenerateContent generates content using the appropriate provider based on model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	if err := f.limiters[provider].Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	start := time.Now()
	var resp *ContentResponse
	var err error
	switch provider {
	case ProviderClaude:
		resp, err = f.generateWithClaude(ctx, request, model)
	default:
		resp, err = f.generateWithGemini(ctx, request, model)
	}
	metrics.RecordCompletion(string(provider), err, time.Since(start))

	return resp, err
}

// withRetry runs call until it succeeds, the error is not retryable, or retries run out
func (f *ProviderFactory) withRetry(ctx context.Context, provider ProviderType, call func() error) error {
	var apiErr error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		apiErr = call()
		if apiErr == nil {
			return nil
		}
		if attempt == f.retry.MaxRetries || !IsRetryable(apiErr) {
			break
		}

		backoff := f.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))

		f.logger.Warn().
			Str("provider", string(provider)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying provider API call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s API call failed: %w", provider, apiErr)
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetClaudeClient()
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 800
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	if timeout := common.ParseDurationOr(f.claudeConfig.Timeout, 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var resp *anthropic.Message
	err = f.withRetry(ctx, ProviderClaude, func() error {
		var callErr error
		resp, callErr = client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	geminiContents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	if timeout := common.ParseDurationOr(f.geminiConfig.Timeout, 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var resp *genai.GenerateContentResponse
	err = f.withRetry(ctx, ProviderGemini, func() error {
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, model, geminiContents, config)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}
	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

// Close closes all provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.geminiClient = nil
	f.claudeClient = anthropic.Client{}
	f.claudeAPIKey = ""
	return nil
}
