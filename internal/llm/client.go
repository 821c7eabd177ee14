package llm

import (
	"context"
	"log/slog"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Provider represents the LLM provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderNone   Provider = "none" // AI narratives disabled
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.0-flash"
)

// Completer is the one capability the narrative enhancer needs from a provider
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Client provides a multi-provider LLM interface (OpenAI or Gemini).
// The API key is resolved by the caller per actor and passed in.
type Client struct {
	provider     Provider
	openaiClient *openai.Client
	geminiClient *GeminiClient
	logger       *slog.Logger
	enabled      bool
	model        string
}

// NewClient creates a client for the configured provider. An unknown or "none"
// provider, or an empty key, yields a disabled client rather than an error.
func NewClient(ctx context.Context, cfg config.AIConfig, apiKey string) (*Client, error) {
	logger := slog.Default().With("component", "llm")

	provider := Provider(cfg.Provider)
	switch provider {
	case ProviderGemini:
		return newGeminiClient(ctx, cfg, apiKey, logger)
	case ProviderOpenAI:
		return newOpenAIClient(cfg, apiKey, logger)
	case ProviderNone, "":
		logger.Info("ai provider disabled, LLM client not initialized")
	default:
		logger.Warn("unknown provider, AI narratives disabled", "provider", cfg.Provider)
	}
	return &Client{provider: ProviderNone, logger: logger}, nil
}

// newGeminiClient initializes a Gemini provider client
func newGeminiClient(ctx context.Context, cfg config.AIConfig, apiKey string, logger *slog.Logger) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	if apiKey == "" {
		logger.Warn("gemini selected but no API key resolved")
		return &Client{provider: ProviderNone, logger: logger, model: model}, nil
	}

	geminiClient, err := NewGeminiClient(ctx, apiKey, model)
	if err != nil {
		return nil, errors.ExternalError(err, "failed to create gemini client")
	}

	return &Client{
		provider:     ProviderGemini,
		geminiClient: geminiClient,
		logger:       logger,
		enabled:      true,
		model:        model,
	}, nil
}

// newOpenAIClient initializes an OpenAI provider client
func newOpenAIClient(cfg config.AIConfig, apiKey string, logger *slog.Logger) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	if apiKey == "" {
		logger.Warn("openai selected but no API key resolved")
		return &Client{provider: ProviderNone, logger: logger, model: model}, nil
	}

	logger.Info("openai client initialized", "model", model)
	return &Client{
		provider:     ProviderOpenAI,
		openaiClient: openai.NewClient(apiKey),
		logger:       logger,
		enabled:      true,
		model:        model,
	}, nil
}

// IsEnabled returns true if an LLM client is configured and ready
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// GetProvider returns the active LLM provider
func (c *Client) GetProvider() Provider {
	return c.provider
}

// Model returns the model name used for completions
func (c *Client) Model() string {
	return c.model
}

// CompleteJSON sends a prompt to the LLM and returns a JSON response.
// Uses response_format json_object (OpenAI) or ResponseMIMEType application/json (Gemini).
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.enabled {
		return "", errors.ConfigError("llm client not enabled (check ai.provider and API key)")
	}

	switch c.provider {
	case ProviderGemini:
		return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt)
	case ProviderOpenAI:
		return c.completeOpenAIJSON(ctx, systemPrompt, userPrompt)
	default:
		return "", errors.ConfigError("no provider configured")
	}
}

// completeOpenAIJSON handles OpenAI JSON completion
func (c *Client) completeOpenAIJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
		MaxTokens:   1200,
	})

	if err != nil {
		return "", errors.ExternalErrorf(err, "openai completion failed (model %s)", c.model)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityLow, "openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai json completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)

	return response, nil
}

// EstimateTokens is a rough prompt size used for quota accounting (~4 chars per token)
func EstimateTokens(prompts ...string) int64 {
	total := 0
	for _, p := range prompts {
		total += len(p)
	}
	return int64(total/4) + 1
}
