package llm

import (
	"context"
	"log/slog"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"google.golang.org/genai"
)

// GeminiClient wraps Google's Generative AI SDK
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.ConfigError("gemini api key is required")
	}

	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.ExternalError(err, "failed to create gemini client")
	}

	logger := slog.Default().With("component", "gemini", "model", model)
	logger.Info("gemini client initialized")

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the Gemini model name
func (c *GeminiClient) Model() string {
	return c.model
}

// CompleteJSON sends a prompt to Gemini and requests JSON response
// Uses Gemini's native JSON mode via the response MIME type
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0.2),
		MaxOutputTokens:   1200,
		ResponseMIMEType:  "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return "", errors.ExternalErrorf(err, "gemini json completion failed (model %s)", c.model)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityLow, "gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityLow, "gemini returned no content parts")
	}

	jsonText := candidate.Content.Parts[0].Text

	c.logger.Debug("gemini json completion",
		"prompt_length", len(userPrompt),
		"response_length", len(jsonText),
	)

	return jsonText, nil
}

// Close releases resources held by the Gemini client
func (c *GeminiClient) Close() error {
	// Gemini client doesn't require explicit cleanup in current SDK version
	return nil
}

func ptrFloat32(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
