package llm

import (
	"context"
	"testing"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabled(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
	}{
		{"none", "none", "sk-abc"},
		{"empty provider", "", "sk-abc"},
		{"unknown provider", "claude", "sk-abc"},
		{"openai without key", "openai", ""},
		{"gemini without key", "gemini", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(context.Background(), config.AIConfig{Provider: tt.provider}, tt.key)
			require.NoError(t, err)
			assert.False(t, c.IsEnabled())
			assert.Equal(t, ProviderNone, c.GetProvider())

			_, err = c.CompleteJSON(context.Background(), "sys", "user")
			assert.Error(t, err)
		})
	}
}

func TestNewClientOpenAI(t *testing.T) {
	c, err := NewClient(context.Background(), config.AIConfig{Provider: "openai"}, "sk-test-key-000000")
	require.NoError(t, err)
	assert.True(t, c.IsEnabled())
	assert.Equal(t, ProviderOpenAI, c.GetProvider())
	assert.Equal(t, defaultOpenAIModel, c.Model())

	c, err = NewClient(context.Background(), config.AIConfig{Provider: "openai", Model: "gpt-4o"}, "sk-test-key-000000")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Model())
}

func TestClientErrorsAreTyped(t *testing.T) {
	c, err := NewClient(context.Background(), config.AIConfig{Provider: "none"}, "")
	require.NoError(t, err)
	_, err = c.CompleteJSON(context.Background(), "system", "user")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewGeminiClient(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
