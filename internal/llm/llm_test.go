package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repochat/internal/config"
)

func TestNewCompleterSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		model    string
	}{
		{"groq", "llama-3.3-70b-versatile"},
		{"openai", "gpt-4o"},
		{"anthropic", "claude-sonnet-4-20250514"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.LLMConfig{
				Provider: tt.provider,
				Model:    tt.model,
				APIKey:   config.Secret("test-key"),
			}
			c, err := NewCompleter(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.model, c.Model())
		})
	}
}

func TestNewCompleterRequiresAPIKey(t *testing.T) {
	_, err := NewCompleter(config.LLMConfig{Provider: "groq", Model: "llama-3.3-70b-versatile"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewCompleterRequiresModel(t *testing.T) {
	_, err := NewCompleter(config.LLMConfig{Provider: "groq", APIKey: config.Secret("key")})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewCompleterUnknownProvider(t *testing.T) {
	cfg := config.LLMConfig{Provider: "cohere", Model: "m", APIKey: config.Secret("key")}
	_, err := NewCompleter(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
