// Package llm provides chat completion via Groq, OpenAI, and Anthropic.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/repochat/internal/config"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCompletionFailed indicates the provider returned no usable answer.
	ErrCompletionFailed = errors.New("completion failed")
)

// Completer generates a chat completion from a system and user prompt.
//
// The provider is chosen once at configuration time; callers depend only
// on this interface.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// NewCompleter creates the configured completion provider.
func NewCompleter(cfg config.LLMConfig) (Completer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if cfg.APIKey.Value() == "" {
		return nil, fmt.Errorf("%w: %s API key required", ErrInvalidConfig, cfg.Provider)
	}

	switch cfg.Provider {
	case "groq", "":
		return NewGroqCompleter(cfg.Model, cfg.APIKey.Value())
	case "openai":
		return NewOpenAICompleter(cfg.Model, cfg.APIKey.Value())
	case "anthropic":
		return NewAnthropicCompleter(cfg.Model, cfg.APIKey.Value())
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: groq, openai, anthropic)", ErrInvalidConfig, cfg.Provider)
	}
}

// complete runs a system+user chat exchange against any langchaingo model.
func complete(ctx context.Context, model llms.Model, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", ErrCompletionFailed)
	}
	return response.Choices[0].Content, nil
}

// GroqCompleter completes through Groq's OpenAI-compatible API.
type GroqCompleter struct {
	llm   llms.Model
	model string
}

// NewGroqCompleter creates a Groq completion provider.
func NewGroqCompleter(model, apiKey string) (*GroqCompleter, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithBaseURL(groqBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Groq client: %w", err)
	}
	return &GroqCompleter{llm: llm, model: model}, nil
}

// Complete generates a chat completion.
func (c *GroqCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return complete(ctx, c.llm, systemPrompt, userPrompt)
}

// Model returns the model name.
func (c *GroqCompleter) Model() string { return c.model }

// OpenAICompleter completes through the OpenAI chat API.
type OpenAICompleter struct {
	llm   llms.Model
	model string
}

// NewOpenAICompleter creates an OpenAI completion provider.
func NewOpenAICompleter(model, apiKey string) (*OpenAICompleter, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return &OpenAICompleter{llm: llm, model: model}, nil
}

// Complete generates a chat completion.
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return complete(ctx, c.llm, systemPrompt, userPrompt)
}

// Model returns the model name.
func (c *OpenAICompleter) Model() string { return c.model }

// AnthropicCompleter completes through the Anthropic messages API.
type AnthropicCompleter struct {
	llm   llms.Model
	model string
}

// NewAnthropicCompleter creates an Anthropic completion provider.
func NewAnthropicCompleter(model, apiKey string) (*AnthropicCompleter, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Anthropic client: %w", err)
	}
	return &AnthropicCompleter{llm: llm, model: model}, nil
}

// Complete generates a chat completion.
func (c *AnthropicCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return complete(ctx, c.llm, systemPrompt, userPrompt)
}

// Model returns the model name.
func (c *AnthropicCompleter) Model() string { return c.model }
