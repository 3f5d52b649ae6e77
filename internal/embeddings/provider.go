// Package embeddings provides embedding generation via OpenAI and
// HuggingFace TEI, with an explicit fallback chain between providers.
package embeddings

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/config"
	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrUnknownModel indicates a model with no known dimension.
	ErrUnknownModel = errors.New("unknown embedding model")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the provider's model.
	Dimension() int
	// Model returns the model name.
	Model() string
	// Close releases resources held by the provider.
	Close() error
}

// modelDimensions is the fixed model-to-dimension lookup table. Vector
// collections are provisioned from this table, never from an observed
// vector, so a wrong entry is a loud failure rather than a corrupt index.
var modelDimensions = map[string]int{
	"text-embedding-3-large":                3072,
	"text-embedding-3-small":                1536,
	"text-embedding-ada-002":                1536,
	"all-mpnet-base-v2":                     768,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"BAAI/bge-small-en-v1.5":                384,
}

// DimensionForModel returns the embedding dimension for a model name.
// Returns ErrUnknownModel for models not in the lookup table.
func DimensionForModel(model string) (int, error) {
	if dim, ok := modelDimensions[model]; ok {
		return dim, nil
	}
	return 0, fmt.Errorf("%w: %q (known models: text-embedding-3-large, text-embedding-3-small, text-embedding-ada-002, all-mpnet-base-v2, BAAI/bge-small-en-v1.5)", ErrUnknownModel, model)
}

// NewProvider creates the configured embedding provider, wrapped in a
// fallback chain when a fallback provider is configured.
func NewProvider(cfg config.EmbeddingsConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	primary, err := newSingleProvider(cfg.Provider, cfg.Model, cfg.BaseURL, cfg.APIKey.Value())
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}

	if !cfg.Fallback.Enabled() {
		return primary, nil
	}

	fallback, err := newSingleProvider(cfg.Fallback.Provider, cfg.Fallback.Model, cfg.Fallback.BaseURL, cfg.Fallback.APIKey.Value())
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("creating fallback %s provider: %w", cfg.Fallback.Provider, err)
	}

	return NewFallbackChain(logger, primary, fallback)
}

func newSingleProvider(provider, model, baseURL, apiKey string) (Provider, error) {
	switch provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			Model:   model,
			BaseURL: baseURL,
			APIKey:  apiKey,
		})
	case "huggingface":
		return NewHuggingFaceProvider(HuggingFaceConfig{
			Model:   model,
			BaseURL: baseURL,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: openai, huggingface)", ErrInvalidConfig, provider)
	}
}
