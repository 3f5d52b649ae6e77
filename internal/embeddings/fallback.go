package embeddings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FallbackChain tries each provider in order until one succeeds.
//
// The chain is configured explicitly rather than hidden inside a call
// site, so each link can be exercised deterministically in tests. All
// links must agree on the embedding dimension: a fallback that produced
// differently-sized vectors would silently corrupt the collection.
type FallbackChain struct {
	links  []Provider
	logger *zap.Logger
}

// NewFallbackChain creates a chain from the given providers, first link
// first. Returns an error if fewer than one provider is given or the
// providers disagree on dimension.
func NewFallbackChain(logger *zap.Logger, links ...Provider) (*FallbackChain, error) {
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: at least one provider required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dim := links[0].Dimension()
	for _, link := range links[1:] {
		if link.Dimension() != dim {
			return nil, fmt.Errorf("%w: fallback provider %s has dimension %d, primary %s has %d",
				ErrInvalidConfig, link.Model(), link.Dimension(), links[0].Model(), dim)
		}
	}

	return &FallbackChain{links: links, logger: logger}, nil
}

// EmbedDocuments tries each link until one returns embeddings.
func (c *FallbackChain) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var errs []error
	for i, link := range c.links {
		vectors, err := link.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", link.Model(), err))
		if i < len(c.links)-1 {
			c.logger.Warn("embedding provider failed, falling back",
				zap.String("provider", link.Model()),
				zap.String("next", c.links[i+1].Model()),
				zap.Error(err),
			)
		}
	}
	return nil, fmt.Errorf("all embedding providers failed: %w", errors.Join(errs...))
}

// EmbedQuery tries each link until one returns an embedding.
func (c *FallbackChain) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var errs []error
	for i, link := range c.links {
		vector, err := link.EmbedQuery(ctx, text)
		if err == nil {
			return vector, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", link.Model(), err))
		if i < len(c.links)-1 {
			c.logger.Warn("embedding provider failed, falling back",
				zap.String("provider", link.Model()),
				zap.String("next", c.links[i+1].Model()),
				zap.Error(err),
			)
		}
	}
	return nil, fmt.Errorf("all embedding providers failed: %w", errors.Join(errs...))
}

// Dimension returns the dimension shared by every link.
func (c *FallbackChain) Dimension() int {
	return c.links[0].Dimension()
}

// Model returns the primary link's model name.
func (c *FallbackChain) Model() string {
	return c.links[0].Model()
}

// Close closes every link, returning the first error encountered.
func (c *FallbackChain) Close() error {
	var firstErr error
	for _, link := range c.links {
		if err := link.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Provider = (*FallbackChain)(nil)
