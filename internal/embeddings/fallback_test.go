package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider records calls and can be set to fail.
type fakeProvider struct {
	model string
	dim   int
	fail  bool
	calls int
}

func (f *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider down")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider down")
	}
	return make([]float32, f.dim), nil
}

func (f *fakeProvider) Dimension() int { return f.dim }
func (f *fakeProvider) Model() string  { return f.model }
func (f *fakeProvider) Close() error   { return nil }

func TestFallbackChainPrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{model: "primary", dim: 768}
	backup := &fakeProvider{model: "backup", dim: 768}

	chain, err := NewFallbackChain(zap.NewNop(), primary, backup)
	require.NoError(t, err)

	vectors, err := chain.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls, "backup must not be called when primary succeeds")
}

func TestFallbackChainFallsBack(t *testing.T) {
	primary := &fakeProvider{model: "primary", dim: 768, fail: true}
	backup := &fakeProvider{model: "backup", dim: 768}

	chain, err := NewFallbackChain(zap.NewNop(), primary, backup)
	require.NoError(t, err)

	vector, err := chain.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, vector, 768)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestFallbackChainAllFail(t *testing.T) {
	primary := &fakeProvider{model: "primary", dim: 768, fail: true}
	backup := &fakeProvider{model: "backup", dim: 768, fail: true}

	chain, err := NewFallbackChain(zap.NewNop(), primary, backup)
	require.NoError(t, err)

	_, err = chain.EmbedDocuments(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all embedding providers failed")
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "backup")
}

func TestFallbackChainRejectsDimensionMismatch(t *testing.T) {
	primary := &fakeProvider{model: "text-embedding-3-large", dim: 3072}
	backup := &fakeProvider{model: "all-mpnet-base-v2", dim: 768}

	_, err := NewFallbackChain(zap.NewNop(), primary, backup)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFallbackChainRequiresProviders(t *testing.T) {
	_, err := NewFallbackChain(zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
