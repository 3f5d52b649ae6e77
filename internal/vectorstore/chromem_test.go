package vectorstore

import (
	"context"
	"hash/fnv"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbedder produces deterministic unit vectors from text content, so
// identical texts always match with similarity 1.
type stubEmbedder struct {
	dim int
}

func (e *stubEmbedder) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)%1000) / 1000
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, &stubEmbedder{dim: 8}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemAddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "1", Content: "func parseConfig(path string) error", Metadata: map[string]interface{}{"filepath": "config.go"}},
		{ID: "2", Content: "SELECT * FROM users WHERE id = ?", Metadata: map[string]interface{}{"filepath": "db.go"}},
	}

	ids, err := store.AddDocuments(ctx, "myrepo", docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	results, err := store.Search(ctx, "myrepo", "func parseConfig(path string) error", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "config.go", results[0].Metadata["filepath"])
}

func TestChromemAddEmptyDocumentsFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), "myrepo", nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)
}

func TestChromemSearchMissingCollection(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Search(context.Background(), "absent", "query", 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemSearchCapsKAtCollectionSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, "small", []Document{{ID: "only", Content: "one doc"}})
	require.NoError(t, err)

	results, err := store.Search(ctx, "small", "one doc", 50)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemCreateDeleteCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "repo_a", 8))
	assert.ErrorIs(t, store.CreateCollection(ctx, "repo_a", 8), ErrCollectionExists)

	exists, err := store.CollectionExists(ctx, "repo_a")
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := store.GetCollectionInfo(ctx, "repo_a")
	require.NoError(t, err)
	assert.Equal(t, 8, info.VectorSize)
	assert.Equal(t, 0, info.PointCount)

	require.NoError(t, store.DeleteCollection(ctx, "repo_a"))

	exists, err = store.CollectionExists(ctx, "repo_a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChromemListCollections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "repo_a", 8))
	require.NoError(t, store.CreateCollection(ctx, "repo_b", 8))

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"repo_a", "repo_b"}, names)
}

func TestChromemAppendsOnRepeatedAdd(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, "repo", []Document{{ID: "1", Content: "first"}})
	require.NoError(t, err)
	_, err = store.AddDocuments(ctx, "repo", []Document{{ID: "2", Content: "second"}})
	require.NoError(t, err)

	info, err := store.GetCollectionInfo(ctx, "repo")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointCount)
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, ValidateCollectionName("my_repo-1"))
	assert.ErrorIs(t, ValidateCollectionName(""), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("Has Upper"), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("../etc"), ErrInvalidCollectionName)
}
