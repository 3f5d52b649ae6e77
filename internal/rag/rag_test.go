package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

// fakeStore serves canned search results.
type fakeStore struct {
	results []vectorstore.SearchResult
	err     error
	lastK   int
}

func (s *fakeStore) Search(_ context.Context, _ string, _ string, k int) ([]vectorstore.SearchResult, error) {
	s.lastK = k
	return s.results, s.err
}

func (s *fakeStore) AddDocuments(context.Context, string, []vectorstore.Document) ([]string, error) {
	return nil, nil
}
func (s *fakeStore) CreateCollection(context.Context, string, int) error { return nil }
func (s *fakeStore) DeleteCollection(context.Context, string) error      { return nil }
func (s *fakeStore) CollectionExists(context.Context, string) (bool, error) {
	return true, nil
}
func (s *fakeStore) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (s *fakeStore) GetCollectionInfo(context.Context, string) (*vectorstore.CollectionInfo, error) {
	return nil, vectorstore.ErrCollectionNotFound
}
func (s *fakeStore) Close() error { return nil }

// fakeCompleter records the prompts it receives.
type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (c *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.system = system
	c.user = user
	return c.reply, c.err
}

func (c *fakeCompleter) Model() string { return "test-model" }

func hit(path, content string, index, total int, score float32) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		ID:      path,
		Content: content,
		Score:   score,
		Metadata: map[string]interface{}{
			"filepath":     path,
			"chunk_index":  index,
			"total_chunks": total,
		},
	}
}

func TestAskBuildsContextAndSources(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		hit("auth/login.py", "def login(user):\n    return token(user)\n", 1, 3, 0.92),
		hit("auth/token.py", "def token(user):\n    return sign(user)\n", 2, 3, 0.88),
	}}
	completer := &fakeCompleter{reply: "login calls token which signs the user"}
	engine := New(store, completer, zap.NewNop())

	answer, err := engine.Ask(context.Background(), "how does login work?", "myrepo", 2)
	require.NoError(t, err)

	assert.Equal(t, "login calls token which signs the user", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "auth/login.py", answer.Sources[0].Filepath)
	assert.Equal(t, 1, answer.Sources[0].ChunkIndex)
	assert.Equal(t, 3, answer.Sources[0].TotalChunks)
	assert.InDelta(t, 0.92, answer.Sources[0].Score, 0.001)

	// The model sees each file header, fenced snippets and the question.
	assert.Contains(t, completer.user, "<CODE_CONTEXT>")
	assert.Contains(t, completer.user, "File: auth/login.py")
	assert.Contains(t, completer.user, "def login(user):")
	assert.Contains(t, completer.user, "Question: how does login work?")
	assert.Contains(t, completer.system, "senior software engineer")
	assert.Equal(t, 2, store.lastK)
}

func TestAskEmptyQuery(t *testing.T) {
	engine := New(&fakeStore{}, &fakeCompleter{}, zap.NewNop())

	_, err := engine.Ask(context.Background(), "   ", "myrepo", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAskInvalidNamespace(t *testing.T) {
	engine := New(&fakeStore{}, &fakeCompleter{}, zap.NewNop())

	_, err := engine.Ask(context.Background(), "anything", "Bad Namespace!", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid namespace")
}

func TestAskDefaultTopK(t *testing.T) {
	store := &fakeStore{}
	engine := New(store, &fakeCompleter{reply: "ok"}, zap.NewNop())

	_, err := engine.Ask(context.Background(), "anything", "myrepo", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, store.lastK)
}

func TestAskNoMatches(t *testing.T) {
	completer := &fakeCompleter{reply: "I could not find that in the repository."}
	engine := New(&fakeStore{}, completer, zap.NewNop())

	answer, err := engine.Ask(context.Background(), "where is the billing code?", "myrepo", 5)
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, completer.user, "no matching code found")
}

func TestAskSearchError(t *testing.T) {
	store := &fakeStore{err: vectorstore.ErrCollectionNotFound}
	engine := New(store, &fakeCompleter{}, zap.NewNop())

	_, err := engine.Ask(context.Background(), "anything", "missing", 5)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)
}

func TestAskCompleterError(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{hit("a.py", "x = 1", 1, 1, 0.5)}}
	engine := New(store, &fakeCompleter{err: errors.New("rate limited")}, zap.NewNop())

	_, err := engine.Ask(context.Background(), "anything", "myrepo", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestBuildContextSnippetCap(t *testing.T) {
	long := strings.Repeat("a", maxSnippetChars+500)
	text, _ := buildContext([]vectorstore.SearchResult{hit("big.py", long, 1, 1, 0.9)})

	assert.LessOrEqual(t, len(text), maxSnippetChars+200)
	assert.Contains(t, text, "File: big.py")
}

func TestBuildContextTokenBudget(t *testing.T) {
	// Each block is ~25k tokens, so the second exceeds the 30k budget and
	// must be reduced to its header plus a marker.
	big := strings.Repeat("word ", 20000)
	results := []vectorstore.SearchResult{
		hit("first.py", big, 1, 1, 0.9),
		hit("second.py", big, 1, 1, 0.8),
	}
	text, sources := buildContext(results)

	assert.Contains(t, text, "File: first.py")
	assert.Contains(t, text, "File: second.py")
	assert.Contains(t, text, truncationMarker)
	assert.Len(t, sources, 2)
}

func TestMetadataIntStringRoundTrip(t *testing.T) {
	src := sourceFromResult(vectorstore.SearchResult{
		Content: "x",
		Metadata: map[string]interface{}{
			"filepath":     "a.py",
			"chunk_index":  "2",
			"total_chunks": "7",
		},
	})

	assert.Equal(t, 2, src.ChunkIndex)
	assert.Equal(t, 7, src.TotalChunks)
}
