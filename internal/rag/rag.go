// Package rag answers questions about an indexed repository.
//
// The pipeline retrieves the most similar code chunks from the vector
// store, assembles them into a token-bounded context, and asks the
// configured completion model to answer with that context in view.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/llm"
	"github.com/fyrsmithlabs/repochat/internal/tokenizer"
	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

var tracer = otel.Tracer("repochat.rag")

const (
	// DefaultTopK is the number of chunks retrieved when the caller does
	// not specify one.
	DefaultTopK = 5

	// maxSnippetChars caps a single retrieved snippet. Chunking already
	// bounds chunk size in tokens; this is a hard character backstop for
	// collections indexed with a larger budget.
	maxSnippetChars = 5000

	// contextTokenBudget bounds the combined context handed to the model.
	contextTokenBudget = 30000

	truncationMarker = "[snippet omitted: context budget exhausted]"
)

const systemPrompt = `You are a senior software engineer answering questions about a codebase.
Ground every answer in the code context provided by the user. Cite file
paths when they are relevant. If the context does not contain enough
information to answer, say so plainly instead of guessing.`

// ErrEmptyQuery is returned when Ask is called without a question.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Source identifies a retrieved chunk that informed an answer.
type Source struct {
	Filepath    string  `json:"filepath"`
	ChunkIndex  int     `json:"chunk_index,omitempty"`
	TotalChunks int     `json:"total_chunks,omitempty"`
	Score       float32 `json:"score"`
}

// Answer is the model's reply together with its supporting sources.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Engine wires retrieval and completion together.
type Engine struct {
	store     vectorstore.Store
	completer llm.Completer
	logger    *zap.Logger
}

// New creates a chat engine over the given store and completion model.
func New(store vectorstore.Store, completer llm.Completer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, completer: completer, logger: logger.Named("rag")}
}

// Ask retrieves the topK most similar chunks from the namespace and asks
// the completion model to answer the query with those chunks as context.
func (e *Engine) Ask(ctx context.Context, query, namespace string, topK int) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "rag.ask")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := vectorstore.ValidateCollectionName(namespace); err != nil {
		return nil, fmt.Errorf("invalid namespace: %w", err)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	results, err := e.store.Search(ctx, namespace, query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", namespace, err)
	}
	e.logger.Debug("retrieved context",
		zap.String("namespace", namespace),
		zap.Int("top_k", topK),
		zap.Int("hits", len(results)))

	contextText, sources := buildContext(results)
	userPrompt := buildPrompt(query, contextText)

	text, err := e.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("completing answer: %w", err)
	}

	return &Answer{Text: text, Sources: sources}, nil
}

// buildContext renders search results into per-file context blocks and
// trims the combined text to the token budget. Once the budget is
// exhausted remaining blocks keep only their header and a marker, so the
// model still sees which files matched.
func buildContext(results []vectorstore.SearchResult) (string, []Source) {
	var blocks []string
	sources := make([]Source, 0, len(results))
	budget := contextTokenBudget

	for _, r := range results {
		src := sourceFromResult(r)
		sources = append(sources, src)

		snippet := r.Content
		if len(snippet) > maxSnippetChars {
			snippet = snippet[:maxSnippetChars]
		}

		header := fmt.Sprintf("File: %s", src.Filepath)
		block := fmt.Sprintf("%s\n```\n%s\n```", header, snippet)
		cost := tokenizer.Estimate(block)
		if cost > budget {
			blocks = append(blocks, fmt.Sprintf("%s\n%s", header, truncationMarker))
			budget = 0
			continue
		}
		blocks = append(blocks, block)
		budget -= cost
	}

	return strings.Join(blocks, "\n\n"), sources
}

func buildPrompt(query, contextText string) string {
	if contextText == "" {
		contextText = "(no matching code found in the indexed repository)"
	}
	return fmt.Sprintf("<CODE_CONTEXT>\n%s\n</CODE_CONTEXT>\n\nQuestion: %s", contextText, query)
}

func sourceFromResult(r vectorstore.SearchResult) Source {
	return Source{
		Filepath:    metadataString(r.Metadata, "filepath"),
		ChunkIndex:  metadataInt(r.Metadata, "chunk_index"),
		TotalChunks: metadataInt(r.Metadata, "total_chunks"),
		Score:       r.Score,
	}
}

func metadataString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// metadataInt tolerates both native ints and the string round-trip some
// backends apply to metadata values.
func metadataInt(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
