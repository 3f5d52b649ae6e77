// Package vectorstore defines the interface for vector storage operations
// and provides the chromem-go and Qdrant implementations.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when attempting to create an existing collection.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, hyphens, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateCollectionName validates a collection name against naming rules.
// Rejects uppercase, special characters, path traversal, and spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_-]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Embedder generates vector embeddings from text.
//
// Implementations can use cloud APIs (OpenAI) or a self-hosted inference
// server (HuggingFace TEI).
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector storage operations.
//
// A collection holds all chunks for one indexed repository; the collection
// name is the repository's namespace. The interface is transport-agnostic:
// implementations can be embedded (chromem-go) or remote (Qdrant gRPC).
//
// Uploading into an existing collection appends; full replacement requires
// an explicit DeleteCollection first.
type Store interface {
	// AddDocuments embeds and upserts documents into a collection.
	// Returns the IDs of the stored documents.
	AddDocuments(ctx context.Context, collectionName string, docs []Document) ([]string, error)

	// Search embeds the query and returns up to k results from the
	// collection, ordered by similarity score (highest first).
	Search(ctx context.Context, collectionName string, query string, k int) ([]SearchResult, error)

	// CreateCollection creates a new collection configured for vectors of
	// the given dimensionality. Returns ErrCollectionExists if present.
	CreateCollection(ctx context.Context, collectionName string, vectorSize int) error

	// DeleteCollection deletes a collection and all its documents.
	DeleteCollection(ctx context.Context, collectionName string) error

	// CollectionExists reports whether a collection exists. An error is
	// returned only if the check itself fails.
	CollectionExists(ctx context.Context, collectionName string) (bool, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollectionInfo returns collection metadata. VectorSize is zero
	// when the backend cannot report the stored dimension.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error)

	// Close releases the store's resources.
	Close() error
}
