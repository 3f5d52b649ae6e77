package http

import "github.com/fyrsmithlabs/repochat/internal/scanner"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// IndexRequest is the request body for POST /api/v1/repositories.
type IndexRequest struct {
	// URL is the git repository to clone and index.
	URL string `json:"url"`
	// Namespace names the target collection. Defaults to a name derived
	// from the URL.
	Namespace string `json:"namespace"`
	// BatchSize overrides the configured files-per-batch. Zero keeps the
	// configured default.
	BatchSize int `json:"batch_size"`
	// Paths restricts indexing to an explicit file selection, usually
	// obtained from a prior scan.
	Paths []string `json:"paths"`
}

// ScanRequest is the request body for POST /api/v1/repositories/scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResponse lists the indexable files of a scanned repository.
type ScanResponse struct {
	Files []scanner.FileRecord `json:"files"`
}

// RepositoryEntry describes one indexed repository.
type RepositoryEntry struct {
	Namespace string `json:"namespace"`
	URL       string `json:"url"`
	// Chunks is the number of stored vectors, zero when the collection is
	// missing or empty.
	Chunks int `json:"chunks"`
	// VectorSize is the collection's embedding dimension, zero when the
	// backend does not report it.
	VectorSize int `json:"vector_size,omitempty"`
}

// ListRepositoriesResponse is the response body for GET /api/v1/repositories.
type ListRepositoriesResponse struct {
	Repositories []RepositoryEntry `json:"repositories"`
}

// DeleteResponse is the response body for DELETE /api/v1/repositories/:namespace.
type DeleteResponse struct {
	Namespace string `json:"namespace"`
	Deleted   bool   `json:"deleted"`
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Query     string `json:"query"`
	Namespace string `json:"namespace"`
	// TopK is the number of code chunks retrieved as context. Zero uses
	// the default.
	TopK int `json:"top_k"`
}
