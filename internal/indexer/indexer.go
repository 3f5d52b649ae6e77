// Package indexer drives the clone, scan, chunk, embed, upload pipeline
// that turns a repository URL into a searchable vector collection.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/chunker"
	"github.com/fyrsmithlabs/repochat/internal/config"
	"github.com/fyrsmithlabs/repochat/internal/embeddings"
	"github.com/fyrsmithlabs/repochat/internal/gitrepo"
	"github.com/fyrsmithlabs/repochat/internal/ignore"
	"github.com/fyrsmithlabs/repochat/internal/registry"
	"github.com/fyrsmithlabs/repochat/internal/scanner"
	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

var tracer = otel.Tracer("repochat.indexer")

// Status is the pipeline stage an indexing job is in.
type Status string

const (
	StatusCloning   Status = "cloning"
	StatusScanning  Status = "scanning"
	StatusChunking  Status = "chunking"
	StatusEmbedding Status = "embedding"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Job describes one indexing invocation. It is owned exclusively by the
// Index call that receives it; the pipeline keeps no state between jobs.
type Job struct {
	// RepositoryURL is the repository to clone and index.
	RepositoryURL string

	// Namespace is the vector-store collection to upload into.
	Namespace string

	// BatchSize is how many files are processed per upload batch.
	// Zero uses the configured default; the value is clamped to 1..100.
	BatchSize int

	// SelectedPaths restricts indexing to these repository-relative
	// paths. Nil or empty means scan the whole tree.
	SelectedPaths []string
}

// Result is the outcome of an indexing run. Failures are reported here,
// not as errors: every pipeline stage converts its failure into a
// human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Files   int    `json:"files"`
	Chunks  int    `json:"chunks"`
}

// Progress receives stage transitions during a run. May be nil.
type Progress func(status Status, detail string)

// Indexer orchestrates the indexing pipeline.
type Indexer struct {
	cloner   gitrepo.Cloner
	store    vectorstore.Store
	embedder embeddings.Provider
	registry *registry.Registry
	cfg      config.IndexingConfig
	logger   *zap.Logger
}

// New creates an Indexer.
func New(cloner gitrepo.Cloner, store vectorstore.Store, embedder embeddings.Provider, reg *registry.Registry, cfg config.IndexingConfig, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		cloner:   cloner,
		store:    store,
		embedder: embedder,
		registry: reg,
		cfg:      cfg,
		logger:   logger,
	}
}

func report(progress Progress, status Status, detail string) {
	if progress != nil {
		progress(status, detail)
	}
}

func fail(progress Progress, format string, args ...interface{}) Result {
	msg := fmt.Sprintf(format, args...)
	report(progress, StatusFailed, msg)
	return Result{Success: false, Message: msg}
}

// Index runs the full pipeline for one job. Uploading into an existing
// namespace appends; use Reindex for full replacement.
//
// The temporary clone directory is removed on every exit path.
func (ix *Indexer) Index(ctx context.Context, job Job, progress Progress) Result {
	ctx, span := tracer.Start(ctx, "Indexer.Index")
	defer span.End()

	span.SetAttributes(
		attribute.String("namespace", job.Namespace),
		attribute.String("repository", job.RepositoryURL),
	)

	if err := vectorstore.ValidateCollectionName(job.Namespace); err != nil {
		return fail(progress, "invalid namespace: %v", err)
	}

	batchSize := job.BatchSize
	if batchSize == 0 {
		batchSize = ix.cfg.BatchSize
	}
	if batchSize < 1 {
		batchSize = 1
	} else if batchSize > 100 {
		batchSize = 100
	}

	// The embedding dimension is fixed per model; an existing collection
	// built with a different dimension is a configuration error, never
	// something to paper over by truncating or padding vectors.
	if err := ix.ensureCollection(ctx, job.Namespace); err != nil {
		return fail(progress, "%v", err)
	}

	report(progress, StatusCloning, job.RepositoryURL)
	dir, cleanup, err := ix.cloner.Clone(ctx, job.RepositoryURL)
	if err != nil {
		return fail(progress, "cloning repository: %v", err)
	}
	defer cleanup()

	files, res := ix.selectFiles(dir, job, progress)
	if res != nil {
		return *res
	}
	if len(files) == 0 {
		return fail(progress, "no files to index in %s", job.RepositoryURL)
	}

	totalChunks := 0
	for start := 0; start < len(files); start += batchSize {
		end := min(start+batchSize, len(files))
		batch := files[start:end]

		detail := fmt.Sprintf("files %d-%d of %d", start+1, end, len(files))
		report(progress, StatusChunking, detail)

		docs := ix.buildDocuments(dir, job, batch)
		if len(docs) == 0 {
			continue
		}

		report(progress, StatusEmbedding, detail)
		report(progress, StatusUploading, detail)
		if _, err := ix.store.AddDocuments(ctx, job.Namespace, docs); err != nil {
			return fail(progress, "uploading batch: %v", err)
		}
		totalChunks += len(docs)

		// The batch's documents go out of scope here, bounding peak
		// memory to one batch regardless of repository size.
	}

	if ix.registry != nil {
		if err := ix.registry.Put(job.Namespace, job.RepositoryURL); err != nil {
			ix.logger.Warn("failed to record repository in registry",
				zap.String("namespace", job.Namespace),
				zap.Error(err),
			)
		}
	}

	msg := fmt.Sprintf("indexed %d files (%d chunks) into %s", len(files), totalChunks, job.Namespace)
	report(progress, StatusDone, msg)

	ix.logger.Info("indexing complete",
		zap.String("namespace", job.Namespace),
		zap.Int("files", len(files)),
		zap.Int("chunks", totalChunks),
	)

	return Result{Success: true, Message: msg, Files: len(files), Chunks: totalChunks}
}

// Reindex rebuilds a namespace from the URL recorded in the registry,
// deleting the existing collection first so stale chunks do not survive.
func (ix *Indexer) Reindex(ctx context.Context, namespace string, progress Progress) Result {
	if ix.registry == nil {
		return fail(progress, "no registry configured")
	}

	url, err := ix.registry.Get(namespace)
	if err != nil {
		return fail(progress, "reading registry: %v", err)
	}
	if url == "" {
		return fail(progress, "no repository URL recorded for namespace %s", namespace)
	}

	exists, err := ix.store.CollectionExists(ctx, namespace)
	if err != nil {
		return fail(progress, "checking collection %s: %v", namespace, err)
	}
	if exists {
		if err := ix.store.DeleteCollection(ctx, namespace); err != nil {
			return fail(progress, "deleting collection %s: %v", namespace, err)
		}
	}

	return ix.Index(ctx, Job{RepositoryURL: url, Namespace: namespace}, progress)
}

// ensureCollection creates the collection with the active model's
// dimension, or verifies an existing collection matches it.
func (ix *Indexer) ensureCollection(ctx context.Context, namespace string) error {
	dim := ix.embedder.Dimension()

	exists, err := ix.store.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", namespace, err)
	}

	if !exists {
		if err := ix.store.CreateCollection(ctx, namespace, dim); err != nil {
			return fmt.Errorf("creating collection %s: %w", namespace, err)
		}
		return nil
	}

	info, err := ix.store.GetCollectionInfo(ctx, namespace)
	if err != nil {
		return fmt.Errorf("inspecting collection %s: %w", namespace, err)
	}
	if info.VectorSize != 0 && info.VectorSize != dim {
		return fmt.Errorf("collection %s was built with %d-dimension vectors but model %s produces %d dimensions; delete the namespace or switch models",
			namespace, info.VectorSize, ix.embedder.Model(), dim)
	}
	return nil
}

// selectFiles returns the file records to index, either from the job's
// explicit selection or by scanning the clone.
func (ix *Indexer) selectFiles(dir string, job Job, progress Progress) ([]scanner.FileRecord, *Result) {
	if len(job.SelectedPaths) > 0 {
		records := make([]scanner.FileRecord, 0, len(job.SelectedPaths))
		for _, p := range job.SelectedPaths {
			records = append(records, scanner.FileRecord{
				Path: filepath.ToSlash(p),
				Ext:  filepath.Ext(p),
			})
		}
		return records, nil
	}

	report(progress, StatusScanning, dir)

	records, err := ix.scanClone(dir)
	if err != nil {
		res := fail(progress, "scanning repository: %v", err)
		return nil, &res
	}
	return records, nil
}

// scanClone scans a cloned working tree with the configured extension
// allow-list and the merged directory deny-list.
func (ix *Indexer) scanClone(dir string) ([]scanner.FileRecord, error) {
	ignoreDirs := append([]string{}, ix.cfg.IgnoreDirs...)
	if extra, err := ignore.NewParser(nil).DirNames(dir); err == nil {
		ignoreDirs = append(ignoreDirs, extra...)
	} else {
		ix.logger.Warn("failed to parse ignore files", zap.Error(err))
	}

	return scanner.Scan(dir, scanner.Options{
		Extensions: ix.cfg.Extensions,
		IgnoreDirs: ignoreDirs,
	})
}

// ScanRepository clones the repository and returns its indexable files
// without indexing them, so a caller can present the list for selection.
func (ix *Indexer) ScanRepository(ctx context.Context, url string) ([]scanner.FileRecord, error) {
	dir, cleanup, err := ix.cloner.Clone(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cloning repository: %w", err)
	}
	defer cleanup()

	return ix.scanClone(dir)
}

// buildDocuments reads and chunks one batch of files into store documents.
// Unreadable files are skipped with a warning rather than failing the run.
func (ix *Indexer) buildDocuments(dir string, job Job, batch []scanner.FileRecord) []vectorstore.Document {
	var docs []vectorstore.Document

	for _, rec := range batch {
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rec.Path)))
		if err != nil {
			ix.logger.Warn("skipping unreadable file",
				zap.String("path", rec.Path),
				zap.Error(err),
			)
			continue
		}

		chunks := chunker.File(rec.Path, string(content), chunker.Options{
			MaxTokens:    ix.cfg.MaxTokens,
			OverlapLines: ix.cfg.OverlapLines,
			Model:        ix.embedder.Model(),
			Language:     chunker.LanguageForExt(rec.Ext),
		})

		for _, c := range chunks {
			docs = append(docs, vectorstore.Document{
				ID:      uuid.NewString(),
				Content: c.Content,
				Metadata: map[string]interface{}{
					"filepath":     c.SourcePath,
					"chunk_index":  c.Index,
					"total_chunks": c.Total,
					"repository":   job.RepositoryURL,
				},
			})
		}
	}

	return docs
}
