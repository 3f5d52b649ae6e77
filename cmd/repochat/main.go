// Package main implements the repochat CLI: index a git repository into a
// vector store and chat with it, either directly or through the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/config"
	"github.com/fyrsmithlabs/repochat/internal/embeddings"
	"github.com/fyrsmithlabs/repochat/internal/gitrepo"
	"github.com/fyrsmithlabs/repochat/internal/indexer"
	"github.com/fyrsmithlabs/repochat/internal/llm"
	"github.com/fyrsmithlabs/repochat/internal/logging"
	"github.com/fyrsmithlabs/repochat/internal/rag"
	"github.com/fyrsmithlabs/repochat/internal/registry"
	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

var (
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repochat",
	Short: "Chat with a GitHub codebase",
	Long: `repochat clones a git repository, chunks and embeds its source files
into a vector store, and answers questions about the code using retrieval
augmented generation.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(scanCmd)
}

// app bundles the wired components shared by all subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    vectorstore.Store
	embedder embeddings.Provider
	registry *registry.Registry
	indexer  *indexer.Indexer
}

// newApp loads configuration and wires the store, embedder, registry and
// indexer. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	embedder, err := embeddings.NewProvider(cfg.Embeddings, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	store, err := vectorstore.NewStore(cfg.VectorStore, embedder, logger)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}

	reg, err := registry.New(cfg.Registry.Path)
	if err != nil {
		store.Close()
		embedder.Close()
		return nil, fmt.Errorf("initializing registry: %w", err)
	}

	ix := indexer.New(gitrepo.NewCloner(logger), store, embedder, reg, cfg.Indexing, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		embedder: embedder,
		registry: reg,
		indexer:  ix,
	}, nil
}

// engine builds the chat pipeline. Separate from newApp because indexing
// commands work without LLM credentials.
func (a *app) engine() (*rag.Engine, error) {
	completer, err := llm.NewCompleter(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("initializing llm: %w", err)
	}
	return rag.New(a.store, completer, a.logger), nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	if err := a.embedder.Close(); err != nil {
		a.logger.Warn("closing embedder", zap.Error(err))
	}
	_ = logging.Sync(a.logger)
}

// printProgress reports indexing stage transitions on stderr.
func printProgress(status indexer.Status, detail string) {
	if detail != "" {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", status, detail)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s\n", status)
}
