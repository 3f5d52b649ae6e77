package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repochat/internal/gitrepo"
	"github.com/fyrsmithlabs/repochat/internal/indexer"
)

var (
	indexNamespace string
	indexBatchSize int
	indexPaths     []string
)

var indexCmd = &cobra.Command{
	Use:   "index <repository-url>",
	Short: "Clone and index a git repository",
	Long: `Clone a git repository, chunk its source files and store their
embeddings in a namespaced collection.

Examples:
  # Index under a namespace derived from the URL
  repochat index https://github.com/user/project

  # Index under an explicit namespace, five files per batch
  repochat index https://github.com/user/project --namespace proj --batch-size 5

  # Index only selected files (paths from a prior scan)
  repochat index https://github.com/user/project --path src/main.py --path src/util.py`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <namespace>",
	Short: "Rebuild a namespace from its recorded repository URL",
	Long: `Delete the namespace's collection and index the repository recorded
for it from scratch. Picks up upstream changes and removes stale chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runReindex,
}

func init() {
	indexCmd.Flags().StringVar(&indexNamespace, "namespace", "", "target collection name (default: derived from URL)")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0, "files per batch (default: configured value)")
	indexCmd.Flags().StringArrayVar(&indexPaths, "path", nil, "index only this file (repeatable)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	url := args[0]

	namespace := indexNamespace
	if namespace == "" {
		name, err := gitrepo.RepoNameFromURL(url)
		if err != nil {
			return fmt.Errorf("cannot derive a namespace from %q; pass --namespace", url)
		}
		namespace = name
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.indexer.Index(cmd.Context(), indexer.Job{
		RepositoryURL: url,
		Namespace:     namespace,
		BatchSize:     indexBatchSize,
		SelectedPaths: indexPaths,
	}, printProgress)

	if !result.Success {
		return fmt.Errorf("indexing failed: %s", result.Message)
	}
	fmt.Println(result.Message)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.indexer.Reindex(cmd.Context(), args[0], printProgress)
	if !result.Success {
		return fmt.Errorf("reindexing failed: %s", result.Message)
	}
	fmt.Println(result.Message)
	return nil
}
