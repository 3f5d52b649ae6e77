package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <repository-url>",
	Short: "List the indexable files of a repository",
	Long: `Clone a repository and list the files that would be indexed, without
indexing anything. Use the paths with "repochat index --path" to index a
subset.

Examples:
  repochat scan https://github.com/user/project`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := a.indexer.ScanRepository(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("scanning repository: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("no indexable files found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE(KB)")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%.2f\n", f.Path, f.SizeKB)
	}
	return w.Flush()
}
