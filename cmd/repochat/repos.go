package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage indexed repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed repositories",
	RunE:  runReposList,
}

var reposDeleteCmd = &cobra.Command{
	Use:   "delete <namespace>",
	Short: "Delete an indexed repository",
	Long: `Delete the namespace's vector collection and its registry entry.
Deleting an unknown namespace succeeds without effect.`,
	Args: cobra.ExactArgs(1),
	RunE: runReposDelete,
}

func init() {
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposDeleteCmd)
}

func runReposList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.registry.All()
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no repositories indexed")
		return nil
	}

	namespaces := make([]string, 0, len(entries))
	for ns := range entries {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tCHUNKS\tURL")
	for _, ns := range namespaces {
		chunks := "-"
		if info, err := a.store.GetCollectionInfo(cmd.Context(), ns); err == nil {
			chunks = fmt.Sprintf("%d", info.PointCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ns, chunks, entries[ns])
	}
	return w.Flush()
}

func runReposDelete(cmd *cobra.Command, args []string) error {
	namespace := args[0]
	if err := vectorstore.ValidateCollectionName(namespace); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	exists, err := a.store.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", namespace, err)
	}
	if exists {
		if err := a.store.DeleteCollection(ctx, namespace); err != nil {
			return fmt.Errorf("deleting collection %s: %w", namespace, err)
		}
	}
	if err := a.registry.Delete(namespace); err != nil {
		return fmt.Errorf("updating registry: %w", err)
	}

	fmt.Printf("deleted %s\n", namespace)
	return nil
}
