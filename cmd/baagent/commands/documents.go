// ABOUTME: CLI commands to list and delete stored documents
// ABOUTME: Deleting a document removes every chunk derived from it
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	documentsScope string
)

// NewDocumentsCmd creates the documents command group
func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage uploaded documents",
		Long: `List and delete uploaded documents.

Examples:
  baagent documents list --scope discovery
  baagent documents delete 3f2b8c1e-...`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  `List documents in a scope, or every document when --scope is omitted.`,
		RunE:  runDocumentsList,
	}
	list.Flags().StringVar(&documentsScope, "scope", "", "Scope to list")

	del := &cobra.Command{
		Use:   "delete <documentId>",
		Short: "Delete a document and its chunks",
		Long:  `Delete a document and every chunk derived from it. Blocks until both are gone.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runDocumentsDelete,
	}

	cmd.AddCommand(list, del)
	return cmd
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	docs, err := a.Ingestor.List(cmd.Context(), documentsScope)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if useJSON() {
		return printJSON(cmd.OutOrStdout(), docs)
	}
	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSCOPE\tFILE\tCHUNKS\tUPLOADED\n")
	fmt.Fprintf(w, "--\t-----\t----\t------\t--------\n")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			d.ID,
			truncate(d.ScopeID, 20),
			truncate(d.FileName, 30),
			d.ChunkCount,
			formatTime(d.UploadedAt))
	}
	w.Flush()
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Ingestor.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	}
	return nil
}
