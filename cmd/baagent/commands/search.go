// ABOUTME: CLI command to search uploaded documents
// ABOUTME: Ranks chunks of one scope by semantic similarity to the query
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/core"
)

var (
	searchLimit int
	searchScope string
	searchRaw   bool
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search uploaded documents",
		Long: `Search the documents of a scope by meaning.

Returns the most relevant sections with their source file, position
and relevance score. --context prints the block exactly as agents
receive it.

Examples:
  baagent search --scope discovery "payment methods"
  baagent search --scope proj-42 --limit 10 "login flow"
  baagent search --scope proj-42 --format json "SLA"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", core.DefaultRetrievalLimit, "Maximum results to return")
	cmd.Flags().StringVar(&searchScope, "scope", "", "Scope to search (required)")
	cmd.Flags().BoolVar(&searchRaw, "context", false, "Print the formatted context block")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}
	if searchScope == "" {
		return fmt.Errorf("--scope is required")
	}
	query := args[0]

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	results, err := a.Retriever.RetrieveStrict(cmd.Context(), query, searchScope, searchLimit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if useJSON() {
		return printJSON(cmd.OutOrStdout(), results)
	}
	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No results found for query: %s\n", query)
		}
		return nil
	}
	if searchRaw {
		fmt.Fprintln(cmd.OutOrStdout(), core.FormatContext(results))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tSOURCE\tCHUNK\tSECTION\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t------\t-----\t-------\t-------\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%d/%d\t%s\t%s\n",
			r.Score,
			truncate(r.FileName, 25),
			r.ChunkIndex+1, r.TotalChunks,
			truncate(r.Section, 25),
			truncate(r.Content, 50))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
	}
	return nil
}
