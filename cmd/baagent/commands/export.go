// ABOUTME: Export command writes documents and threads to YAML or Markdown
// ABOUTME: Vectors are never exported; requires the sqlite storage driver
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/storage/sqlite"
)

var (
	exportOutput string
	exportAs     string
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents and conversations",
		Long: `Export every document (with its chunk outline) and every
conversation thread with its working memory.

Examples:
  baagent export
  baagent export --as markdown --output backup.md`,
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&exportAs, "as", "yaml", "Export format (yaml, markdown)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateOneOf(exportAs, "--as", "yaml", "markdown"); err != nil {
		return err
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	store, ok := a.Store.(*sqlite.Storage)
	if !ok {
		return fmt.Errorf("export requires the sqlite storage driver")
	}

	ctx := cmd.Context()
	switch {
	case exportOutput == "" && exportAs == "markdown":
		return store.WriteMarkdown(ctx, cmd.OutOrStdout())
	case exportOutput == "":
		return store.WriteYAML(ctx, cmd.OutOrStdout())
	case exportAs == "markdown":
		err = store.ExportToMarkdown(ctx, exportOutput)
	default:
		err = store.ExportToYAML(ctx, exportOutput)
	}
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportOutput)
	}
	return nil
}
