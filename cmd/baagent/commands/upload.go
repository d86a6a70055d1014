// ABOUTME: CLI command to upload a document into a scope
// ABOUTME: Extracts, chunks and indexes the file synchronously
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/core"
)

var (
	uploadScope string
)

// NewUploadCmd creates the upload command
func NewUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload and index a document",
		Long: `Upload a document into a scope.

The file is stored, split into sections and embedded so it can be
retrieved by search and used as context in agent chats. Supported
types: text, markdown, CSV, JSON, YAML and HTML.

Examples:
  baagent upload --scope discovery interview-notes.md
  baagent upload --scope proj-42 --format json spec.html`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().StringVar(&uploadScope, "scope", "", "Scope the document belongs to (required)")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadScope == "" {
		return fmt.Errorf("--scope is required")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	res, err := a.Ingestor.Upload(cmd.Context(), core.UploadRequest{
		ScopeID:  uploadScope,
		FileName: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("uploading: %w", err)
	}
	a.Ingestor.Wait()

	if useJSON() {
		return printJSON(cmd.OutOrStdout(), res)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Document: %s\n", res.DocumentID)
	fmt.Fprintf(cmd.OutOrStdout(), "Chunks:   %d\n", res.ChunksCreated)
	if res.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning:  %s\n", res.Error)
	}
	if verbose {
		for _, f := range res.Failures {
			fmt.Fprintf(cmd.OutOrStdout(), "  chunk %d (%s): %s\n", f.Index, f.Section, f.Err)
		}
	}
	return nil
}
