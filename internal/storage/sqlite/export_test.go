// ABOUTME: Tests for export functionality
// ABOUTME: Verifies YAML and Markdown export of documents and threads
package sqlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

func seedExportData(t *testing.T, store *Storage) {
	t.Helper()
	ctx := context.Background()
	doc := seedDocument(t, store, "doc_export", "discovery", "vision.md")
	if err := store.ReplaceDocumentChunks(ctx, doc.ID, makeChunks(doc, 2, unitVec)); err != nil {
		t.Fatalf("ReplaceDocumentChunks() error = %v", err)
	}

	key := models.ThreadKey{AgentKey: "discovery", ThreadID: "t1", ResourceID: "u1"}
	appendN(t, store, key, 2)
	if err := store.SaveWorkingMemory(ctx, key, models.WorkingMemory{KeyRequirements: "SSO"}); err != nil {
		t.Fatalf("SaveWorkingMemory() error = %v", err)
	}
}

func TestExport(t *testing.T) {
	store := newTestStorage(t)
	seedExportData(t, store)

	data, err := store.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if data.Version != "1.0" {
		t.Errorf("Version = %v, want 1.0", data.Version)
	}
	if data.Tool != "ba-agent" {
		t.Errorf("Tool = %v, want ba-agent", data.Tool)
	}
	if len(data.Documents) != 1 {
		t.Fatalf("Documents count = %v, want 1", len(data.Documents))
	}
	if len(data.Documents[0].Chunks) != 2 {
		t.Errorf("Chunks count = %v, want 2", len(data.Documents[0].Chunks))
	}
	if len(data.Threads) != 1 {
		t.Fatalf("Threads count = %v, want 1", len(data.Threads))
	}
	if data.Threads[0].WorkingMemory["keyRequirements"] != "SSO" {
		t.Errorf("WorkingMemory = %v, want keyRequirements=SSO", data.Threads[0].WorkingMemory)
	}
}

func TestExportToYAML(t *testing.T) {
	store := newTestStorage(t)
	seedExportData(t, store)

	outputPath := filepath.Join(t.TempDir(), "nested", "export.yaml")
	if err := store.ExportToYAML(context.Background(), outputPath); err != nil {
		t.Fatalf("ExportToYAML() error = %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	var data ExportData
	if err := yaml.Unmarshal(content, &data); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if len(data.Documents) != 1 || data.Documents[0].FileName != "vision.md" {
		t.Errorf("Documents = %+v, want vision.md", data.Documents)
	}
	if strings.Contains(string(content), "vector") {
		t.Error("YAML export leaked vectors")
	}
}

func TestWriteMarkdown(t *testing.T) {
	store := newTestStorage(t)
	seedExportData(t, store)

	var buf bytes.Buffer
	if err := store.WriteMarkdown(context.Background(), &buf); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"# BA Agent Export", "## Documents", "vision.md", "## Conversations", "**User:** msg 0", "**Agent:** msg 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportEmptyDatabase(t *testing.T) {
	store := newTestStorage(t)

	data, err := store.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(data.Documents) != 0 {
		t.Errorf("Expected 0 documents, got %d", len(data.Documents))
	}
	if len(data.Threads) != 0 {
		t.Errorf("Expected 0 threads, got %d", len(data.Threads))
	}
}
