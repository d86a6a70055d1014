// ABOUTME: Export functionality for documents and conversation threads
// ABOUTME: Supports YAML and Markdown export formats; vectors are never exported
package sqlite

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportData represents the complete exportable data structure
type ExportData struct {
	Version    string           `yaml:"version" json:"version"`
	ExportedAt string           `yaml:"exported_at" json:"exported_at"`
	Tool       string           `yaml:"tool" json:"tool"`
	Documents  []ExportDocument `yaml:"documents,omitempty" json:"documents,omitempty"`
	Threads    []ExportThread   `yaml:"threads,omitempty" json:"threads,omitempty"`
}

// ExportDocument represents a document and its chunk outline for export
type ExportDocument struct {
	DocumentID string        `yaml:"document_id" json:"document_id"`
	ScopeID    string        `yaml:"scope_id" json:"scope_id"`
	FileName   string        `yaml:"file_name" json:"file_name"`
	MimeType   string        `yaml:"mime_type,omitempty" json:"mime_type,omitempty"`
	SizeBytes  int64         `yaml:"size_bytes" json:"size_bytes"`
	UploadedAt string        `yaml:"uploaded_at" json:"uploaded_at"`
	Chunks     []ExportChunk `yaml:"chunks,omitempty" json:"chunks,omitempty"`
}

// ExportChunk represents one chunk without its vector
type ExportChunk struct {
	Index   int    `yaml:"index" json:"index"`
	Section string `yaml:"section" json:"section"`
	Text    string `yaml:"text" json:"text"`
}

// ExportThread represents a conversation thread for export
type ExportThread struct {
	AgentKey      string            `yaml:"agent_key" json:"agent_key"`
	ThreadID      string            `yaml:"thread_id" json:"thread_id"`
	ResourceID    string            `yaml:"resource_id" json:"resource_id"`
	WorkingMemory map[string]string `yaml:"working_memory,omitempty" json:"working_memory,omitempty"`
	Messages      []ExportMessage   `yaml:"messages" json:"messages"`
}

// ExportMessage represents a message for export
type ExportMessage struct {
	Role      string `yaml:"role" json:"role"`
	Content   string `yaml:"content" json:"content"`
	Timestamp string `yaml:"timestamp" json:"timestamp"`
}

// Export exports all documents and threads from storage
func (s *Storage) Export(ctx context.Context) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "ba-agent",
	}

	docs, err := s.ListAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		chunks, err := s.GetByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chunks for %s: %w", doc.ID, err)
		}

		exportDoc := ExportDocument{
			DocumentID: doc.ID,
			ScopeID:    doc.ScopeID,
			FileName:   doc.FileName,
			MimeType:   doc.MimeType,
			SizeBytes:  doc.SizeBytes,
			UploadedAt: doc.UploadedAt.Format(time.RFC3339),
			Chunks:     make([]ExportChunk, 0, len(chunks)),
		}
		for _, c := range chunks {
			exportDoc.Chunks = append(exportDoc.Chunks, ExportChunk{
				Index:   c.SequenceIndex,
				Section: c.Section,
				Text:    c.Text,
			})
		}
		data.Documents = append(data.Documents, exportDoc)
	}

	keys, err := s.ListThreadKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	for _, key := range keys {
		thread, err := s.GetThread(ctx, key)
		if err != nil || thread == nil {
			continue
		}

		exportThread := ExportThread{
			AgentKey:   thread.AgentKey,
			ThreadID:   thread.ThreadID,
			ResourceID: thread.ResourceID,
			Messages:   make([]ExportMessage, 0, len(thread.Messages)),
		}
		if !thread.WorkingMemory.IsEmpty() {
			exportThread.WorkingMemory = nonEmptySlots(thread.WorkingMemory.Slots())
		}
		for _, msg := range thread.Messages {
			exportThread.Messages = append(exportThread.Messages, ExportMessage{
				Role:      string(msg.Role),
				Content:   msg.Content,
				Timestamp: msg.CreatedAt.Format(time.RFC3339),
			})
		}
		data.Threads = append(data.Threads, exportThread)
	}

	return data, nil
}

// WriteYAML encodes the export to w
func (s *Storage) WriteYAML(ctx context.Context, w io.Writer) error {
	data, err := s.Export(ctx)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// ExportToYAML exports data to a YAML file
func (s *Storage) ExportToYAML(ctx context.Context, outputPath string) error {
	file, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return s.WriteYAML(ctx, file)
}

// WriteMarkdown renders the export as Markdown to w
func (s *Storage) WriteMarkdown(ctx context.Context, w io.Writer) error {
	data, err := s.Export(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "# BA Agent Export - %s\n\n", time.Now().Format("2006-01-02"))
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)

	if len(data.Documents) > 0 {
		_, _ = fmt.Fprintln(w, "## Documents")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "| File | Scope | Chunks | Uploaded |")
		_, _ = fmt.Fprintln(w, "|------|-------|--------|----------|")
		for _, doc := range data.Documents {
			_, _ = fmt.Fprintf(w, "| %s | %s | %d | %s |\n", doc.FileName, doc.ScopeID, len(doc.Chunks), doc.UploadedAt)
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(data.Threads) > 0 {
		_, _ = fmt.Fprintln(w, "## Conversations")
		_, _ = fmt.Fprintln(w)
		for _, thread := range data.Threads {
			_, _ = fmt.Fprintf(w, "### %s / %s (%s)\n\n", thread.AgentKey, thread.ThreadID, thread.ResourceID)
			for _, msg := range thread.Messages {
				label := "User"
				if msg.Role == "assistant" {
					label = "Agent"
				}
				_, _ = fmt.Fprintf(w, "**%s:** %s\n\n", label, msg.Content)
			}
			_, _ = fmt.Fprintln(w, "---")
			_, _ = fmt.Fprintln(w)
		}
	}

	return nil
}

// ExportToMarkdown exports data to a Markdown file
func (s *Storage) ExportToMarkdown(ctx context.Context, outputPath string) error {
	file, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return s.WriteMarkdown(ctx, file)
}

func createOutput(outputPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}

func nonEmptySlots(slots map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range slots {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
