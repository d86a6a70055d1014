// ABOUTME: Document is an uploaded reference file and its extracted text
// ABOUTME: Immutable once created; removed only by explicit deletion
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded file within a scope
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	ScopeID    string    `json:"scope_id" yaml:"scope_id"`
	FileName   string    `json:"file_name" yaml:"file_name"`
	MimeType   string    `json:"mime_type" yaml:"mime_type"`
	SizeBytes  int64     `json:"size_bytes" yaml:"size_bytes"`
	RawText    string    `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

// DocumentSummary is a listing row: the document plus its stored chunk count
type DocumentSummary struct {
	Document   `yaml:",inline"`
	ChunkCount int `json:"chunk_count" yaml:"chunk_count"`
}

// NewDocument creates a Document with a fresh ID
func NewDocument(scopeID, fileName, mimeType string, sizeBytes int64, rawText string) (*Document, error) {
	if strings.TrimSpace(scopeID) == "" {
		return nil, ValidationError("scopeId is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, ValidationError("file name is required")
	}
	return &Document{
		ID:         generateDocumentID(),
		ScopeID:    scopeID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  sizeBytes,
		RawText:    rawText,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func generateDocumentID() string {
	return fmt.Sprintf("doc_%s", uuid.New().String())
}
