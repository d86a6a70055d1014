// ABOUTME: Document storage operations for SQLite
// ABOUTME: Deletion cascades chunks first, then the document, in one transaction
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DocumentStore handles document persistence
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// SaveDocument inserts a document record
func (s *DocumentStore) SaveDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, scope_id, file_name, mime_type, size_bytes, raw_text, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.ScopeID, doc.FileName, doc.MimeType, doc.SizeBytes, doc.RawText, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by ID; returns nil, nil when absent
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var (
		doc      models.Document
		mimeType sql.NullString
		rawText  sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, scope_id, file_name, mime_type, size_bytes, raw_text, uploaded_at
		FROM documents
		WHERE id = ?
	`, id).Scan(&doc.ID, &doc.ScopeID, &doc.FileName, &mimeType, &doc.SizeBytes, &rawText, &doc.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}

	doc.MimeType = mimeType.String
	doc.RawText = rawText.String
	return &doc, nil
}

// ListDocuments lists documents with their chunk counts, newest first.
// An empty scopeID lists every scope.
func (s *DocumentStore) ListDocuments(ctx context.Context, scopeID string) ([]models.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.scope_id, d.file_name, d.mime_type, d.size_bytes, d.uploaded_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d
		WHERE ? = '' OR d.scope_id = ?
		ORDER BY d.uploaded_at DESC, d.id ASC
	`, scopeID, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []models.DocumentSummary
	for rows.Next() {
		var (
			summary  models.DocumentSummary
			mimeType sql.NullString
		)
		if err := rows.Scan(&summary.ID, &summary.ScopeID, &summary.FileName, &mimeType,
			&summary.SizeBytes, &summary.UploadedAt, &summary.ChunkCount); err != nil {
			return nil, err
		}
		summary.MimeType = mimeType.String
		docs = append(docs, summary)
	}

	return docs, rows.Err()
}

// DeleteDocument removes a document and all of its chunks.
// Chunks go first and are verified gone before the document row is removed;
// any failure rolls the whole operation back so it can be retried.
// Returns false when the document did not exist.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	var found bool

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete chunks for %s: %w", id, err)
		}

		var remaining int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = ?`, id).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to verify chunk cascade for %s: %w", id, err)
		}
		if remaining != 0 {
			return fmt.Errorf("chunk cascade for %s left %d chunks", id, remaining)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// ListAllDocuments returns every document including raw text, oldest first
func (s *DocumentStore) ListAllDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope_id, file_name, mime_type, size_bytes, raw_text, uploaded_at
		FROM documents
		ORDER BY uploaded_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		var (
			doc      models.Document
			mimeType sql.NullString
			rawText  sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.ScopeID, &doc.FileName, &mimeType, &doc.SizeBytes, &rawText, &doc.UploadedAt); err != nil {
			return nil, err
		}
		doc.MimeType = mimeType.String
		doc.RawText = rawText.String
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}
