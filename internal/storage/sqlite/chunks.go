// ABOUTME: Chunk storage operations for SQLite
// ABOUTME: Stores vectors as BLOBs and scores a scope by cosine similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/util"
)

// ChunkStore handles chunk and vector persistence
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceDocumentChunks atomically swaps the chunk set of a document.
// Existing chunks are deleted and the new ones inserted in one transaction,
// so re-ingestion never leaves duplicates or orphans.
func (s *ChunkStore) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("failed to clear chunks for %s: %w", documentID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, scope_id, sequence_index, total_chunks, section, text, vector, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, c := range chunks {
			if c.DocumentID != documentID {
				return fmt.Errorf("chunk %s belongs to %s, not %s", c.ID, c.DocumentID, documentID)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.ScopeID, c.SequenceIndex,
				c.TotalChunks, c.Section, c.Text, vectorToBlob(c.Vector), now); err != nil {
				return fmt.Errorf("failed to insert chunk %d of %s: %w", c.SequenceIndex, documentID, err)
			}
		}
		return nil
	})
}

// DeleteByDocument removes every chunk of a document and returns how many were removed
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	return res.RowsAffected()
}

// CountByDocument returns the number of stored chunks for a document
func (s *ChunkStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks for %s: %w", documentID, err)
	}
	return count, nil
}

// GetByDocument returns a document's chunks in sequence order
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, scope_id, sequence_index, total_chunks, section, text, vector
		FROM chunks
		WHERE document_id = ?
		ORDER BY sequence_index ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for %s: %w", documentID, err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			c       models.Chunk
			section sql.NullString
			blob    []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ScopeID, &c.SequenceIndex, &c.TotalChunks, &section, &c.Text, &blob); err != nil {
			return nil, err
		}
		c.Section = section.String
		c.Vector = blobToVector(blob)
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// ScoreScope scores every chunk in a scope against the query vector.
// Results are unordered; ranking belongs to the retrieval engine.
func (s *ChunkStore) ScoreScope(ctx context.Context, scopeID string, query []float64) ([]models.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.scope_id, c.sequence_index, c.total_chunks, c.section, c.text, c.vector, d.file_name
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.scope_id = ?
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scope %s: %w", scopeID, err)
	}
	defer func() { _ = rows.Close() }()

	var results []models.ScoredChunk
	for rows.Next() {
		var (
			sc      models.ScoredChunk
			section sql.NullString
			blob    []byte
		)
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.ScopeID, &sc.SequenceIndex, &sc.TotalChunks,
			&section, &sc.Text, &blob, &sc.FileName); err != nil {
			return nil, err
		}
		sc.Section = section.String
		sc.Score = util.RelevanceScore(query, blobToVector(blob))
		results = append(results, sc)
	}

	return results, rows.Err()
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
