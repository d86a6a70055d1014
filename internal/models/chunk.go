// ABOUTME: Chunk is a header-bounded slice of a document with its embedding
// ABOUTME: Also defines chunker drafts and derived retrieval results
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultSection labels a chunk from a document with no headings and no file name
const DefaultSection = "Document"

// ChunkDraft is one record produced by the chunker before embedding
type ChunkDraft struct {
	Section string `json:"section"`
	Content string `json:"content"`
}

// Chunk is a persisted, embedded slice of a document
type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	ScopeID       string    `json:"scope_id"`
	SequenceIndex int       `json:"sequence_index"`
	TotalChunks   int       `json:"total_chunks"`
	Section       string    `json:"section"`
	Text          string    `json:"text"`
	Vector        []float64 `json:"-"`
}

// ScoredChunk pairs a stored chunk with its parent file name and a similarity score
type ScoredChunk struct {
	Chunk
	FileName string
	Score    float64
}

// RetrievalResult is one ranked hit returned for a query. Never stored.
type RetrievalResult struct {
	ChunkID       string  `json:"chunkId"`
	FileName      string  `json:"fileName"`
	ChunkIndex    int     `json:"chunkIndex"`
	TotalChunks   int     `json:"totalChunks"`
	Section       string  `json:"section"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	SequenceIndex int     `json:"-"`
}

// ToResult converts a scored chunk into a retrieval result
func (s ScoredChunk) ToResult() RetrievalResult {
	return RetrievalResult{
		ChunkID:       s.ID,
		FileName:      s.FileName,
		ChunkIndex:    s.SequenceIndex,
		TotalChunks:   s.TotalChunks,
		Section:       s.Section,
		Content:       s.Text,
		Score:         s.Score,
		SequenceIndex: s.SequenceIndex,
	}
}

// NewChunkID generates a unique chunk identifier
func NewChunkID() string {
	return fmt.Sprintf("chunk_%s", uuid.New().String())
}
