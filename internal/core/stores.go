// ABOUTME: Storage and provider contracts consumed by the core pipeline
// ABOUTME: Implemented by the sqlite and in-memory stores and by the llm package
package core

import (
	"context"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	ModelName() string
}

// DocumentRepository persists uploaded documents
type DocumentRepository interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, scopeID string) ([]models.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

// ChunkRepository persists embedded chunks
type ChunkRepository interface {
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	ScoreScope(ctx context.Context, scopeID string, query []float64) ([]models.ScoredChunk, error)
}

// ThreadRepository persists conversation threads
type ThreadRepository interface {
	EnsureThread(ctx context.Context, key models.ThreadKey) error
	AppendMessage(ctx context.Context, key models.ThreadKey, msg models.Message) error
	RecentMessages(ctx context.Context, key models.ThreadKey, limit int) ([]models.Message, error)
	GetWorkingMemory(ctx context.Context, key models.ThreadKey) (models.WorkingMemory, error)
	SaveWorkingMemory(ctx context.Context, key models.ThreadKey, wm models.WorkingMemory) error
	GetThread(ctx context.Context, key models.ThreadKey) (*models.Thread, error)
}

// Store is everything the pipeline persists
type Store interface {
	DocumentRepository
	ChunkRepository
	ThreadRepository
}
