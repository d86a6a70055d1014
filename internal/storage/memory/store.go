// ABOUTME: In-process storage backend for documents, chunks and threads
// ABOUTME: Mirrors the SQLite stores for tests and ephemeral single-process runs
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/util"
)

// Store keeps everything in maps guarded by one RWMutex
type Store struct {
	mu        sync.RWMutex
	documents map[string]models.Document
	chunks    map[string][]models.Chunk
	threads   map[models.ThreadKey]*models.Thread

	// FailScoring makes ScoreScope fail, for exercising degraded retrieval
	FailScoring bool
}

// New creates an empty Store
func New() *Store {
	return &Store{
		documents: make(map[string]models.Document),
		chunks:    make(map[string][]models.Chunk),
		threads:   make(map[models.ThreadKey]*models.Thread),
	}
}

// --- documents ---

// SaveDocument inserts a document record
func (s *Store) SaveDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument returns nil, nil when absent
func (s *Store) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// ListDocuments lists documents newest first; empty scopeID lists all
func (s *Store) ListDocuments(_ context.Context, scopeID string) ([]models.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DocumentSummary
	for _, doc := range s.documents {
		if scopeID != "" && doc.ScopeID != scopeID {
			continue
		}
		d := doc
		d.RawText = ""
		out = append(out, models.DocumentSummary{Document: d, ChunkCount: len(s.chunks[doc.ID])})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteDocument removes the chunks and then the document under one lock
func (s *Store) DeleteDocument(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, id)
	if _, ok := s.documents[id]; !ok {
		return false, nil
	}
	delete(s.documents, id)
	return true, nil
}

// --- chunks ---

// ReplaceDocumentChunks swaps a document's chunk set
func (s *Store) ReplaceDocumentChunks(_ context.Context, documentID string, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return fmt.Errorf("document %s does not exist", documentID)
	}
	for _, c := range chunks {
		if c.DocumentID != documentID {
			return fmt.Errorf("chunk %s belongs to %s, not %s", c.ID, c.DocumentID, documentID)
		}
	}

	copied := make([]models.Chunk, len(chunks))
	copy(copied, chunks)
	s.chunks[documentID] = copied
	return nil
}

// DeleteByDocument removes every chunk of a document
func (s *Store) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.chunks[documentID])
	delete(s.chunks, documentID)
	return int64(n), nil
}

// CountByDocument returns the number of stored chunks for a document
func (s *Store) CountByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[documentID]), nil
}

// GetByDocument returns a document's chunks in sequence order
func (s *Store) GetByDocument(_ context.Context, documentID string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chunk, len(s.chunks[documentID]))
	copy(out, s.chunks[documentID])
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out, nil
}

// ScoreScope scores every chunk in a scope against the query vector
func (s *Store) ScoreScope(_ context.Context, scopeID string, query []float64) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailScoring {
		return nil, fmt.Errorf("chunk store unavailable")
	}

	var results []models.ScoredChunk
	for docID, chunks := range s.chunks {
		doc := s.documents[docID]
		for _, c := range chunks {
			if c.ScopeID != scopeID {
				continue
			}
			results = append(results, models.ScoredChunk{
				Chunk:    c,
				FileName: doc.FileName,
				Score:    util.RelevanceScore(query, c.Vector),
			})
		}
	}
	return results, nil
}

// --- threads ---

// EnsureThread creates the thread if it does not exist
func (s *Store) EnsureThread(_ context.Context, key models.ThreadKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[key]; !ok {
		now := time.Now().UTC()
		s.threads[key] = &models.Thread{ThreadKey: key, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

// AppendMessage appends one message to an existing thread
func (s *Store) AppendMessage(_ context.Context, key models.ThreadKey, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[key]
	if !ok {
		return fmt.Errorf("thread %s does not exist", key)
	}
	thread.Messages = append(thread.Messages, msg)
	thread.UpdatedAt = msg.CreatedAt
	return nil
}

// RecentMessages returns at most limit of the newest messages, oldest first
func (s *Store) RecentMessages(_ context.Context, key models.ThreadKey, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[key]
	if !ok {
		return nil, nil
	}
	msgs := thread.Messages
	if limit >= 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// GetWorkingMemory returns the zero value for unknown threads
func (s *Store) GetWorkingMemory(_ context.Context, key models.ThreadKey) (models.WorkingMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if thread, ok := s.threads[key]; ok {
		return thread.WorkingMemory, nil
	}
	return models.WorkingMemory{}, nil
}

// SaveWorkingMemory replaces a thread's working memory
func (s *Store) SaveWorkingMemory(_ context.Context, key models.ThreadKey, wm models.WorkingMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[key]
	if !ok {
		return fmt.Errorf("thread %s does not exist", key)
	}
	thread.WorkingMemory = wm
	thread.UpdatedAt = time.Now().UTC()
	return nil
}

// GetThread returns a copy of the thread, or nil, nil when absent
func (s *Store) GetThread(_ context.Context, key models.ThreadKey) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[key]
	if !ok {
		return nil, nil
	}
	cp := *thread
	cp.Messages = append([]models.Message(nil), thread.Messages...)
	return &cp, nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }
