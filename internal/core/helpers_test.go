// ABOUTME: Shared fakes for core tests: controllable embedders and seeded stores
// ABOUTME: Built on the in-memory store so tests run without sqlite or network

package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

// stubEmbedder returns a fixed vector for every text, failing any text that
// contains one of failOn
type stubEmbedder struct {
	mu     sync.Mutex
	vector []float64
	failOn []string
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, f := range s.failOn {
		if strings.Contains(text, f) {
			return nil, errors.New("embedding provider rejected input")
		}
	}
	if s.vector != nil {
		return append([]float64(nil), s.vector...), nil
	}
	return []float64{1, 0, 0}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func newHashEmbedder() *llm.HashEmbedder {
	return llm.NewHashEmbedder(256)
}

func seedDocument(t *testing.T, store *memory.Store, scopeID, fileName string) *models.Document {
	t.Helper()
	doc, err := models.NewDocument(scopeID, fileName, "text/markdown", 0, "")
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	if err := store.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	return doc
}

func drafts(contents ...string) []models.ChunkDraft {
	out := make([]models.ChunkDraft, len(contents))
	for i, c := range contents {
		out[i] = models.ChunkDraft{Section: "Section " + string(rune('A'+i)), Content: c}
	}
	return out
}
