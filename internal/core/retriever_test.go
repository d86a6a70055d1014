// ABOUTME: Tests for ranked retrieval, degradation and context formatting
// ABOUTME: Uses the in-memory store with hash and stub embedders

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

func seedCorpus(t *testing.T, store *memory.Store, emb Embedder, scopeID string, n int) {
	t.Helper()
	doc := seedDocument(t, store, scopeID, scopeID+"-corpus.md")
	topics := []string{"login password authentication", "payment checkout gateway", "report export csv",
		"notification email alert", "search filter catalog"}
	var ds []models.ChunkDraft
	for i := 0; i < n; i++ {
		ds = append(ds, models.ChunkDraft{
			Section: fmt.Sprintf("Req %d", i),
			Content: fmt.Sprintf("Requirement %d covers %s", i, topics[i%len(topics)]),
		})
	}
	_, err := NewIndexer(emb, store, 0, nil).Index(context.Background(), doc, ds)
	require.NoError(t, err)
}

func TestRetrieve_LimitAndOrdering(t *testing.T) {
	store := memory.New()
	emb := newHashEmbedder()
	seedCorpus(t, store, emb, "discovery", 20)
	r := NewRetriever(emb, store, 0, 0, nil)

	results := r.Retrieve(context.Background(), "how does payment checkout work", "discovery", 5)
	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "results not sorted at %d", i)
	}
	assert.Contains(t, results[0].Content, "payment checkout gateway")
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
		assert.Equal(t, "discovery-corpus.md", res.FileName)
		assert.Equal(t, 20, res.TotalChunks)
	}
}

func TestRetrieve_NeverExceedsLimit(t *testing.T) {
	store := memory.New()
	emb := newHashEmbedder()
	seedCorpus(t, store, emb, "discovery", 12)
	r := NewRetriever(emb, store, 3, 8, nil)
	ctx := context.Background()

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 1, want: 1},
		{limit: 7, want: 7},
		{limit: 0, want: 3},
		{limit: -2, want: 3},
		{limit: 100, want: 8},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			assert.Len(t, r.Retrieve(ctx, "requirement", "discovery", tt.limit), tt.want)
		})
	}
}

func TestRetrieve_ScopeIsolation(t *testing.T) {
	store := memory.New()
	emb := newHashEmbedder()
	seedCorpus(t, store, emb, "discovery", 4)
	seedCorpus(t, store, emb, "validation", 4)
	r := NewRetriever(emb, store, 0, 0, nil)

	for _, res := range r.Retrieve(context.Background(), "requirement", "validation", 10) {
		assert.Equal(t, "validation-corpus.md", res.FileName)
	}
	assert.Empty(t, r.Retrieve(context.Background(), "requirement", "unknown-scope", 10))
}

func TestRetrieve_TiesBreakBySequenceIndex(t *testing.T) {
	store := memory.New()
	emb := &stubEmbedder{vector: []float64{0, 1, 0}}
	doc := seedDocument(t, store, "discovery", "same.md")
	_, err := NewIndexer(emb, store, 0, nil).Index(context.Background(), doc, drafts("a", "b", "c", "d"))
	require.NoError(t, err)

	results := NewRetriever(emb, store, 0, 0, nil).Retrieve(context.Background(), "q", "discovery", 10)
	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, i, res.ChunkIndex)
		assert.InDelta(t, 1.0, res.Score, 1e-9)
	}
}

func TestSortScored(t *testing.T) {
	scored := []models.ScoredChunk{
		{Chunk: models.Chunk{ID: "c", SequenceIndex: 2}, Score: 0.5},
		{Chunk: models.Chunk{ID: "b", SequenceIndex: 1}, Score: 0.5},
		{Chunk: models.Chunk{ID: "z", SequenceIndex: 0}, Score: 0.9},
		{Chunk: models.Chunk{ID: "a", SequenceIndex: 1}, Score: 0.5},
	}
	SortScored(scored)

	var ids []string
	for _, s := range scored {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
}

func TestRetrieve_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		emb   Embedder
		store func() *memory.Store
	}{
		{
			name:  "embedder down",
			emb:   &stubEmbedder{err: errors.New("connection refused")},
			store: memory.New,
		},
		{
			name: "store down",
			emb:  &stubEmbedder{},
			store: func() *memory.Store {
				s := memory.New()
				s.FailScoring = true
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			r := NewRetriever(tt.emb, tt.store(), 0, 0, m)

			results := r.Retrieve(context.Background(), "anything", "discovery", 5)
			assert.NotNil(t, results)
			assert.Empty(t, results)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalDegraded))

			_, err := r.RetrieveStrict(context.Background(), "anything", "discovery", 5)
			assert.True(t, models.IsKind(err, models.KindRetrievalDegraded), "error = %v", err)
		})
	}
}

func TestRetrieveStrict_Validation(t *testing.T) {
	r := NewRetriever(&stubEmbedder{}, memory.New(), 0, 0, nil)

	_, err := r.RetrieveStrict(context.Background(), "  ", "discovery", 5)
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = r.RetrieveStrict(context.Background(), "q", "", 5)
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestFormatContext(t *testing.T) {
	out := FormatContext([]models.RetrievalResult{
		{FileName: "brief.md", ChunkIndex: 0, TotalChunks: 3, Section: "Goals", Content: "Ship the MVP.", Score: 0.8734},
		{FileName: "notes.txt", ChunkIndex: 2, TotalChunks: 3, Content: "Budget is fixed.", Score: 0.5},
	})

	want := "=== RETRIEVED CONTEXT ===\n" +
		"[1] Source: brief.md (chunk 1/3)\nSection: Goals\nRelevance: 87.3%\nShip the MVP." +
		"\n---\n" +
		"[2] Source: notes.txt (chunk 3/3)\nRelevance: 50.0%\nBudget is fixed." +
		"\n=== END RETRIEVED CONTEXT ==="
	assert.Equal(t, want, out)
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "", FormatContext([]models.RetrievalResult{}))
}

func TestFormatContext_KeepsContentVerbatim(t *testing.T) {
	content := "line one\n\n  indented\n---\nnot a delimiter"
	out := FormatContext([]models.RetrievalResult{{FileName: "f", TotalChunks: 1, Content: content, Score: 1}})
	assert.True(t, strings.Contains(out, content))
}
