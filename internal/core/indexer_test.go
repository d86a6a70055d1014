// ABOUTME: Tests for the Indexer embedding and chunk replacement
// ABOUTME: Verifies contiguous indexing, idempotent re-ingestion and partial failures

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

func TestIndex_StoresContiguousChunks(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "discovery", "notes.md")
	ix := NewIndexer(newHashEmbedder(), store, 2, nil)

	res, err := ix.Index(context.Background(), doc, drafts("alpha", "beta", "gamma"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunksCreated)
	assert.Empty(t, res.Failures)

	chunks, err := store.GetByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, 3, c.TotalChunks)
		assert.Equal(t, "discovery", c.ScopeID)
		assert.NotEmpty(t, c.Vector)
	}
	assert.Equal(t, "Section A", chunks[0].Section)
	assert.Equal(t, "alpha", chunks[0].Text)
}

func TestIndex_ReingestionReplacesChunkSet(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "discovery", "notes.md")
	ix := NewIndexer(newHashEmbedder(), store, 0, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ix.Index(ctx, doc, drafts("one", "two", "three", "four", "five"))
		require.NoError(t, err)
	}
	_, err := ix.Index(ctx, doc, drafts("only", "two"))
	require.NoError(t, err)

	count, err := store.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndex_PartialFailuresCommitSuccessfulChunks(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "requirements", "spec.md")
	m := metrics.New()
	ix := NewIndexer(&stubEmbedder{failOn: []string{"poison"}}, store, 3, m)

	res, err := ix.Index(context.Background(), doc, drafts("ok one", "poison pill", "ok two", "more poison"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksCreated)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, 3, res.Failures[1].Index)

	chunks, _ := store.GetByDocument(context.Background(), doc.ID)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ok one", chunks[0].Text)
	assert.Equal(t, "ok two", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].SequenceIndex)
	assert.Equal(t, 2, chunks[1].TotalChunks)
}

func TestIndex_AllFailuresIsEmbeddingError(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "requirements", "spec.md")
	ix := NewIndexer(&stubEmbedder{err: errors.New("provider down")}, store, 0, nil)

	res, err := ix.Index(context.Background(), doc, drafts("a", "b"))
	assert.True(t, models.IsKind(err, models.KindEmbedding), "error = %v", err)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.ChunksCreated)
	assert.Len(t, res.Failures, 2)
}

func TestIndex_NoDraftsClearsChunks(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "discovery", "notes.md")
	ix := NewIndexer(newHashEmbedder(), store, 0, nil)
	ctx := context.Background()

	_, err := ix.Index(ctx, doc, drafts("a"))
	require.NoError(t, err)
	res, err := ix.Index(ctx, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)

	count, _ := store.CountByDocument(ctx, doc.ID)
	assert.Equal(t, 0, count)
}

func TestIndex_StoreFailureIsStorageError(t *testing.T) {
	store := memory.New()
	orphan := &models.Document{ID: "doc_missing", ScopeID: "discovery"}
	ix := NewIndexer(newHashEmbedder(), store, 0, nil)

	_, err := ix.Index(context.Background(), orphan, drafts("a"))
	assert.True(t, models.IsKind(err, models.KindStorage), "error = %v", err)
}

func TestIndex_CancelledContext(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "discovery", "notes.md")
	ix := NewIndexer(newHashEmbedder(), store, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Index(ctx, doc, drafts("a", "b"))
	assert.Error(t, err)

	count, _ := store.CountByDocument(context.Background(), doc.ID)
	assert.Equal(t, 0, count)
}

func TestIndex_ManyDraftsBoundedConcurrency(t *testing.T) {
	store := memory.New()
	doc := seedDocument(t, store, "discovery", "big.md")
	emb := &stubEmbedder{}
	ix := NewIndexer(emb, store, 3, nil)

	var ds []models.ChunkDraft
	for i := 0; i < 40; i++ {
		ds = append(ds, models.ChunkDraft{Section: fmt.Sprintf("S%d", i), Content: "body"})
	}
	res, err := ix.Index(context.Background(), doc, ds)
	require.NoError(t, err)
	assert.Equal(t, 40, res.ChunksCreated)
	assert.Equal(t, 40, emb.calls)
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "Goals\n\nShip", EmbeddingText("Goals", "Ship"))
	assert.Equal(t, "Ship", EmbeddingText("", "Ship"))
}
