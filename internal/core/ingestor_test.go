// ABOUTME: Tests for the upload and delete pipeline
// ABOUTME: Runs against the in-memory store and the sqlite store
package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
	"github.com/websiTester/ba-agent-sub000/internal/storage/sqlite"
)

type ingestStore interface {
	DocumentRepository
	ChunkRepository
}

func newIngestor(store ingestStore, emb Embedder, splitter Splitter, cfg IngestorConfig) *Ingestor {
	return NewIngestor(store, NewExtractor(), NewChunkEngine(splitter), NewIndexer(emb, store, 0, nil), cfg, nil)
}

func sevenSectionDoc() string {
	var b strings.Builder
	b.WriteString("Project brief preamble.\n\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "# Part %d\nDetails for part %d.\n## Sub %d\nMore detail.\n\n", i, i, i)
	}
	return b.String()
}

func TestUpload_IndexesDocument(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "brief.md", Data: []byte(sevenSectionDoc())})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ChunksCreated)
	assert.True(t, res.RagProcessed)
	assert.Empty(t, res.Error)

	doc, err := store.GetDocument(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "text/markdown", doc.MimeType)
	assert.Equal(t, "discovery", doc.ScopeID)
}

func TestUpload_EmptyFile(t *testing.T) {
	store := memory.New()
	emb := &stubEmbedder{}
	in := newIngestor(store, emb, nil, IngestorConfig{})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "empty.txt", Data: []byte("  \n")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)
	assert.False(t, res.RagProcessed)
	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, 0, emb.calls)
}

func TestUpload_ExtractionErrorKeepsDocument(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "deck.pptx", Data: []byte("PK\x03\x04")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)
	assert.False(t, res.RagProcessed)
	assert.Contains(t, res.Error, "unsupported file type")

	doc, _ := store.GetDocument(context.Background(), res.DocumentID)
	assert.NotNil(t, doc)
}

func TestUpload_ChunkingErrorKeepsDocumentWithoutChunks(t *testing.T) {
	store := memory.New()
	splitter := NewModelSplitter(&fakeCompleter{reply: "sorry, I cannot split this"})
	in := newIngestor(store, newHashEmbedder(), splitter, IngestorConfig{})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "a.md", Data: []byte("# A\nbody")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)
	assert.NotEmpty(t, res.Error)

	count, _ := store.CountByDocument(context.Background(), res.DocumentID)
	assert.Equal(t, 0, count)
	doc, _ := store.GetDocument(context.Background(), res.DocumentID)
	assert.NotNil(t, doc)
}

func TestUpload_PartialEmbeddingFailure(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, &stubEmbedder{failOn: []string{"Part 3"}}, nil, IngestorConfig{})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "brief.md", Data: []byte(sevenSectionDoc())})
	require.NoError(t, err)
	assert.Equal(t, 6, res.ChunksCreated)
	assert.True(t, res.RagProcessed)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Error, "1 of 7 chunks")
}

func TestUpload_Validation(t *testing.T) {
	in := newIngestor(memory.New(), newHashEmbedder(), nil, IngestorConfig{MaxUploadBytes: 4})

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"missing scope", UploadRequest{FileName: "a.txt", Data: []byte("x")}},
		{"missing file", UploadRequest{ScopeID: "s", Data: []byte("x")}},
		{"too large", UploadRequest{ScopeID: "s", FileName: "a.txt", Data: []byte("12345")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Upload(context.Background(), tt.req)
			assert.True(t, models.IsKind(err, models.KindValidation), "error = %v", err)
		})
	}
}

func TestUpload_AsyncReportsPending(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{Async: true})

	res, err := in.Upload(context.Background(), UploadRequest{ScopeID: "discovery", FileName: "brief.md", Data: []byte(sevenSectionDoc())})
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Equal(t, 0, res.ChunksCreated)
	assert.False(t, res.RagProcessed)

	in.Wait()
	count, _ := store.CountByDocument(context.Background(), res.DocumentID)
	assert.Equal(t, 7, count)
}

func TestIngestText(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{Async: true})

	res, err := in.IngestText(context.Background(), "requirements", "Meeting notes", "# Decisions\nUse SSO")
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.Equal(t, 1, res.ChunksCreated)

	doc, _ := store.GetDocument(context.Background(), res.DocumentID)
	require.NotNil(t, doc)
	assert.Equal(t, "Meeting notes.md", doc.FileName)
}

func TestDelete_CascadesChunks(t *testing.T) {
	backends := map[string]func(t *testing.T) ingestStore{
		"memory": func(*testing.T) ingestStore { return memory.New() },
		"sqlite": func(t *testing.T) ingestStore {
			s, err := sqlite.NewStorageInMemory()
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{})
			ctx := context.Background()

			res, err := in.Upload(ctx, UploadRequest{ScopeID: "discovery", FileName: "brief.md", Data: []byte(sevenSectionDoc())})
			require.NoError(t, err)
			count, err := store.CountByDocument(ctx, res.DocumentID)
			require.NoError(t, err)
			require.Equal(t, 7, count)

			require.NoError(t, in.Delete(ctx, res.DocumentID))

			count, err = store.CountByDocument(ctx, res.DocumentID)
			require.NoError(t, err)
			assert.Equal(t, 0, count)
			doc, err := store.GetDocument(ctx, res.DocumentID)
			require.NoError(t, err)
			assert.Nil(t, doc)

			err = in.Delete(ctx, res.DocumentID)
			assert.True(t, models.IsKind(err, models.KindNotFound), "error = %v", err)
		})
	}
}

func TestUpload_ReuploadCreatesSeparateDocuments(t *testing.T) {
	store := memory.New()
	in := newIngestor(store, newHashEmbedder(), nil, IngestorConfig{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := in.Upload(ctx, UploadRequest{ScopeID: "discovery", FileName: "brief.md", Data: []byte("# A\nx")})
		require.NoError(t, err)
	}
	docs, err := in.List(ctx, "discovery")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, 1, d.ChunkCount)
	}

	empty, err := in.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
