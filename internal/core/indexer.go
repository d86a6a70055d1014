// ABOUTME: Indexer embeds chunk drafts and replaces a document's chunk set atomically
// ABOUTME: Per-chunk embedding failures are reported while successful chunks are committed
package core

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DefaultEmbedConcurrency bounds parallel embedding calls per document
const DefaultEmbedConcurrency = 4

// ChunkFailure records a draft that could not be embedded
type ChunkFailure struct {
	Index   int    `json:"index"`
	Section string `json:"section"`
	Err     error  `json:"-"`
}

// IndexResult summarizes one indexing run
type IndexResult struct {
	ChunksCreated int
	Failures      []ChunkFailure
}

// Indexer writes embedded chunks into a ChunkRepository
type Indexer struct {
	embedder    Embedder
	chunks      ChunkRepository
	concurrency int
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewIndexer creates an Indexer; concurrency <= 0 uses DefaultEmbedConcurrency
func NewIndexer(embedder Embedder, chunks ChunkRepository, concurrency int, m *metrics.Metrics) *Indexer {
	if concurrency <= 0 {
		concurrency = DefaultEmbedConcurrency
	}
	return &Indexer{
		embedder:    embedder,
		chunks:      chunks,
		concurrency: concurrency,
		metrics:     m,
		logger:      log.New(log.Writer(), "[Indexer] ", log.LstdFlags),
	}
}

// EmbeddingText is the text embedded for a chunk
func EmbeddingText(section, content string) string {
	if section == "" {
		return content
	}
	return section + "\n\n" + content
}

// Index embeds drafts and replaces the document's chunks with the successful
// ones. SequenceIndex is contiguous over stored chunks and TotalChunks equals
// the stored count. When every draft fails an embedding error is returned
// alongside the result.
func (ix *Indexer) Index(ctx context.Context, doc *models.Document, drafts []models.ChunkDraft) (*IndexResult, error) {
	if doc == nil || doc.ID == "" {
		return nil, models.ValidationError("document is required")
	}

	vectors := make([][]float64, len(drafts))
	errs := make([]error, len(drafts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i, d := range drafts {
		g.Go(func() error {
			vec, err := ix.embedder.Embed(gctx, EmbeddingText(d.Section, d.Content))
			if err == nil && len(vec) == 0 {
				err = fmt.Errorf("empty embedding")
			}
			vectors[i], errs[i] = vec, err
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, models.EmbeddingError(err, "indexing cancelled")
	}

	result := &IndexResult{}
	stored := make([]models.Chunk, 0, len(drafts))
	for i, d := range drafts {
		if errs[i] != nil {
			ix.logger.Printf("chunk %d (%q) of %s failed to embed: %v", i, d.Section, doc.ID, errs[i])
			result.Failures = append(result.Failures, ChunkFailure{Index: i, Section: d.Section, Err: errs[i]})
			continue
		}
		stored = append(stored, models.Chunk{
			ID:            models.NewChunkID(),
			DocumentID:    doc.ID,
			ScopeID:       doc.ScopeID,
			SequenceIndex: len(stored),
			Section:       d.Section,
			Text:          d.Content,
			Vector:        vectors[i],
		})
	}
	for i := range stored {
		stored[i].TotalChunks = len(stored)
	}

	if err := ix.chunks.ReplaceDocumentChunks(ctx, doc.ID, stored); err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to store chunks")
	}
	result.ChunksCreated = len(stored)

	ix.metrics.ObserveIndexed(len(stored), len(result.Failures))
	ix.logger.Printf("indexed %s: %d stored, %d failed", doc.ID, len(stored), len(result.Failures))

	if len(drafts) > 0 && len(stored) == 0 {
		return result, models.EmbeddingError(result.Failures[0].Err,
			fmt.Sprintf("all %d chunks failed to embed", len(drafts)))
	}
	return result, nil
}
