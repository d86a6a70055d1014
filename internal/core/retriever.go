// ABOUTME: Retriever ranks stored chunks against a query within one scope
// ABOUTME: Failures degrade to an empty result set; FormatContext renders hits for prompts
package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

const (
	DefaultRetrievalLimit = 5
	MaxRetrievalLimit     = 50
)

// ChunkScorer scores the chunks of a scope against a query vector
type ChunkScorer interface {
	ScoreScope(ctx context.Context, scopeID string, query []float64) ([]models.ScoredChunk, error)
}

// Retriever turns a query into ranked, source-attributed chunks
type Retriever struct {
	embedder     Embedder
	chunks       ChunkScorer
	defaultLimit int
	maxLimit     int
	metrics      *metrics.Metrics
	logger       *log.Logger
}

// NewRetriever creates a Retriever. Non-positive limits use the package defaults.
func NewRetriever(embedder Embedder, chunks ChunkScorer, defaultLimit, maxLimit int, m *metrics.Metrics) *Retriever {
	if defaultLimit <= 0 {
		defaultLimit = DefaultRetrievalLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxRetrievalLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Retriever{
		embedder:     embedder,
		chunks:       chunks,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		metrics:      m,
		logger:       log.New(log.Writer(), "[Retriever] ", log.LstdFlags),
	}
}

// Retrieve returns at most limit results and never fails; an unavailable
// embedder or store yields an empty slice
func (r *Retriever) Retrieve(ctx context.Context, query, scopeID string, limit int) []models.RetrievalResult {
	results, err := r.RetrieveStrict(ctx, query, scopeID, limit)
	if err != nil {
		r.logger.Printf("retrieval degraded for scope %q: %v", scopeID, err)
		return []models.RetrievalResult{}
	}
	return results
}

// RetrieveStrict is Retrieve with the failure reported as a retrieval_degraded
// error (or a validation error for a blank query or scope)
func (r *Retriever) RetrieveStrict(ctx context.Context, query, scopeID string, limit int) ([]models.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ValidationError("query is required")
	}
	if strings.TrimSpace(scopeID) == "" {
		return nil, models.ValidationError("scopeId is required")
	}

	start := time.Now()
	results, err := r.rank(ctx, query, scopeID, r.effectiveLimit(limit))
	r.metrics.ObserveRetrieval(time.Since(start), err != nil)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Retriever) effectiveLimit(limit int) int {
	if limit <= 0 {
		return r.defaultLimit
	}
	if limit > r.maxLimit {
		return r.maxLimit
	}
	return limit
}

func (r *Retriever) rank(ctx context.Context, query, scopeID string, limit int) ([]models.RetrievalResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, models.Wrap(models.KindRetrievalDegraded, err, "failed to embed query")
	}

	scored, err := r.chunks.ScoreScope(ctx, scopeID, vec)
	if err != nil {
		return nil, models.Wrap(models.KindRetrievalDegraded, err, "failed to score chunks")
	}

	SortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]models.RetrievalResult, len(scored))
	for i, sc := range scored {
		results[i] = sc.ToResult()
	}
	return results, nil
}

// SortScored orders by score descending, then sequence index ascending, then chunk ID
func SortScored(scored []models.ScoredChunk) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SequenceIndex != b.SequenceIndex {
			return a.SequenceIndex < b.SequenceIndex
		}
		return a.ID < b.ID
	})
}

const (
	contextOpen      = "=== RETRIEVED CONTEXT ==="
	contextClose     = "=== END RETRIEVED CONTEXT ==="
	contextDelimiter = "\n---\n"
)

// FormatContext renders results as labeled blocks inside one outer delimiter
// pair. An empty result set renders as "".
func FormatContext(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, len(results))
	for i, res := range results {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[%d] Source: %s (chunk %d/%d)\n", i+1, res.FileName, res.ChunkIndex+1, res.TotalChunks))
		if res.Section != "" {
			sb.WriteString(fmt.Sprintf("Section: %s\n", res.Section))
		}
		sb.WriteString(fmt.Sprintf("Relevance: %.1f%%\n", res.Score*100))
		sb.WriteString(res.Content)
		blocks[i] = sb.String()
	}

	return contextOpen + "\n" + strings.Join(blocks, contextDelimiter) + "\n" + contextClose
}
