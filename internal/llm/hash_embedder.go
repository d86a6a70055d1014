// ABOUTME: Local feature-hashing embedder that needs no network access
// ABOUTME: Used for offline runs, benchmarks and deterministic tests
package llm

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/websiTester/ba-agent-sub000/internal/util"
)

// DefaultHashDimension is the vector size of HashEmbedder when none is given
const DefaultHashDimension = 256

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

// HashEmbedder maps tokens into a fixed number of buckets and L2-normalizes the counts
type HashEmbedder struct {
	dimension int
	stopwords map[string]struct{}
}

// NewHashEmbedder creates a HashEmbedder; dimension <= 0 uses DefaultHashDimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension, stopwords: defaultStopwords()}
}

// ModelName identifies the embedding space
func (e *HashEmbedder) ModelName() string { return "hash" }

// Dimension returns the vector size
func (e *HashEmbedder) Dimension() int { return e.dimension }

// Embed returns the normalized hashed bag of words for text
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(err)
	}

	vec := make([]float64, e.dimension)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dimension))
		// the top bit picks a sign so collisions tend to cancel
		if sum&(1<<31) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	return util.Normalize(vec), nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has", "in", "is", "it",
		"its", "of", "on", "or", "that", "the", "this", "to", "was", "were", "will", "with",
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
