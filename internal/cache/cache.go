// ABOUTME: Embedding cache keyed by model name and text hash
// ABOUTME: Decorates any embedder so repeated queries and re-ingestions skip the provider
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"
)

// VectorCache stores embedding vectors by key
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vector []float64) error
}

// Embedder is the wrapped provider
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	ModelName() string
}

// CachedEmbedder serves vectors from a VectorCache and fills it on misses.
// Cache failures are logged and fall through to the provider.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	logger *log.Logger

	// OnLookup, when set, is called after every cache read
	OnLookup func(hit bool)
}

// NewCachedEmbedder wraps next with cache
func NewCachedEmbedder(next Embedder, cache VectorCache) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		logger: log.New(log.Writer(), "[Cache] ", log.LstdFlags),
	}
}

// ModelName passes through the wrapped model name
func (c *CachedEmbedder) ModelName() string {
	return c.next.ModelName()
}

// Embed returns the cached vector for text or computes and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := Key(c.next.ModelName(), text)

	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Printf("get %s failed: %v", key, err)
	}
	if c.OnLookup != nil {
		c.OnLookup(ok)
	}
	if ok {
		return vec, nil
	}

	vec, err = c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Printf("set %s failed: %v", key, err)
	}
	return vec, nil
}

// Key derives the cache key for a model and text
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// Memory is a bounded in-process VectorCache with per-entry TTL
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	vector  []float64
	expires time.Time
}

// NewMemory creates a Memory cache; maxEntries <= 0 means 10000, ttl <= 0 means no expiry
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns a copy of the cached vector
func (m *Memory) Get(_ context.Context, key string) ([]float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]float64(nil), e.vector...), true, nil
}

// Set stores a copy of vector, evicting an arbitrary entry when full
func (m *Memory) Set(_ context.Context, key string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		for k := range m.entries {
			delete(m.entries, k)
			break
		}
	}

	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	m.entries[key] = memoryEntry{vector: append([]float64(nil), vector...), expires: expires}
	return nil
}

// Len returns the number of cached entries
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
