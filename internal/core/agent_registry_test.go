// ABOUTME: Tests for AgentCatalog loading and AgentRegistry caching
// ABOUTME: Covers singleflight construction, reload and directory overrides
package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

// countingSource wraps a catalog and counts definition lookups
type countingSource struct {
	*AgentCatalog
	mu      sync.Mutex
	lookups int
	delay   time.Duration
}

func (c *countingSource) Definition(key string) (models.AgentDefinition, bool) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	time.Sleep(c.delay)
	return c.AgentCatalog.Definition(key)
}

func newCatalog(t *testing.T, dir string) *AgentCatalog {
	t.Helper()
	c, err := NewAgentCatalog(dir)
	require.NoError(t, err)
	return c
}

func TestAgentCatalog_BuiltinAgents(t *testing.T) {
	c := newCatalog(t, "")

	var keys []string
	for _, d := range c.List() {
		keys = append(keys, d.Key)
		assert.NotEmpty(t, d.Instructions, d.Key)
		assert.NotEmpty(t, d.Preamble, d.Key)
	}
	assert.Equal(t, []string{"discovery", "export_backlog", "requirements", "user_stories", "validation"}, keys)

	exp, ok := c.Definition("export_backlog")
	require.True(t, ok)
	assert.True(t, exp.LongRunning)
	disc, _ := c.Definition("discovery")
	assert.False(t, disc.LongRunning)
}

func TestAgentCatalog_DirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "discovery.yaml"), []byte(`
key: discovery
name: Custom Discovery
instructions: Be brief.
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yml"), []byte(`
- key: glossary
  instructions: Maintain the project glossary.
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c := newCatalog(t, dir)
	d, ok := c.Definition("discovery")
	require.True(t, ok)
	assert.Equal(t, "Custom Discovery", d.Name)
	assert.Equal(t, "Be brief.", d.Instructions)

	g, ok := c.Definition("glossary")
	require.True(t, ok)
	assert.Equal(t, "glossary", g.Name)
}

func TestAgentCatalog_InvalidFileKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	c := newCatalog(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("key: nope\n"), 0o644))
	assert.Error(t, c.Refresh())

	_, ok := c.Definition("discovery")
	assert.True(t, ok)
}

func TestAgentCatalog_MissingDirUsesBuiltins(t *testing.T) {
	c := newCatalog(t, filepath.Join(t.TempDir(), "absent"))
	assert.Len(t, c.List(), 5)
}

func TestAgentRegistry_SingleConstructionUnderConcurrency(t *testing.T) {
	src := &countingSource{AgentCatalog: newCatalog(t, ""), delay: 20 * time.Millisecond}
	reg := NewAgentRegistry(src, NewConversationMemory(memory.New(), 0), nil)

	var wg sync.WaitGroup
	agents := make([]*Agent, 16)
	for i := range agents {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := reg.Get(context.Background(), "discovery")
			assert.NoError(t, err)
			agents[i] = a
		}(i)
	}
	wg.Wait()

	for _, a := range agents {
		assert.Same(t, agents[0], a)
	}
	assert.Equal(t, 1, src.lookups)
	assert.Equal(t, 1, reg.Cached())
}

func TestAgentRegistry_ReloadRebuilds(t *testing.T) {
	reg := NewAgentRegistry(newCatalog(t, ""), NewConversationMemory(memory.New(), 0), nil)
	ctx := context.Background()

	first, err := reg.Get(ctx, "requirements")
	require.NoError(t, err)
	again, _ := reg.Get(ctx, "requirements")
	assert.Same(t, first, again)

	assert.True(t, reg.Reload("requirements"))
	assert.False(t, reg.Reload("requirements"))

	rebuilt, err := reg.Get(ctx, "requirements")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, "requirements", rebuilt.Key())
}

func TestAgentRegistry_ReloadPicksUpNewDefinition(t *testing.T) {
	dir := t.TempDir()
	catalog := newCatalog(t, dir)
	reg := NewAgentRegistry(catalog, NewConversationMemory(memory.New(), 0), nil)
	ctx := context.Background()

	before, _ := reg.Get(ctx, "validation")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "validation.yaml"),
		[]byte("key: validation\ninstructions: Updated review rules.\n"), 0o644))
	require.NoError(t, catalog.Refresh())
	reg.ReloadAll()

	after, err := reg.Get(ctx, "validation")
	require.NoError(t, err)
	assert.NotEqual(t, before.Definition.Instructions, after.Definition.Instructions)
	assert.Equal(t, "Updated review rules.", after.Definition.Instructions)
}

// gatedSource blocks Definition until release is closed
type gatedSource struct {
	*AgentCatalog
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) Definition(key string) (models.AgentDefinition, bool) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.AgentCatalog.Definition(key)
}

func TestAgentRegistry_ReloadAllDiscardsInFlightBuild(t *testing.T) {
	src := &gatedSource{AgentCatalog: newCatalog(t, ""), started: make(chan struct{}), release: make(chan struct{})}
	reg := NewAgentRegistry(src, NewConversationMemory(memory.New(), 0), nil)

	done := make(chan *Agent, 1)
	go func() {
		a, err := reg.Get(context.Background(), "discovery")
		assert.NoError(t, err)
		done <- a
	}()

	<-src.started
	reg.ReloadAll()
	close(src.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, 0, reg.Cached(), "build started before ReloadAll must not be cached")

	fresh, err := reg.Get(context.Background(), "discovery")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, 1, reg.Cached())
}

func TestAgentRegistry_UnknownAgent(t *testing.T) {
	reg := NewAgentRegistry(newCatalog(t, ""), NewConversationMemory(memory.New(), 0), nil)

	_, err := reg.Get(context.Background(), "nope")
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.False(t, reg.Known("nope"))
	assert.True(t, reg.Known("discovery"))
	assert.Equal(t, 0, reg.Cached())
}

func TestAgentWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	catalog := newCatalog(t, dir)
	reg := NewAgentRegistry(catalog, NewConversationMemory(memory.New(), 0), nil)

	w, err := NewAgentWatcher(catalog, reg)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	defer func() { _ = w.Close() }()

	_, err = reg.Get(ctx, "discovery")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "discovery.yaml"),
		[]byte("key: discovery\ninstructions: Hot reloaded.\n"), 0o644))

	assert.Eventually(t, func() bool {
		a, err := reg.Get(ctx, "discovery")
		return err == nil && a.Definition.Instructions == "Hot reloaded."
	}, 3*time.Second, 20*time.Millisecond)
}

func TestNewAgentWatcher_RequiresDir(t *testing.T) {
	_, err := NewAgentWatcher(newCatalog(t, ""), nil)
	assert.Error(t, err)
}
