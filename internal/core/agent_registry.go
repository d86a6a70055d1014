// ABOUTME: AgentRegistry lazily builds one Agent per key and caches it process-wide
// ABOUTME: Concurrent first use is collapsed with singleflight; Reload evicts for rebuild
package core

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DefinitionSource supplies agent definitions by key
type DefinitionSource interface {
	Definition(key string) (models.AgentDefinition, bool)
	List() []models.AgentDefinition
}

// Agent is the constructed, shared instance for one agent key
type Agent struct {
	Definition models.AgentDefinition
	Memory     *ConversationMemory
	BuiltAt    time.Time
}

// Key returns the agent key
func (a *Agent) Key() string {
	return a.Definition.Key
}

// AgentRegistry caches Agents by key
type AgentRegistry struct {
	source  DefinitionSource
	memory  *ConversationMemory
	metrics *metrics.Metrics
	logger  *log.Logger

	mu          sync.RWMutex
	agents      map[string]*Agent
	generations map[string]uint64
	// epoch is bumped by ReloadAll and invalidates builds of every key
	epoch uint64
	group singleflight.Group
}

// NewAgentRegistry creates an empty registry
func NewAgentRegistry(source DefinitionSource, memory *ConversationMemory, m *metrics.Metrics) *AgentRegistry {
	return &AgentRegistry{
		source:      source,
		memory:      memory,
		metrics:     m,
		logger:      log.New(log.Writer(), "[Agents] ", log.LstdFlags),
		agents:      make(map[string]*Agent),
		generations: make(map[string]uint64),
	}
}

// Get returns the cached agent for key, building it on first use.
// Unknown keys are validation errors.
func (r *AgentRegistry) Get(ctx context.Context, key string) (*Agent, error) {
	r.mu.RLock()
	agent, ok := r.agents[key]
	r.mu.RUnlock()
	if ok {
		return agent, nil
	}

	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.build(key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Agent), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *AgentRegistry) build(key string) (*Agent, error) {
	r.mu.RLock()
	if agent, ok := r.agents[key]; ok {
		r.mu.RUnlock()
		return agent, nil
	}
	gen, epoch := r.generations[key], r.epoch
	r.mu.RUnlock()

	def, ok := r.source.Definition(key)
	if !ok {
		return nil, models.ValidationError("unknown agent %q", key)
	}
	agent := &Agent{Definition: def, Memory: r.memory, BuiltAt: time.Now()}

	r.mu.Lock()
	// a Reload during construction invalidates this build
	if r.generations[key] == gen && r.epoch == epoch {
		r.agents[key] = agent
	}
	r.mu.Unlock()

	r.metrics.ObserveAgentBuild(key)
	r.logger.Printf("built agent %s (%s)", key, def.Name)
	return agent, nil
}

// Reload evicts key so the next Get rebuilds it. Reports whether an instance was cached.
func (r *AgentRegistry) Reload(key string) bool {
	r.mu.Lock()
	_, cached := r.agents[key]
	delete(r.agents, key)
	r.generations[key]++
	r.mu.Unlock()
	r.group.Forget(key)

	if cached {
		r.logger.Printf("evicted agent %s", key)
	}
	return cached
}

// ReloadAll evicts every cached agent and invalidates builds still in flight,
// including those for keys that were never cached
func (r *AgentRegistry) ReloadAll() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	r.agents = make(map[string]*Agent)
	r.epoch++
	r.mu.Unlock()

	for _, def := range r.source.List() {
		r.group.Forget(def.Key)
	}
	if len(keys) > 0 {
		r.logger.Printf("evicted %d agents", len(keys))
	}
}

// Definitions lists every known agent definition
func (r *AgentRegistry) Definitions() []models.AgentDefinition {
	return r.source.List()
}

// Known reports whether key has a definition
func (r *AgentRegistry) Known(key string) bool {
	_, ok := r.source.Definition(key)
	return ok
}

// Cached returns the number of constructed agents
func (r *AgentRegistry) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
