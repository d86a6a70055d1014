// ABOUTME: Watches the agent definitions directory and hot reloads changed agents
// ABOUTME: Refreshes the catalog and evicts cached agents on any YAML change
package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// AgentWatcher reloads agents when files in the catalog directory change
type AgentWatcher struct {
	catalog  *AgentCatalog
	registry *AgentRegistry
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *log.Logger
}

// NewAgentWatcher starts watching catalog.Dir()
func NewAgentWatcher(catalog *AgentCatalog, registry *AgentRegistry) (*AgentWatcher, error) {
	if catalog.Dir() == "" {
		return nil, fmt.Errorf("agent catalog has no directory to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(catalog.Dir()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", catalog.Dir(), err)
	}
	return &AgentWatcher{
		catalog:  catalog,
		registry: registry,
		watcher:  w,
		debounce: 200 * time.Millisecond,
		logger:   log.New(log.Writer(), "[Agents] ", log.LstdFlags),
	}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
// Bursts of events within the debounce window trigger one reload.
func (aw *AgentWatcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(aw.debounce)
			} else {
				timer.Reset(aw.debounce)
			}
			trigger = timer.C
		case <-trigger:
			trigger = nil
			aw.reload()
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Printf("watch error: %v", err)
		}
	}
}

func (aw *AgentWatcher) reload() {
	if err := aw.catalog.Refresh(); err != nil {
		aw.logger.Printf("keeping previous agent definitions: %v", err)
		return
	}
	aw.registry.ReloadAll()
	aw.logger.Printf("reloaded agent definitions from %s", aw.catalog.Dir())
}

// Close stops the watcher
func (aw *AgentWatcher) Close() error {
	return aw.watcher.Close()
}
