// ABOUTME: AgentCatalog holds agent definitions from embedded YAML and an optional directory
// ABOUTME: Directory files override built-in definitions by key and can be hot reloaded
package core

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

//go:embed agents.yaml
var builtinAgents []byte

// AgentCatalog is the definition source for the agent registry
type AgentCatalog struct {
	mu   sync.RWMutex
	dir  string
	defs map[string]models.AgentDefinition
}

// NewAgentCatalog loads the built-in definitions and then every *.yaml or
// *.yml file in dir, if dir is set
func NewAgentCatalog(dir string) (*AgentCatalog, error) {
	c := &AgentCatalog{dir: dir}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the override directory
func (c *AgentCatalog) Dir() string {
	return c.dir
}

// Refresh reloads every definition. On error the previous set is kept.
func (c *AgentCatalog) Refresh() error {
	defs, err := parseDefinitions(builtinAgents, "built-in agents")
	if err != nil {
		return err
	}

	if c.dir != "" {
		files, err := definitionFiles(c.dir)
		if err != nil {
			return err
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read agent file %s: %w", path, err)
			}
			overrides, err := parseDefinitions(data, path)
			if err != nil {
				return err
			}
			for k, d := range overrides {
				defs[k] = d
			}
		}
	}

	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()
	return nil
}

// Definition returns the definition for key
func (c *AgentCatalog) Definition(key string) (models.AgentDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[key]
	return d, ok
}

// List returns all definitions sorted by key
func (c *AgentCatalog) List() []models.AgentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.AgentDefinition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Printf("Warning: agents directory %s does not exist, using built-in agents", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list agents directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isDefinitionFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(filepath.Base(name), ".")
}

// parseDefinitions accepts either a list of definitions or a single definition
func parseDefinitions(data []byte, source string) (map[string]models.AgentDefinition, error) {
	var list []models.AgentDefinition
	if err := yaml.Unmarshal(data, &list); err != nil {
		var single models.AgentDefinition
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", source, err)
		}
		list = []models.AgentDefinition{single}
	}

	defs := make(map[string]models.AgentDefinition, len(list))
	for i, d := range list {
		d.Key = strings.TrimSpace(d.Key)
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid agent #%d in %s: %w", i+1, source, err)
		}
		if d.Name == "" {
			d.Name = d.Key
		}
		defs[d.Key] = d
	}
	return defs, nil
}
