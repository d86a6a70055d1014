// ABOUTME: AgentDefinition describes one phase-specific assistant
// ABOUTME: Loaded from YAML; instructions and preamble feed prompt assembly
package models

import (
	"errors"
	"strings"
)

// AgentDefinition is the static description of an assistant
type AgentDefinition struct {
	Key          string `json:"key" yaml:"key"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	Instructions string `json:"instructions" yaml:"instructions"`
	Preamble     string `json:"preamble" yaml:"preamble"`
	// LongRunning agents perform several sequential sub-operations per turn
	// and get the long task timeout.
	LongRunning bool `json:"longRunning" yaml:"long_running"`
}

// Validate checks required fields
func (d AgentDefinition) Validate() error {
	if strings.TrimSpace(d.Key) == "" {
		return errors.New("agent key is required")
	}
	if strings.TrimSpace(d.Instructions) == "" {
		return errors.New("agent instructions are required")
	}
	return nil
}
