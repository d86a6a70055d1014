// ABOUTME: Conversation thread types: messages, working memory and thread keys
// ABOUTME: A thread is isolated per agent, thread ID and resource ID
package models

import (
	"errors"
	"strings"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is one of the known values
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry in a thread's history
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// WorkingMemory is the structured summary an agent maintains across turns.
// The slot names are fixed; contents are free text.
type WorkingMemory struct {
	CurrentDocument string `json:"currentDocument,omitempty" yaml:"current_document,omitempty"`
	KeyRequirements string `json:"keyRequirements,omitempty" yaml:"key_requirements,omitempty"`
	UserPreferences string `json:"userPreferences,omitempty" yaml:"user_preferences,omitempty"`
	PreviousTopics  string `json:"previousTopics,omitempty" yaml:"previous_topics,omitempty"`
}

// WorkingMemorySlots lists the slot names in display order
var WorkingMemorySlots = []string{"currentDocument", "keyRequirements", "userPreferences", "previousTopics"}

// IsEmpty reports whether no slot has content
func (w WorkingMemory) IsEmpty() bool {
	return w == WorkingMemory{}
}

// Merge returns w with every non-empty slot of update applied
func (w WorkingMemory) Merge(update WorkingMemory) WorkingMemory {
	if s := strings.TrimSpace(update.CurrentDocument); s != "" {
		w.CurrentDocument = s
	}
	if s := strings.TrimSpace(update.KeyRequirements); s != "" {
		w.KeyRequirements = s
	}
	if s := strings.TrimSpace(update.UserPreferences); s != "" {
		w.UserPreferences = s
	}
	if s := strings.TrimSpace(update.PreviousTopics); s != "" {
		w.PreviousTopics = s
	}
	return w
}

// Slots returns the slot values keyed by slot name
func (w WorkingMemory) Slots() map[string]string {
	return map[string]string{
		"currentDocument": w.CurrentDocument,
		"keyRequirements": w.KeyRequirements,
		"userPreferences": w.UserPreferences,
		"previousTopics":  w.PreviousTopics,
	}
}

// ThreadKey addresses one conversation. AgentKey namespaces the thread so
// two agents never share history even when the caller reuses a thread ID.
type ThreadKey struct {
	AgentKey   string `json:"agentKey"`
	ThreadID   string `json:"threadId"`
	ResourceID string `json:"resourceId"`
}

// Validate checks that every part of the key is present
func (k ThreadKey) Validate() error {
	if strings.TrimSpace(k.AgentKey) == "" {
		return errors.New("agent key is required")
	}
	if strings.TrimSpace(k.ThreadID) == "" {
		return errors.New("thread id is required")
	}
	if strings.TrimSpace(k.ResourceID) == "" {
		return errors.New("resource id is required")
	}
	return nil
}

// String renders the key for logs and lock names
func (k ThreadKey) String() string {
	return k.AgentKey + "/" + k.ThreadID + "/" + k.ResourceID
}

// Thread is a conversation with its full history and working memory
type Thread struct {
	ThreadKey     `yaml:",inline"`
	Messages      []Message     `json:"messages" yaml:"messages"`
	WorkingMemory WorkingMemory `json:"workingMemory" yaml:"working_memory"`
	CreatedAt     time.Time     `json:"createdAt" yaml:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" yaml:"updated_at"`
}

// Recall is what the memory subsystem replays into a turn
type Recall struct {
	Messages      []Message     `json:"messages"`
	WorkingMemory WorkingMemory `json:"workingMemory"`
}
