// ABOUTME: PromptBuilder assembles agent prompts from ordered, named sections
// ABOUTME: Optional sections are omitted when blank; delimited sections get marker lines
package core

import (
	"strings"

	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Section names used in turn prompts
const (
	SectionUserMessage      = "USER MESSAGE"
	SectionAttachedDocument = "ATTACHED DOCUMENT"
	SectionRetrievedContext = "RETRIEVED CONTEXT"
	SectionPreamble         = "PHASE INSTRUCTIONS"
)

// PromptSection is one named block of a prompt
type PromptSection struct {
	Name string
	Body string
	// Delimited sections are wrapped in === NAME === / === END NAME === lines
	Delimited bool
}

// PromptBuilder collects sections in insertion order
type PromptBuilder struct {
	sections []PromptSection
}

// NewPromptBuilder creates an empty PromptBuilder
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Add appends a plain section; blank bodies are skipped
func (b *PromptBuilder) Add(name, body string) *PromptBuilder {
	return b.add(PromptSection{Name: name, Body: body})
}

// AddDelimited appends a section wrapped in marker lines; blank bodies are skipped
func (b *PromptBuilder) AddDelimited(name, body string) *PromptBuilder {
	return b.add(PromptSection{Name: name, Body: body, Delimited: true})
}

func (b *PromptBuilder) add(s PromptSection) *PromptBuilder {
	if strings.TrimSpace(s.Body) == "" {
		return b
	}
	b.sections = append(b.sections, s)
	return b
}

// Sections returns the sections that will be rendered, in order
func (b *PromptBuilder) Sections() []PromptSection {
	out := make([]PromptSection, len(b.sections))
	copy(out, b.sections)
	return out
}

// Names returns the rendered section names in order
func (b *PromptBuilder) Names() []string {
	names := make([]string, len(b.sections))
	for i, s := range b.sections {
		names[i] = s.Name
	}
	return names
}

// Render joins the sections with blank lines
func (b *PromptBuilder) Render() string {
	parts := make([]string, len(b.sections))
	for i, s := range b.sections {
		if s.Delimited {
			parts[i] = "=== " + s.Name + " ===\n" + s.Body + "\n=== END " + s.Name + " ==="
		} else {
			parts[i] = s.Body
		}
	}
	return strings.Join(parts, "\n\n")
}

// TurnPrompt holds the inputs of one chat turn's user prompt
type TurnPrompt struct {
	Message          string
	AttachedDocument string
	RetrievalContext string
	Preamble         string
	// MaxAttachedTokens caps the attached document (4 chars per token); 0 means no cap
	MaxAttachedTokens int
}

// Builder returns the turn's sections in fixed order: user message, attached
// document, retrieval context, phase preamble. RetrievalContext is expected to
// be FormatContext output and carries its own delimiters.
func (p TurnPrompt) Builder() *PromptBuilder {
	return NewPromptBuilder().
		Add(SectionUserMessage, p.Message).
		AddDelimited(SectionAttachedDocument, limitTokens(p.AttachedDocument, p.MaxAttachedTokens)).
		Add(SectionRetrievedContext, p.RetrievalContext).
		Add(SectionPreamble, p.Preamble)
}

// Render renders the turn prompt
func (p TurnPrompt) Render() string {
	return p.Builder().Render()
}

// limitTokens trims text to roughly maxTokens tokens (4 chars per token)
func limitTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... [truncated]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// SystemPrompt combines agent instructions, the working memory protocol and
// the current working memory snapshot
func SystemPrompt(instructions string, wm models.WorkingMemory) string {
	return NewPromptBuilder().
		Add("INSTRUCTIONS", strings.TrimSpace(instructions)).
		Add("WORKING MEMORY PROTOCOL", WorkingMemoryInstructions).
		Add("WORKING MEMORY", FormatWorkingMemory(wm)).
		Render()
}

// ChatMessages builds the model conversation: system prompt, recalled history, turn prompt
func ChatMessages(system string, history []models.Message, turn string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: turn})
}
