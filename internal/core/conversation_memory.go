// ABOUTME: ConversationMemory gives each agent thread bounded history and working memory
// ABOUTME: Parses working memory updates proposed by the agent inside its response
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DefaultHistoryLimit is the number of prior messages replayed per turn
const DefaultHistoryLimit = 30

// ConversationMemory reads and writes thread history through a ThreadRepository.
// Callers serialize turns of one thread; the Router holds a per-thread lock.
type ConversationMemory struct {
	threads      ThreadRepository
	historyLimit int
	now          func() time.Time
	logger       *log.Logger
}

// NewConversationMemory creates a ConversationMemory; historyLimit <= 0 uses DefaultHistoryLimit
func NewConversationMemory(threads ThreadRepository, historyLimit int) *ConversationMemory {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ConversationMemory{
		threads:      threads,
		historyLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       log.New(log.Writer(), "[Memory] ", log.LstdFlags),
	}
}

// AppendAndRecall creates the thread if needed, returns the last prior
// messages with the working memory snapshot, then appends the user message
func (cm *ConversationMemory) AppendAndRecall(ctx context.Context, key models.ThreadKey, userMessage string) (*models.Recall, error) {
	if err := key.Validate(); err != nil {
		return nil, models.ValidationError("%s", err.Error())
	}
	if strings.TrimSpace(userMessage) == "" {
		return nil, models.ValidationError("message is required")
	}

	if err := cm.threads.EnsureThread(ctx, key); err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to create thread")
	}

	history, err := cm.threads.RecentMessages(ctx, key, cm.historyLimit)
	if err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to load history")
	}
	wm, err := cm.threads.GetWorkingMemory(ctx, key)
	if err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to load working memory")
	}

	msg := models.Message{Role: models.RoleUser, Content: userMessage, CreatedAt: cm.now()}
	if err := cm.threads.AppendMessage(ctx, key, msg); err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to append user message")
	}

	if history == nil {
		history = []models.Message{}
	}
	return &models.Recall{Messages: history, WorkingMemory: wm}, nil
}

// Commit appends the assistant message and merges non-empty working memory updates
func (cm *ConversationMemory) Commit(ctx context.Context, key models.ThreadKey, assistantMessage string, updates models.WorkingMemory) error {
	msg := models.Message{Role: models.RoleAssistant, Content: assistantMessage, CreatedAt: cm.now()}
	if err := cm.threads.AppendMessage(ctx, key, msg); err != nil {
		return models.Wrap(models.KindStorage, err, "failed to append assistant message")
	}

	if updates.IsEmpty() {
		return nil
	}
	current, err := cm.threads.GetWorkingMemory(ctx, key)
	if err != nil {
		return models.Wrap(models.KindStorage, err, "failed to load working memory")
	}
	merged := current.Merge(updates)
	if merged == current {
		return nil
	}
	if err := cm.threads.SaveWorkingMemory(ctx, key, merged); err != nil {
		return models.Wrap(models.KindStorage, err, "failed to save working memory")
	}
	cm.logger.Printf("updated working memory for %s", key)
	return nil
}

// Thread returns the full thread, or a not_found error
func (cm *ConversationMemory) Thread(ctx context.Context, key models.ThreadKey) (*models.Thread, error) {
	if err := key.Validate(); err != nil {
		return nil, models.ValidationError("%s", err.Error())
	}
	thread, err := cm.threads.GetThread(ctx, key)
	if err != nil {
		return nil, models.Wrap(models.KindStorage, err, "failed to load thread")
	}
	if thread == nil {
		return nil, models.NewError(models.KindNotFound, "thread %s not found", key.ThreadID)
	}
	return thread, nil
}

var workingMemoryBlock = regexp.MustCompile(`(?s)<working_memory>(.*?)</working_memory>`)

// ParseWorkingMemory strips every <working_memory> block from response and
// merges the slot updates they carry. Unknown keys and malformed blocks are ignored.
func ParseWorkingMemory(response string) (string, models.WorkingMemory) {
	var updates models.WorkingMemory
	for _, m := range workingMemoryBlock.FindAllStringSubmatch(response, -1) {
		updates = updates.Merge(decodeWorkingMemory(m[1]))
	}
	visible := workingMemoryBlock.ReplaceAllString(response, "")
	return strings.TrimSpace(visible), updates
}

func decodeWorkingMemory(body string) models.WorkingMemory {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return models.WorkingMemory{}
	}
	return models.WorkingMemory{
		CurrentDocument: slotText(raw["currentDocument"]),
		KeyRequirements: slotText(raw["keyRequirements"]),
		UserPreferences: slotText(raw["userPreferences"]),
		PreviousTopics:  slotText(raw["previousTopics"]),
	}
}

// slotText flattens a slot value; lists are joined with "; "
func slotText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := slotText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// FormatWorkingMemory renders the non-empty slots for the system prompt
func FormatWorkingMemory(wm models.WorkingMemory) string {
	if wm.IsEmpty() {
		return ""
	}
	slots := wm.Slots()
	var sb strings.Builder
	sb.WriteString("WORKING MEMORY:\n")
	for _, name := range models.WorkingMemorySlots {
		if v := slots[name]; v != "" {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", name, v))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// WorkingMemoryInstructions tells the agent how to propose slot updates
const WorkingMemoryInstructions = `You keep a small working memory about this conversation with the slots currentDocument, keyRequirements, userPreferences and previousTopics.
When any slot should change, append one block at the very end of your reply:
<working_memory>{"keyRequirements": "..."}</working_memory>
Include only the slots that changed. The block is removed before the user sees your reply.`
