// ABOUTME: Tests for the chat Router pipeline
// ABOUTME: Covers memory continuity, agent isolation, degradation, ordering and failure classes
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
)

// scriptedModel answers with reply (or reply(messages)) and records every call
type scriptedModel struct {
	mu    sync.Mutex
	calls [][]llm.Message
	reply func(messages []llm.Message) (string, error)
	delay time.Duration
}

func (m *scriptedModel) Complete(ctx context.Context, messages []llm.Message, _ llm.CompletionOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.reply == nil {
		return "ok", nil
	}
	return m.reply(messages)
}

func (m *scriptedModel) lastCall() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type routerFixture struct {
	store     *memory.Store
	model     *scriptedModel
	router    *Router
	memory    *ConversationMemory
	retriever *Retriever
}

func newRouterFixture(t *testing.T, model *scriptedModel, cfg RouterConfig) *routerFixture {
	t.Helper()
	store := memory.New()
	catalog, err := NewAgentCatalog("")
	require.NoError(t, err)
	cm := NewConversationMemory(store, 0)
	emb := newHashEmbedder()
	retriever := NewRetriever(emb, store, 0, 0, nil)
	registry := NewAgentRegistry(catalog, cm, nil)

	var completer Completer
	if model != nil {
		completer = model
	}
	return &routerFixture{
		store:     store,
		model:     model,
		router:    NewRouter(registry, cm, retriever, completer, cfg, nil),
		memory:    cm,
		retriever: retriever,
	}
}

func echoModel() *scriptedModel {
	return &scriptedModel{reply: func(msgs []llm.Message) (string, error) {
		return "echo: " + firstLine(msgs[len(msgs)-1].Content), nil
	}}
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func TestRoute_SecondTurnRecallsFirst(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	ctx := context.Background()

	first, err := f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: "Who are the stakeholders?", ThreadID: "t-1", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", first.ThreadID)

	_, err = f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: "And the goals?", ThreadID: "t-1", ResourceID: "u-1"})
	require.NoError(t, err)

	msgs := f.model.lastCall()
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Who are the stakeholders?"}, msgs[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: first.Response}, msgs[2])
	assert.True(t, strings.HasPrefix(msgs[3].Content, "And the goals?"))
}

func TestRoute_MintsThreadID(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	f.router.now = func() time.Time { return time.UnixMilli(1700000000123) }

	resp, err := f.router.Route(context.Background(), RouteRequest{AgentKey: "requirements", Message: "hi", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "requirements-1700000000123", resp.ThreadID)
	assert.Equal(t, StateDone, resp.State)
}

func TestRoute_AgentsDoNotShareMemory(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	ctx := context.Background()

	_, err := f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: "secret discovery note", ThreadID: "same", ResourceID: "u-1"})
	require.NoError(t, err)
	_, err = f.router.Route(ctx, RouteRequest{AgentKey: "validation", Message: "review please", ThreadID: "same", ResourceID: "u-1"})
	require.NoError(t, err)

	for _, m := range f.model.lastCall() {
		assert.NotContains(t, m.Content, "secret discovery note")
	}
}

func TestRoute_PromptIncludesContextAndAttachment(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	ctx := context.Background()

	doc := seedDocument(t, f.store, "discovery", "brief.md")
	_, err := NewIndexer(newHashEmbedder(), f.store, 0, nil).Index(ctx, doc,
		[]models.ChunkDraft{{Section: "Payments", Content: "Payments are captured by the checkout gateway."}})
	require.NoError(t, err)

	resp, err := f.router.Route(ctx, RouteRequest{
		AgentKey:         "discovery",
		Message:          "How are payments captured at checkout?",
		AttachedDocument: "Attached vision statement",
		ScopeID:          "discovery",
		ResourceID:       "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ContextUsed)
	assert.False(t, resp.Degraded)

	prompt := f.model.lastCall()[1].Content
	iMsg := strings.Index(prompt, "How are payments captured")
	iDoc := strings.Index(prompt, "=== ATTACHED DOCUMENT ===")
	iCtx := strings.Index(prompt, "=== RETRIEVED CONTEXT ===")
	iPre := strings.Index(prompt, "Open questions")
	assert.True(t, iMsg == 0 && iMsg < iDoc && iDoc < iCtx && iCtx < iPre, "unexpected prompt layout: %q", prompt)
	assert.Contains(t, prompt, "Source: brief.md (chunk 1/1)")
}

func TestRoute_ScopeDefaultsToAgentKey(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	ctx := context.Background()

	doc := seedDocument(t, f.store, "requirements", "reqs.md")
	_, err := NewIndexer(newHashEmbedder(), f.store, 0, nil).Index(ctx, doc, drafts("login with password"))
	require.NoError(t, err)

	resp, err := f.router.Route(ctx, RouteRequest{AgentKey: "requirements", Message: "login password", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ContextUsed)
}

func TestRoute_RetrievalFailureDegrades(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})
	f.store.FailScoring = true

	resp, err := f.router.Route(context.Background(), RouteRequest{AgentKey: "discovery", Message: "anything", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, 0, resp.ContextUsed)
	assert.NotContains(t, f.model.lastCall()[1].Content, "RETRIEVED CONTEXT")
}

func TestRoute_WorkingMemoryUpdatesAreStrippedAndStored(t *testing.T) {
	model := &scriptedModel{reply: func([]llm.Message) (string, error) {
		return "Noted the SSO need.\n<working_memory>{\"keyRequirements\":\"SSO via Okta\"}</working_memory>", nil
	}}
	f := newRouterFixture(t, model, RouterConfig{})
	ctx := context.Background()
	req := RouteRequest{AgentKey: "discovery", Message: "We need SSO", ThreadID: "t-1", ResourceID: "u-1"}

	resp, err := f.router.Route(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Noted the SSO need.", resp.Response)

	_, err = f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: "next", ThreadID: "t-1", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.Contains(t, model.lastCall()[0].Content, "- keyRequirements: SSO via Okta")

	thread, err := f.memory.Thread(ctx, models.ThreadKey{AgentKey: "discovery", ThreadID: "t-1", ResourceID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "Noted the SSO need.", thread.Messages[1].Content)
}

func TestRoute_SerializesTurnsPerThread(t *testing.T) {
	model := echoModel()
	model.delay = 5 * time.Millisecond
	f := newRouterFixture(t, model, RouterConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: fmt.Sprintf("msg %d", i), ThreadID: "busy", ResourceID: "u-1"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	thread, err := f.memory.Thread(ctx, models.ThreadKey{AgentKey: "discovery", ThreadID: "busy", ResourceID: "u-1"})
	require.NoError(t, err)
	require.Len(t, thread.Messages, 16)
	for i := 0; i < len(thread.Messages); i += 2 {
		user, assistant := thread.Messages[i], thread.Messages[i+1]
		assert.Equal(t, models.RoleUser, user.Role)
		assert.Equal(t, models.RoleAssistant, assistant.Role)
		assert.Equal(t, "echo: "+user.Content, assistant.Content)
	}
}

func TestRoute_Validation(t *testing.T) {
	f := newRouterFixture(t, echoModel(), RouterConfig{})

	tests := []struct {
		name string
		req  RouteRequest
	}{
		{"missing agent", RouteRequest{Message: "hi", ResourceID: "u"}},
		{"missing message", RouteRequest{AgentKey: "discovery", ResourceID: "u"}},
		{"missing resource", RouteRequest{AgentKey: "discovery", Message: "hi"}},
		{"unknown agent", RouteRequest{AgentKey: "nope", Message: "hi", ResourceID: "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.router.Route(context.Background(), tt.req)
			assert.True(t, models.IsKind(err, models.KindValidation), "error = %v", err)
		})
	}
}

func TestRoute_FailureClassification(t *testing.T) {
	tests := []struct {
		name  string
		model *scriptedModel
		want  models.ErrorKind
	}{
		{"no model configured", nil, models.KindCredential},
		{"credential", &scriptedModel{reply: func([]llm.Message) (string, error) {
			return "", models.NewError(models.KindCredential, "bad key")
		}}, models.KindCredential},
		{"network", &scriptedModel{reply: func([]llm.Message) (string, error) {
			return "", models.NewError(models.KindNetwork, "unreachable")
		}}, models.KindNetwork},
		{"generic", &scriptedModel{reply: func([]llm.Message) (string, error) {
			return "", errors.New("model exploded")
		}}, models.KindModel},
		{"empty reply", &scriptedModel{reply: func([]llm.Message) (string, error) {
			return "<working_memory>{}</working_memory>", nil
		}}, models.KindModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, tt.model, RouterConfig{})
			_, err := f.router.Route(context.Background(), RouteRequest{AgentKey: "discovery", Message: "hi", ResourceID: "u"})
			assert.Equal(t, tt.want, models.KindOf(err), "error = %v", err)
		})
	}
}

func TestRoute_LongRunningAgentsGetLongerTimeout(t *testing.T) {
	model := echoModel()
	model.delay = 100 * time.Millisecond
	f := newRouterFixture(t, model, RouterConfig{ChatTimeout: 20 * time.Millisecond, LongTaskTimeout: 2 * time.Second})
	ctx := context.Background()

	_, err := f.router.Route(ctx, RouteRequest{AgentKey: "discovery", Message: "quick", ResourceID: "u"})
	assert.True(t, models.IsKind(err, models.KindNetwork), "error = %v", err)

	resp, err := f.router.Route(ctx, RouteRequest{AgentKey: "export_backlog", Message: "export all stories", ResourceID: "u"})
	require.NoError(t, err)
	assert.Equal(t, "echo: export all stories", resp.Response)
}

func TestMintThreadID(t *testing.T) {
	assert.Equal(t, "discovery-42", MintThreadID("discovery", time.UnixMilli(42)))
}
