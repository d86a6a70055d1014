// ABOUTME: Router runs one chat turn: recall, retrieval, prompt, generation, commit
// ABOUTME: Turns of one thread are serialized; retrieval failures degrade instead of failing
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
	"github.com/websiTester/ba-agent-sub000/internal/util"
)

// TurnState is a step of the chat turn pipeline
type TurnState string

const (
	StateReceived          TurnState = "received"
	StateRecallingMemory   TurnState = "recalling_memory"
	StateRetrievingContext TurnState = "retrieving_context"
	StateComposingPrompt   TurnState = "composing_prompt"
	StateGenerating        TurnState = "generating"
	StateCommittingMemory  TurnState = "committing_memory"
	StateDone              TurnState = "done"
	StateFailed            TurnState = "failed"
)

// RouteRequest is one chat turn addressed to an agent
type RouteRequest struct {
	AgentKey         string `json:"agentKey"`
	Message          string `json:"message"`
	AttachedDocument string `json:"attachedDocument,omitempty"`
	ScopeID          string `json:"scopeId,omitempty"`
	ThreadID         string `json:"threadId,omitempty"`
	ResourceID       string `json:"resourceId"`
}

// RouteResponse is the agent's visible reply
type RouteResponse struct {
	Response    string    `json:"response"`
	ThreadID    string    `json:"threadId"`
	ContextUsed int       `json:"contextUsed"`
	Degraded    bool      `json:"degraded,omitempty"`
	State       TurnState `json:"-"`
}

// RouterConfig tunes routing
type RouterConfig struct {
	ChatTimeout       time.Duration
	LongTaskTimeout   time.Duration
	RetrievalLimit    int
	MaxAttachedTokens int
	Temperature       float32
	MaxTokens         int
}

// DefaultRouterConfig returns the standard timeouts and limits
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ChatTimeout:     60 * time.Second,
		LongTaskTimeout: 5 * time.Minute,
		RetrievalLimit:  DefaultRetrievalLimit,
		Temperature:     0.3,
	}
}

// Router dispatches chat turns to agents
type Router struct {
	registry  *AgentRegistry
	memory    *ConversationMemory
	retriever *Retriever
	model     Completer
	locks     *util.KeyedMutex
	cfg       RouterConfig
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *log.Logger
}

// NewRouter creates a Router. A nil model makes every turn fail with a credential error.
func NewRouter(registry *AgentRegistry, memory *ConversationMemory, retriever *Retriever, model Completer, cfg RouterConfig, m *metrics.Metrics) *Router {
	def := DefaultRouterConfig()
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = def.ChatTimeout
	}
	if cfg.LongTaskTimeout <= 0 {
		cfg.LongTaskTimeout = def.LongTaskTimeout
	}
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = def.RetrievalLimit
	}
	return &Router{
		registry:  registry,
		memory:    memory,
		retriever: retriever,
		model:     model,
		locks:     util.NewKeyedMutex(),
		cfg:       cfg,
		metrics:   m,
		now:       time.Now,
		logger:    log.New(log.Writer(), "[Router] ", log.LstdFlags),
	}
}

// MintThreadID derives a thread ID from the agent key and a start time
func MintThreadID(agentKey string, at time.Time) string {
	return fmt.Sprintf("%s-%d", agentKey, at.UnixMilli())
}

// Route runs one chat turn and returns the agent's visible response. Turns on
// the same thread run one at a time, in the order their Route calls reach the
// thread lock.
func (r *Router) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	start := r.now()
	resp, err := r.route(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = string(models.KindOf(err))
	} else if resp.Degraded {
		outcome = "degraded"
	}
	r.metrics.ObserveChat(req.AgentKey, outcome, r.now().Sub(start))
	return resp, err
}

func (r *Router) route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	state := StateReceived
	fail := func(err error) (*RouteResponse, error) {
		r.logger.Printf("turn failed at %s for agent %s: %v", state, req.AgentKey, err)
		return nil, err
	}

	req.AgentKey = strings.TrimSpace(req.AgentKey)
	if req.AgentKey == "" {
		return fail(models.ValidationError("agentKey is required"))
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(models.ValidationError("message is required"))
	}
	if strings.TrimSpace(req.ResourceID) == "" {
		return fail(models.ValidationError("resourceId is required"))
	}

	agent, err := r.registry.Get(ctx, req.AgentKey)
	if err != nil {
		return fail(err)
	}
	if r.model == nil {
		return fail(models.NewError(models.KindCredential, "no language model is configured; set OPENAI_API_KEY"))
	}

	timeout := r.cfg.ChatTimeout
	if agent.Definition.LongRunning {
		timeout = r.cfg.LongTaskTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if req.ThreadID == "" {
		req.ThreadID = MintThreadID(req.AgentKey, r.now())
	}
	if req.ScopeID == "" {
		req.ScopeID = req.AgentKey
	}
	key := models.ThreadKey{AgentKey: req.AgentKey, ThreadID: req.ThreadID, ResourceID: req.ResourceID}

	unlock := r.locks.Lock(key.String())
	defer unlock()

	// recall and retrieval are independent; generation waits for both
	state = StateRecallingMemory
	var (
		recall   *models.Recall
		results  []models.RetrievalResult
		degraded bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recall, err = agent.Memory.AppendAndRecall(gctx, key, req.Message)
		return err
	})
	g.Go(func() error {
		if r.retriever == nil {
			return nil
		}
		res, err := r.retriever.RetrieveStrict(gctx, req.Message, req.ScopeID, r.cfg.RetrievalLimit)
		if err != nil {
			r.logger.Printf("retrieval degraded for %s: %v", key, err)
			degraded = true
			return nil
		}
		results = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	state = StateComposingPrompt
	turn := TurnPrompt{
		Message:           req.Message,
		AttachedDocument:  req.AttachedDocument,
		RetrievalContext:  FormatContext(results),
		Preamble:          agent.Definition.Preamble,
		MaxAttachedTokens: r.cfg.MaxAttachedTokens,
	}
	messages := ChatMessages(SystemPrompt(agent.Definition.Instructions, recall.WorkingMemory), recall.Messages, turn.Render())

	state = StateGenerating
	raw, err := r.model.Complete(ctx, messages, llm.CompletionOptions{
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return fail(classifyGenerationError(ctx, err, timeout))
	}

	state = StateCommittingMemory
	visible, updates := ParseWorkingMemory(raw)
	if visible == "" {
		return fail(models.NewError(models.KindModel, "the model returned an empty response"))
	}
	if err := agent.Memory.Commit(ctx, key, visible, updates); err != nil {
		return fail(err)
	}

	state = StateDone
	r.logger.Printf("turn done for %s: %d context chunks, degraded=%v", key, len(results), degraded)
	return &RouteResponse{
		Response:    visible,
		ThreadID:    req.ThreadID,
		ContextUsed: len(results),
		Degraded:    degraded,
		State:       state,
	}, nil
}

// classifyGenerationError maps a generation failure to credential, network or model
func classifyGenerationError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.Wrap(models.KindNetwork, err, fmt.Sprintf("the model did not answer within %s", timeout))
	}
	return llm.ClassifyError(err)
}
