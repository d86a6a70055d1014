// ABOUTME: MCP tool handler implementations
// ABOUTME: Domain failures become tool errors carrying the public message
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/websiTester/ba-agent-sub000/internal/core"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	ingestor  *core.Ingestor
	retriever *core.Retriever
	router    *core.Router
	registry  *core.AgentRegistry
	logger    *log.Logger
}

// NewHandlers creates Handlers over the core pipeline
func NewHandlers(ingestor *core.Ingestor, retriever *core.Retriever, router *core.Router, registry *core.AgentRegistry) *Handlers {
	return &Handlers{
		ingestor:  ingestor,
		retriever: retriever,
		router:    router,
		registry:  registry,
		logger:    log.New(log.Writer(), "[MCP] ", log.LstdFlags),
	}
}

// RetrieveContext handles the retrieve_context tool
func (h *Handlers) RetrieveContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	scopeID, err := request.RequireString("scope_id")
	if err != nil {
		return mcp.NewToolResultError("scope_id argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", 0)

	results, err := h.retriever.RetrieveStrict(ctx, query, scopeID, limit)
	if err != nil {
		if models.IsKind(err, models.KindValidation) {
			return toolError(err), nil
		}
		h.logger.Printf("retrieval degraded for scope %q: %v", scopeID, err)
		results = []models.RetrievalResult{}
	}

	return jsonResult(map[string]interface{}{
		"results": results,
		"context": core.FormatContext(results),
	})
}

// ChatWithAgent handles the chat_with_agent tool
func (h *Handlers) ChatWithAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentKey, err := request.RequireString("agent_key")
	if err != nil {
		return mcp.NewToolResultError("agent_key argument is required and must be a string"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	resourceID, err := request.RequireString("resource_id")
	if err != nil {
		return mcp.NewToolResultError("resource_id argument is required and must be a string"), nil
	}

	resp, err := h.router.Route(ctx, core.RouteRequest{
		AgentKey:         agentKey,
		Message:          message,
		ResourceID:       resourceID,
		ThreadID:         request.GetString("thread_id", ""),
		ScopeID:          request.GetString("scope_id", ""),
		AttachedDocument: request.GetString("attached_document", ""),
	})
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(map[string]interface{}{
		"response":     resp.Response,
		"thread_id":    resp.ThreadID,
		"context_used": resp.ContextUsed,
	})
}

// IngestText handles the ingest_text tool
func (h *Handlers) IngestText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scopeID, err := request.RequireString("scope_id")
	if err != nil {
		return mcp.NewToolResultError("scope_id argument is required and must be a string"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required and must be a string"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	res, err := h.ingestor.IngestText(ctx, scopeID, title, text)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

// ListDocuments handles the list_documents tool
func (h *Handlers) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.ingestor.List(ctx, request.GetString("scope_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]interface{}{"documents": docs})
}

// DeleteDocument handles the delete_document tool
func (h *Handlers) DeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}
	if err := h.ingestor.Delete(ctx, documentID); err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]interface{}{"success": true, "document_id": documentID})
}

// ListAgents handles the list_agents tool
func (h *Handlers) ListAgents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs := h.registry.Definitions()
	agents := make([]map[string]interface{}, 0, len(defs))
	for _, d := range defs {
		agents = append(agents, map[string]interface{}{
			"key":          d.Key,
			"name":         d.Name,
			"description":  d.Description,
			"long_running": d.LongRunning,
		})
	}
	return jsonResult(map[string]interface{}{"agents": agents})
}

// Shutdown waits for background ingestion started through the tools
func (h *Handlers) Shutdown() {
	h.logger.Println("Waiting for pending ingestion to complete...")
	h.ingestor.Wait()
	h.logger.Println("All ingestion completed")
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", models.KindOf(err), models.PublicMessage(err)))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
