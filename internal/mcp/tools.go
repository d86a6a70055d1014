// ABOUTME: MCP tool definitions and registration for the business-analysis assistant
// ABOUTME: Exposes retrieval, agent chat and document management over stdio
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/websiTester/ba-agent-sub000/internal/core"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, ingestor *core.Ingestor, retriever *core.Retriever, router *core.Router, registry *core.AgentRegistry) *Handlers {
	handlers := NewHandlers(ingestor, retriever, router, registry)

	// 1. retrieve_context - semantic search over a scope's documents
	server.AddTool(mcp.Tool{
		Name:        "retrieve_context",
		Description: "Search the uploaded documents of a scope and return the most relevant chunks with source attribution.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"scope_id": map[string]interface{}{
					"type":        "string",
					"description": "Scope (project or agent) whose documents are searched",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 5, max: 50)",
					"default":     core.DefaultRetrievalLimit,
				},
			},
			Required: []string{"query", "scope_id"},
		},
	}, handlers.RetrieveContext)

	// 2. chat_with_agent - one turn with a phase-specific assistant
	server.AddTool(mcp.Tool{
		Name:        "chat_with_agent",
		Description: "Send a message to a business-analysis agent. Reuse the returned thread_id to continue the conversation.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"agent_key": map[string]interface{}{
					"type":        "string",
					"description": "Agent to address, e.g. discovery, requirements, user_stories",
				},
				"message": map[string]interface{}{
					"type":        "string",
					"description": "User message",
				},
				"resource_id": map[string]interface{}{
					"type":        "string",
					"description": "Identity of the caller; threads are isolated per resource",
				},
				"thread_id": map[string]interface{}{
					"type":        "string",
					"description": "Existing thread to continue; omit to start a new one",
				},
				"scope_id": map[string]interface{}{
					"type":        "string",
					"description": "Document scope for retrieval (defaults to the agent key)",
				},
				"attached_document": map[string]interface{}{
					"type":        "string",
					"description": "Optional document text to include verbatim in this turn",
				},
			},
			Required: []string{"agent_key", "message", "resource_id"},
		},
	}, handlers.ChatWithAgent)

	// 3. ingest_text - index raw text as a document
	server.AddTool(mcp.Tool{
		Name:        "ingest_text",
		Description: "Store text as a markdown document in a scope, then chunk and index it for retrieval.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope_id": map[string]interface{}{
					"type":        "string",
					"description": "Scope the document belongs to",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title, used as its file name",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Document body (markdown headings are used as section boundaries)",
				},
			},
			Required: []string{"scope_id", "title", "text"},
		},
	}, handlers.IngestText)

	// 4. list_documents - documents in a scope
	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents stored in a scope with their chunk counts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope_id": map[string]interface{}{
					"type":        "string",
					"description": "Scope to list; omit to list every document",
				},
			},
		},
	}, handlers.ListDocuments)

	// 5. delete_document - remove a document and its chunks
	server.AddTool(mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and every chunk derived from it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "ID returned when the document was ingested",
				},
			},
			Required: []string{"document_id"},
		},
	}, handlers.DeleteDocument)

	// 6. list_agents - available agents
	server.AddTool(mcp.Tool{
		Name:        "list_agents",
		Description: "List the available business-analysis agents and what each one does.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListAgents)

	return handlers
}
