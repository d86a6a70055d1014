// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to search documents and consult analysis agents via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs ba-agent as an MCP (Model Context Protocol) server, enabling
LLM agents to retrieve document context, ingest text and chat with
the business-analysis agents via stdio.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  baagent mcp

  # Configure in the client's config file:
  # {
  #   "mcpServers": {
  #     "ba-agent": {
  #       "command": "baagent",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.WatchAgents(ctx); err != nil {
		log.Printf("Warning: agent hot reload disabled: %v", err)
	}

	server := mcpserver.NewMCPServer("ba-agent", versionInfo.Version)
	handlers := mcp.RegisterTools(server, a.Ingestor, a.Retriever, a.Router, a.Registry)

	if !quiet {
		log.Println("ba-agent MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}
		handlers.Shutdown()
		if !quiet {
			log.Println("Shutdown complete")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
