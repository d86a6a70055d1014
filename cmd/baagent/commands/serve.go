// ABOUTME: Serve command runs the HTTP API
// ABOUTME: Watches agent definitions and shuts down gracefully on SIGINT/SIGTERM
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/server"
)

var (
	serveAddr string
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server

Serves document upload, deletion, retrieval and agent chat over HTTP,
plus /healthz and Prometheus /metrics.`,
		RunE: runServe,
		Example: `  # Listen on the configured address (default :8080)
  baagent serve

  # Override the address
  baagent serve --addr 127.0.0.1:9000`,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := a.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(server.FromApp(a))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
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
