// ABOUTME: Main entry point for the standalone ba-agent HTTP server
// ABOUTME: Loads config from file and environment, serves the API and shuts down on SIGINT/SIGTERM
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/websiTester/ba-agent-sub000/internal/app"
	"github.com/websiTester/ba-agent-sub000/internal/config"
	"github.com/websiTester/ba-agent-sub000/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("BA_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.HasOpenAIKey() {
		log.Println("Warning: OPENAI_API_KEY not set - chat will fail and embeddings use local hashing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Error during close: %v", err)
		}
	}()

	if err := a.WatchAgents(ctx); err != nil {
		log.Printf("Warning: agent hot reload disabled: %v", err)
	}

	srv := server.New(server.FromApp(a))
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("ba-agent HTTP server listening on %s", cfg.Server.Addr)
		serverErr <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received, gracefully shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}
}
