// ABOUTME: Root command, global flags and shared application bootstrap
// ABOUTME: Every subcommand loads configuration and wires the app through here
package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/app"
	"github.com/websiTester/ba-agent-sub000/internal/config"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
██████╗  █████╗        █████╗  ██████╗ ███████╗███╗   ██╗████████╗
██╔══██╗██╔══██╗      ██╔══██╗██╔════╝ ██╔════╝████╗  ██║╚══██╔══╝
██████╔╝███████║█████╗███████║██║  ███╗█████╗  ██╔██╗ ██║   ██║
██╔══██╗██╔══██║╚════╝██╔══██║██║   ██║██╔══╝  ██║╚██╗██║   ██║
██████╔╝██║  ██║      ██║  ██║╚██████╔╝███████╗██║ ╚████║   ██║
╚═════╝ ╚═╝  ╚═╝      ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝`

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baagent",
		Short: "Business-analysis assistant with document retrieval",
		Long: banner + `

Upload reference documents, search them semantically and chat with
phase-specific analysis agents (discovery, requirements, user stories,
validation, backlog export) that remember each conversation.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if quiet {
				log.SetOutput(io.Discard)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, json)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./config.yaml or $XDG_CONFIG_HOME/ba-agent/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewUploadCmd(),
		NewSearchCmd(),
		NewChatCmd(),
		NewDocumentsCmd(),
		NewAgentsCmd(),
		NewExportCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadApp reads configuration and wires the application
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if !cfg.HasOpenAIKey() && verbose {
		fmt.Fprintln(os.Stderr, "Warning: OPENAI_API_KEY not set - using local embeddings")
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return a, nil
}

// closeApp releases the app, reporting failures on stderr
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error closing storage: %v\n", err)
	}
}

func useJSON() bool {
	return outputFormat == "json"
}
