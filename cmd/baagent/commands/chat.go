// ABOUTME: CLI command for one chat turn with an analysis agent
// ABOUTME: Prints the reply and the thread ID to continue the conversation
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/websiTester/ba-agent-sub000/internal/core"
)

var (
	chatAgent    string
	chatThread   string
	chatResource string
	chatScope    string
	chatAttach   string
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Chat with an analysis agent",
		Long: `Send one message to an analysis agent.

The agent sees its recent conversation history, its working memory and
the most relevant sections of the scope's documents. Pass --thread with
the printed thread ID to continue a conversation.

Examples:
  baagent chat --agent discovery "We are building a B2B invoicing portal"
  baagent chat --agent discovery --thread discovery-1718000000000 "Who approves invoices?"
  baagent chat --agent validation --attach stories.md "Check these stories"`,
		Args: cobra.ExactArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringVar(&chatAgent, "agent", "discovery", "Agent key (see 'baagent agents list')")
	cmd.Flags().StringVar(&chatThread, "thread", "", "Thread ID to continue")
	cmd.Flags().StringVar(&chatResource, "resource", defaultResource(), "Caller identity; threads are isolated per resource")
	cmd.Flags().StringVar(&chatScope, "scope", "", "Document scope for retrieval (default: agent key)")
	cmd.Flags().StringVar(&chatAttach, "attach", "", "File whose text is attached to this turn")

	return cmd
}

func defaultResource() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func runChat(cmd *cobra.Command, args []string) error {
	var attached string
	if chatAttach != "" {
		data, err := os.ReadFile(chatAttach)
		if err != nil {
			return fmt.Errorf("reading %s: %w", chatAttach, err)
		}
		attached = string(data)
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	resp, err := a.Router.Route(cmd.Context(), core.RouteRequest{
		AgentKey:         chatAgent,
		Message:          args[0],
		AttachedDocument: attached,
		ScopeID:          chatScope,
		ThreadID:         chatThread,
		ResourceID:       chatResource,
	})
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	if useJSON() {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\n[thread %s, %d context chunk(s)]\n", resp.ThreadID, resp.ContextUsed)
	}
	return nil
}
