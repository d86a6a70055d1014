// ABOUTME: CLI command to list the available analysis agents
// ABOUTME: Shows built-in definitions merged with any overrides from agents.dir
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewAgentsCmd creates the agents command group
func NewAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect analysis agents",
		Long: `Inspect the analysis agents.

Built-in agents can be overridden or extended with YAML files in the
directory configured as agents.dir.

Examples:
  baagent agents list
  baagent agents list --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		Long:  `List every agent key with its name and description.`,
		RunE:  runAgentsList,
	})
	return cmd
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	defs := a.Registry.Definitions()
	if useJSON() {
		return printJSON(cmd.OutOrStdout(), defs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tNAME\tLONG\tDESCRIPTION\n")
	fmt.Fprintf(w, "---\t----\t----\t-----------\n")
	for _, d := range defs {
		long := ""
		if d.LongRunning {
			long = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Key, truncate(d.Name, 25), long, truncate(d.Description, 60))
	}
	w.Flush()
	return nil
}
