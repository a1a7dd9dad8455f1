package cmd

import (
	"github.com/fleetscan/fleetscan/internal/mcp"
	"github.com/fleetscan/fleetscan/internal/sink"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the Fleetscan MCP server",
	Long:    `Launch an MCP server that allows AI agents to query stored fleet health results via standard tools.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, sink.Manager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
