package cmd

import (
	"github.com/fleetscan/fleetscan/core"
	"github.com/spf13/cobra"
)

// reportCmd renders stored scan results without scanning.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the latest stored scan results.",
	Long: `Render a report from results already in the store, without hitting any backend.

Reads the most recent scored records and prints them in the selected output
format. Use it to:
- Re-inspect the last scan with a different limit or format
- Drill into a single repository's per-dimension breakdown
- Feed stored results into downstream tooling via csv or json

Examples:
  # Show the ranked fleet report from the store
  fleetscan report

  # Focus on one repository's detail view
  fleetscan report --repository payments-service

  # Re-render the last scan as JSON
  fleetscan report --output json --output-file fleet.json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor(core.ExecuteFleetReport, "Cannot render fleet report")
	},
}
