package cmd

import (
	"github.com/fleetscan/fleetscan/core"
	"github.com/spf13/cobra"
)

// scanCmd runs a full fleet scan.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the fleet and score every repository.",
	Long: `Collect engineering health metrics for every repository in the organization.

Walks the hosting backend page by page, gathers signals from each configured
backend and scores every repository, helping you:
- Spot repositories with slipping review or testing discipline
- Find stale branches and unprotected default branches
- Catch quality gate failures and security policy violations
- Track coverage and execution health across the whole fleet

Progress is checkpointed after every page, so an interrupted scan resumes
where it left off instead of starting over. Results land in the configured
store and the worst offenders print as a ranked report.

Examples:
  # Scan an organization with defaults
  fleetscan scan --org acme

  # Wider scan with more workers and a longer history window
  fleetscan scan --org acme --workers 16 --lookback-days 90

  # Discard the previous checkpoint and start over
  fleetscan scan --org acme --fresh

  # Export findings to CSV for tracking
  fleetscan scan --org acme --output csv --output-file fleet.csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor(core.ExecuteFleetScan, "Cannot run fleet scan")
	},
}
