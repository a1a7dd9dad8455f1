package cmd

import (
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/sink"
	"github.com/spf13/cobra"
)

// statusCmd shows store and checkpoint status.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display result store statistics and checkpoint state",
	Long: `Show detailed information about stored scan results and resume state.

Displays:
- Store backend type and connection status
- Total number of repositories with stored results
- Last scan timestamp
- Database table sizes
- Saved checkpoint state, if a scan was interrupted

Use this to:
- Verify result storage is enabled and working
- Check database connection health
- See whether the next scan will resume or start fresh
- Estimate storage requirements

Examples:
  # Check store and checkpoint status
  fleetscan status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := sink.Manager.GetResultStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		sink.PrintStoreStatus(status)
		printCheckpointState()
	},
}
