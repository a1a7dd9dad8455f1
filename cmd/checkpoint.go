package cmd

import (
	"fmt"

	"github.com/fleetscan/fleetscan/internal/checkpoint"
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// checkpointSetupWrapper loads the config file so checkpoint-file values
// from config or environment are visible through Viper.
func checkpointSetupWrapper(_ *cobra.Command, _ []string) error {
	return loadConfigFile()
}

// checkpointPath resolves the checkpoint file location the same way a scan
// does: explicit value first, home directory default otherwise.
func checkpointPath() string {
	if p := viper.GetString("checkpoint-file"); p != "" {
		return p
	}
	return contract.GetCheckpointFilePath()
}

// printCheckpointState prints a one-line summary of the saved checkpoint.
func printCheckpointState() {
	store := checkpoint.NewFileStore(checkpointPath())
	cp, err := store.Load()
	if err != nil {
		contract.LogFatal("Failed to read checkpoint", err)
	}
	if cp == nil {
		fmt.Println("Checkpoint: none")
		return
	}
	fmt.Printf("Checkpoint: %d repositories scored, next page %d (%s)\n",
		len(cp.Results), cp.Cursor, store.Path())
}

// checkpointCmd focused on scan checkpoint management.
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and manage the scan checkpoint",
	Long: `Inspect and manage the checkpoint file that makes scans resumable.

A scan saves its progress after every listing page. When a scan is
interrupted, the next run resumes from the saved page instead of
re-fetching repositories the previous run already scored.

Subcommands:
  show  - Display the saved checkpoint state
  clear - Remove the checkpoint so the next scan starts fresh

Examples:
  # See where an interrupted scan will resume
  fleetscan checkpoint show

  # Force the next scan to start from the first page
  fleetscan checkpoint clear`,
}

// checkpointShowCmd shows the saved checkpoint state.
var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the saved checkpoint state",
	Long: `Show how far the interrupted scan progressed.

Displays:
- Number of repositories already scored
- The listing page the next scan resumes from
- The checkpoint file location

Examples:
  # Check resume state after an interrupted scan
  fleetscan checkpoint show`,
	PreRunE: checkpointSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		printCheckpointState()
	},
}

// checkpointClearCmd removes the checkpoint file.
var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved checkpoint",
	Long: `Delete the checkpoint file so the next scan starts from the first page.

Equivalent to passing --fresh to the next scan. Clearing an absent
checkpoint is not an error.

Examples:
  # Discard partial progress from an interrupted scan
  fleetscan checkpoint clear`,
	PreRunE: checkpointSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := checkpoint.NewFileStore(checkpointPath()).Clear(); err != nil {
			contract.LogFatal("Failed to clear checkpoint", err)
		}
		fmt.Println("Checkpoint cleared successfully.")
	},
}
