package cmd

import (
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/sink"
	"github.com/spf13/cobra"
)

// exportCmd exports stored results to Parquet files.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored results to Parquet for BI tools and analytics",
	Long: `Export all stored scan results to Parquet format for use with analytics tools.

Exports two datasets:
- Scan runs - metadata about each scan execution
- Repository records - per-dimension scores and raw backend metrics

Parquet format enables:
- Fast querying with DuckDB, Apache Spark, pandas
- Efficient storage with columnar compression
- Schema evolution for future data additions
- Direct import into BI tools (Tableau, Metabase, etc.)

Requires: --output-file parameter

Use cases:
- Fleet health trends across multiple scans
- Custom dashboards and visualizations
- ML model training on engineering metrics
- Executive reporting and KPIs

Examples:
  # Export all data
  fleetscan export --output-file fleet-data

  # Use with DuckDB for analysis
  fleetscan export --output-file data
  duckdb -c "SELECT * FROM read_parquet('data.repository_health.parquet') LIMIT 10"`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := sink.ExecuteResultsExport(cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export stored results", err)
		}
	},
}
