package sink

import (
	"errors"
	"fmt"

	"github.com/fleetscan/fleetscan/internal/parquet"
)

// ExecuteResultsExport performs the actual export of stored scan results to Parquet files.
func ExecuteResultsExport(outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	// Get the result store
	store := Manager.GetResultStore()

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}

	if status.Repositories == 0 {
		return errors.New("no scan results found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total repositories: %d\n", status.Repositories)
	fmt.Printf("Total scan runs: %d\n", status.TableCounts[scanRunsTable])

	// Retrieve all scan runs
	scanRuns, err := store.ListScanRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve scan runs: %w", err)
	}

	// Retrieve all repository records
	records, err := store.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to retrieve repository records: %w", err)
	}

	// Convert to Parquet format
	parquetScanRuns := parquet.ConvertScanRunRecords(scanRuns)
	parquetHealth := parquet.ConvertRepositoryRecords(records)

	// Write scan runs to Parquet
	scanRunsFile := outputFile + ".scan_runs.parquet"
	if err := parquet.WriteScanRunsParquet(parquetScanRuns, scanRunsFile); err != nil {
		return fmt.Errorf("failed to write scan runs: %w", err)
	}
	fmt.Printf("Exported %d scan runs to: %s\n", len(parquetScanRuns), scanRunsFile)

	// Write repository health records to Parquet
	healthFile := outputFile + ".repository_health.parquet"
	if err := parquet.WriteRepositoryHealthParquet(parquetHealth, healthFile); err != nil {
		return fmt.Errorf("failed to write repository health: %w", err)
	}
	fmt.Printf("Exported %d repository health records to: %s\n", len(parquetHealth), healthFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
