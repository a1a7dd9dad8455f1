package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/parquet"
	"github.com/fleetscan/fleetscan/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintFleetReport outputs stored repository records, dispatching based on the output format configured.
func PrintFleetReport(records []schema.RepositoryRecord, cfg *contract.Config, duration time.Duration) error {
	// Create formatters using helper
	fmtFloat, fmtCount := createFormatters(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := printReportJSON(records, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := printReportCSV(records, cfg, fmtFloat, fmtCount); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := printReportParquet(records, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(w, records, cfg, fmtFloat, fmtCount, duration)
		}, "Wrote table")
	}
	return nil
}

// printReportJSON handles opening the file and calling the JSON writer.
func printReportJSON(records []schema.RepositoryRecord, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSONResultsForReport(w, records)
	}, "Wrote JSON")
}

// printReportCSV handles opening the file and calling the CSV writer.
func printReportCSV(records []schema.RepositoryRecord, cfg *contract.Config, fmtFloat, fmtCount func(float64) string) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		csvWriter := csv.NewWriter(w)
		defer csvWriter.Flush()
		return writeCSVResultsForReport(csvWriter, records, fmtFloat, fmtCount)
	}, "Wrote CSV")
}

// printReportParquet converts records and writes a Parquet file. Parquet is
// binary, so it always goes to a file, never stdout.
func printReportParquet(records []schema.RepositoryRecord, cfg *contract.Config) error {
	if cfg.OutputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	converted := parquet.ConvertRepositoryRecords(records)
	if err := parquet.WriteRepositoryHealthParquet(converted, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	return nil
}

// writeReportTable generates and writes the human-readable fleet table.
func writeReportTable(w io.Writer, records []schema.RepositoryRecord, cfg *contract.Config, fmtFloat, fmtCount func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	headers := []string{"Rank", "Repository", "Commits/Wk", "Churn/Wk", "Branches", "Contrib", "Freq", "Chrn", "Brch", "Score", "Rating", "Risk"}
	table.Header(headers)

	// 2. Configure Alignment
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	// 3. Populate Rows
	nameWidth := GetMaxTableNameWidth(cfg)
	var data [][]string
	for i, r := range records {
		// Prepare the row data as a slice of strings
		row := []string{
			strconv.Itoa(i + 1), // Rank
			contract.TruncateName(r.Repository, nameWidth),                    // Repository
			metricCell(r.Metrics, schema.MetricAvgWeeklyCommits, fmtFloat, "-"), // Commits/Wk
			metricCell(r.Metrics, schema.MetricWeeklyChurn, fmtFloat, "-"),      // Churn/Wk
			metricCell(r.Metrics, schema.MetricBranchCount, fmtCount, "-"),      // Branches
			metricCell(r.Metrics, schema.MetricContributorCount, fmtCount, "-"), // Contrib
		}
		if a := r.Assessment; a != nil {
			row = append(row,
				fmtFloat(a.CommitFrequency.Score),  // Freq
				fmtFloat(a.CodeChurn.Score),        // Chrn
				fmtFloat(a.BranchComplexity.Score), // Brch
				fmtFloat(a.Overall),                // Score
				string(a.Rating),                   // Rating
				riskLabelCell(a, cfg.UseColors),    // Risk
			)
		} else {
			row = append(row, "-", "-", "-", "-", "-", "-")
		}
		data = append(data, row)
	}

	// 4. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	// Compute summary stats
	summary := schema.BuildFleetSummary(records, 0)
	if _, err := fmt.Fprintf(w, "Showing %d repositories (fleet avg aberrancy: %s)\n", summary.Repositories, fmtFloat(summary.AvgOverall)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Report completed in %v. Store backend: %s\n", duration, cfg.StoreBackend); err != nil {
		return err
	}
	return nil
}
