package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// PrintRepositoryDetail outputs a single repository record, dispatching based on the output format configured.
func PrintRepositoryDetail(record *schema.RepositoryRecord, cfg *contract.Config) error {
	fmtFloat, fmtCount := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, record)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			csvWriter := csv.NewWriter(w)
			defer csvWriter.Flush()
			return writeCSVResultsForReport(csvWriter, []schema.RepositoryRecord{*record}, fmtFloat, fmtCount)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return printReportParquet([]schema.RepositoryRecord{*record}, cfg)
	default:
		// Default to human-readable text
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDetailText(w, record, cfg, fmtFloat)
		}, "Wrote text")
	}
}

// writeDetailText renders the full assessment for one repository.
func writeDetailText(w io.Writer, record *schema.RepositoryRecord, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "Repository: %s\n", record.Repository); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Last updated: %s\n", record.LastUpdated.Format(contract.DateTimeFormat)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n"); err != nil {
		return err
	}

	a := record.Assessment
	if a == nil {
		if _, err := fmt.Fprintf(w, "No assessment recorded for this repository.\n\n"); err != nil {
			return err
		}
		return writeDetailMetrics(w, record)
	}

	if _, err := fmt.Fprintf(w, "Overall aberrancy: %s (%s, %s)\n", fmtFloat(a.Overall), a.Rating, riskLabelCell(a, cfg.UseColors)); err != nil {
		return err
	}
	if a.Description != "" {
		if _, err := fmt.Fprintf(w, "%s\n", a.Description); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\n"); err != nil {
		return err
	}

	dimensions := []struct {
		name string
		dim  schema.DimensionAssessment
	}{
		{"Commit Frequency", a.CommitFrequency},
		{"Code Churn", a.CodeChurn},
		{"Branch Complexity", a.BranchComplexity},
	}
	for _, d := range dimensions {
		if _, err := fmt.Fprintf(w, "%s: %s (%s)\n", d.name, fmtFloat(d.dim.Score), d.dim.Rating); err != nil {
			return err
		}
		if d.dim.Description != "" {
			if _, err := fmt.Fprintf(w, "   %s\n", d.dim.Description); err != nil {
				return err
			}
		}
		if d.dim.Detail != "" {
			if _, err := fmt.Fprintf(w, "   %s\n", d.dim.Detail); err != nil {
				return err
			}
		}
	}

	if len(a.RiskFactors) > 0 {
		if _, err := fmt.Fprintf(w, "\nRisk factors:\n"); err != nil {
			return err
		}
		for _, factor := range a.RiskFactors {
			if _, err := fmt.Fprintf(w, "   - %s\n", factor); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "\n"); err != nil {
		return err
	}
	return writeDetailMetrics(w, record)
}

// writeDetailMetrics prints every stored metric, sorted by key.
func writeDetailMetrics(w io.Writer, record *schema.RepositoryRecord) error {
	if len(record.Metrics) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Metrics:\n"); err != nil {
		return err
	}
	keys := make([]string, 0, len(record.Metrics))
	for k := range record.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "   %s: %v\n", k, record.Metrics[k]); err != nil {
			return err
		}
	}
	return nil
}
