package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// writeJSONResultsForReport writes the stored records in JSON format.
func writeJSONResultsForReport(w io.Writer, records []schema.RepositoryRecord) error {
	return writeJSON(w, schema.EnrichRecords(records))
}

// writeCSVResultsForReport writes the stored records in CSV format.
// Unscored assessment columns stay empty rather than carrying a placeholder.
func writeCSVResultsForReport(w *csv.Writer, records []schema.RepositoryRecord, fmtFloat, fmtCount func(float64) string) error {
	// CSV header
	header := []string{
		"rank",
		"repository",
		"overall_score",
		"rating",
		"risk_level",
		"commit_frequency_score",
		"code_churn_score",
		"branch_complexity_score",
		"avg_weekly_commits",
		"weekly_churn",
		"branch_count",
		"contributor_count",
		"last_updated",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, r := range records {
		var overall, rating, risk, freq, chrn, brch string
		if a := r.Assessment; a != nil {
			overall = fmtFloat(a.Overall)
			rating = string(a.Rating)
			risk = a.RiskLevel
			freq = fmtFloat(a.CommitFrequency.Score)
			chrn = fmtFloat(a.CodeChurn.Score)
			brch = fmtFloat(a.BranchComplexity.Score)
		}
		rec := []string{
			strconv.Itoa(i + 1), // Rank
			r.Repository,        // Repository
			overall,             // Overall aberrancy
			rating,              // Rating
			risk,                // Risk Level
			freq,                // Commit Frequency Score
			chrn,                // Code Churn Score
			brch,                // Branch Complexity Score
			metricCell(r.Metrics, schema.MetricAvgWeeklyCommits, fmtFloat, ""), // Commits per Week
			metricCell(r.Metrics, schema.MetricWeeklyChurn, fmtFloat, ""),      // Churn per Week
			metricCell(r.Metrics, schema.MetricBranchCount, fmtCount, ""),      // Branch Count
			metricCell(r.Metrics, schema.MetricContributorCount, fmtCount, ""), // Contributor Count
			r.LastUpdated.Format(contract.DateTimeFormat),                      // Last Updated
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
