// Package parquet provides data structures and functions for exporting fleet
// scan data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fleetscan/fleetscan/schema"
	"github.com/parquet-go/parquet-go"
)

// ScanRun represents a single fleet scan run with metadata.
// This struct maps to the fleetscan_scan_runs database table.
type ScanRun struct {
	// RunID is the unique identifier for this scan run
	RunID string `parquet:"run_id,snappy"`

	// Org is the organization whose fleet was scanned
	Org string `parquet:"org,snappy"`

	// StartedAt is when the scan began (stored as TIMESTAMP with nanosecond precision)
	StartedAt time.Time `parquet:"started_at,snappy"`

	// FinishedAt is when the scan completed (nullable while in flight or aborted)
	FinishedAt *time.Time `parquet:"finished_at,optional,snappy"`

	// RunDurationMs is the duration of the scan run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// PagesScanned is the number of listing pages processed in this run
	PagesScanned int32 `parquet:"pages_scanned,snappy"`

	// ReposScanned is the number of repositories scored in this run
	ReposScanned int32 `parquet:"repos_scanned,snappy"`

	// ReposFailed is the number of repositories excluded for per-repo failures
	ReposFailed int32 `parquet:"repos_failed,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// RepositoryHealth represents the scored health snapshot for one repository.
// Headline fields are flattened into columns; the full metric map rides along
// as JSON for consumers that want everything.
type RepositoryHealth struct {
	// Repository is the repository name within the organization
	Repository string `parquet:"repository,snappy"`

	// OverallScore is the 0-100 aberrancy score (higher deviates more)
	OverallScore float64 `parquet:"overall_score,snappy"`

	// Rating is the qualitative band label for the overall score
	Rating string `parquet:"rating,snappy"`

	// RiskLevel is the coarse risk label derived from the overall score
	RiskLevel string `parquet:"risk_level,snappy"`

	// CommitFrequencyScore is the 0-100 health score for commit cadence
	CommitFrequencyScore float64 `parquet:"commit_frequency_score,snappy"`

	// CodeChurnScore is the 0-100 health score for weekly churn volume
	CodeChurnScore float64 `parquet:"code_churn_score,snappy"`

	// BranchComplexityScore is the 0-100 health score for branch hygiene
	BranchComplexityScore float64 `parquet:"branch_complexity_score,snappy"`

	// AvgWeeklyCommits is the derived weekly commit average (nullable when hosting data is absent)
	AvgWeeklyCommits *float64 `parquet:"avg_weekly_commits,optional,snappy"`

	// WeeklyChurn is the derived weekly line churn (nullable)
	WeeklyChurn *float64 `parquet:"weekly_churn,optional,snappy"`

	// BranchCount is the number of branches observed (nullable)
	BranchCount *float64 `parquet:"branch_count,optional,snappy"`

	// ContributorCount is the number of distinct contributors observed (nullable)
	ContributorCount *float64 `parquet:"contributor_count,optional,snappy"`

	// MetricsJSON is the full metric map encoded as JSON
	MetricsJSON string `parquet:"metrics_json,snappy"`

	// LastUpdated is when the repository was last scored
	LastUpdated time.Time `parquet:"last_updated,snappy"`
}

// WriteScanRunsParquet writes a slice of ScanRun structs to a Parquet file.
func WriteScanRunsParquet(data []ScanRun, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Create a Parquet writer using struct schema inference
	// The schema is automatically derived from the ScanRun struct tags
	writer := parquet.NewGenericWriter[ScanRun](file)
	defer func() { _ = writer.Close() }()

	// Write all records to the file
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteRepositoryHealthParquet writes a slice of RepositoryHealth structs to a Parquet file.
func WriteRepositoryHealthParquet(data []RepositoryHealth, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Create a Parquet writer using struct schema inference
	// The schema is automatically derived from the RepositoryHealth struct tags
	writer := parquet.NewGenericWriter[RepositoryHealth](file)
	defer func() { _ = writer.Close() }()

	// Write all records to the file
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// ConvertScanRunRecords converts schema.ScanRunRecord to ScanRun for Parquet export.
func ConvertScanRunRecords(records []schema.ScanRunRecord) []ScanRun {
	result := make([]ScanRun, len(records))
	for i, record := range records {
		run := ScanRun{
			RunID:         record.RunID,
			Org:           record.Org,
			StartedAt:     record.StartedAt,
			FinishedAt:    record.FinishedAt,
			RunDurationMs: record.DurationMs,
			PagesScanned:  int32(record.PagesScanned),
			ReposScanned:  int32(record.ReposScanned),
			ReposFailed:   int32(record.ReposFailed),
		}
		if record.ConfigParams != "" {
			params := record.ConfigParams
			run.ConfigParams = &params
		}
		result[i] = run
	}
	return result
}

// ConvertRepositoryRecords converts schema.RepositoryRecord to RepositoryHealth for Parquet export.
func ConvertRepositoryRecords(records []schema.RepositoryRecord) []RepositoryHealth {
	result := make([]RepositoryHealth, len(records))
	for i, record := range records {
		metricsJSON, err := json.Marshal(record.Metrics)
		if err != nil {
			metricsJSON = []byte("{}")
		}

		health := RepositoryHealth{
			Repository:       record.Repository,
			AvgWeeklyCommits: optionalMetric(record.Metrics, schema.MetricAvgWeeklyCommits),
			WeeklyChurn:      optionalMetric(record.Metrics, schema.MetricWeeklyChurn),
			BranchCount:      optionalMetric(record.Metrics, schema.MetricBranchCount),
			ContributorCount: optionalMetric(record.Metrics, schema.MetricContributorCount),
			MetricsJSON:      string(metricsJSON),
			LastUpdated:      record.LastUpdated,
		}
		if record.Assessment != nil {
			health.OverallScore = record.Assessment.Overall
			health.Rating = string(record.Assessment.Rating)
			health.RiskLevel = record.Assessment.RiskLevel
			health.CommitFrequencyScore = record.Assessment.CommitFrequency.Score
			health.CodeChurnScore = record.Assessment.CodeChurn.Score
			health.BranchComplexityScore = record.Assessment.BranchComplexity.Score
		}
		result[i] = health
	}
	return result
}

// optionalMetric returns a pointer to the metric value, or nil when absent.
func optionalMetric(metrics schema.MetricMap, key string) *float64 {
	if f, ok := metrics.Float(key); ok {
		return &f
	}
	return nil
}

// MockFetchScanRuns generates sample ScanRun data for demonstration.
func MockFetchScanRuns() []ScanRun {
	now := time.Now()
	startTime1 := now.Add(-2 * time.Hour)
	endTime1 := now.Add(-1*time.Hour - 30*time.Minute)
	durationMs1 := endTime1.Sub(startTime1).Milliseconds()
	configParams1 := `{"org":"acme","workers":10,"page_size":50}`

	startTime2 := now.Add(-24 * time.Hour)
	endTime2 := now.Add(-23 * time.Hour)
	durationMs2 := endTime2.Sub(startTime2).Milliseconds()
	configParams2 := `{"org":"acme","workers":4,"page_size":25}`

	startTime3 := now.Add(-10 * time.Minute)
	// Note: the third run keeps its completion fields nil to demonstrate nullables

	return []ScanRun{
		{
			RunID:         "0d9f7c1a-demo-run-1",
			Org:           "acme",
			StartedAt:     startTime1,
			FinishedAt:    &endTime1,
			RunDurationMs: &durationMs1,
			PagesScanned:  6,
			ReposScanned:  274,
			ReposFailed:   2,
			ConfigParams:  &configParams1,
		},
		{
			RunID:         "3b2e4f8c-demo-run-2",
			Org:           "acme",
			StartedAt:     startTime2,
			FinishedAt:    &endTime2,
			RunDurationMs: &durationMs2,
			PagesScanned:  6,
			ReposScanned:  270,
			ReposFailed:   0,
			ConfigParams:  &configParams2,
		},
		{
			RunID:         "9a1c5d7e-demo-run-3",
			Org:           "acme",
			StartedAt:     startTime3,
			FinishedAt:    nil, // Still running - nullable field
			RunDurationMs: nil, // Not yet calculated - nullable field
			PagesScanned:  0,
			ReposScanned:  0,
			ReposFailed:   0,
			ConfigParams:  nil, // No config stored - nullable field
		},
	}
}

// MockFetchRepositoryHealth generates sample RepositoryHealth data for demonstration.
func MockFetchRepositoryHealth() []RepositoryHealth {
	now := time.Now()
	commits1, churn1, branches1, contribs1 := 6.4, 220.0, 4.0, 7.0
	commits2, churn2, branches2, contribs2 := 0.8, 950.5, 14.0, 2.0

	return []RepositoryHealth{
		{
			Repository:            "platform-api",
			OverallScore:          18.5,
			Rating:                "good",
			RiskLevel:             "Low Risk",
			CommitFrequencyScore:  84.0,
			CodeChurnScore:        78.0,
			BranchComplexityScore: 88.0,
			AvgWeeklyCommits:      &commits1,
			WeeklyChurn:           &churn1,
			BranchCount:           &branches1,
			ContributorCount:      &contribs1,
			MetricsJSON:           `{"derived.avg_weekly_commits":6.4,"hosting.branch_count":4}`,
			LastUpdated:           now.Add(-1 * time.Hour),
		},
		{
			Repository:            "legacy-batch",
			OverallScore:          71.2,
			Rating:                "below_average",
			RiskLevel:             "High Risk",
			CommitFrequencyScore:  22.0,
			CodeChurnScore:        31.0,
			BranchComplexityScore: 35.0,
			AvgWeeklyCommits:      &commits2,
			WeeklyChurn:           &churn2,
			BranchCount:           &branches2,
			ContributorCount:      &contribs2,
			MetricsJSON:           `{"derived.avg_weekly_commits":0.8,"hosting.branch_count":14}`,
			LastUpdated:           now.Add(-1 * time.Hour),
		},
		{
			Repository:            "archived-tool",
			OverallScore:          100.0,
			Rating:                "below_average",
			RiskLevel:             "High Risk",
			CommitFrequencyScore:  0.0,
			CodeChurnScore:        0.0,
			BranchComplexityScore: 0.0,
			AvgWeeklyCommits:      nil, // Hosting data absent - nullable field
			WeeklyChurn:           nil,
			BranchCount:           nil,
			ContributorCount:      nil,
			MetricsJSON:           `{"meta.hosting_present":false}`,
			LastUpdated:           now.Add(-1 * time.Hour),
		},
	}
}
