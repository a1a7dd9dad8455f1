package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRunStructTags(t *testing.T) {
	// Verify struct tags are properly defined for parquet schema inference
	scanSchema := parquet.SchemaOf(new(ScanRun))
	require.NotNil(t, scanSchema)

	expectedColumns := []string{
		"run_id",
		"org",
		"started_at",
		"finished_at",
		"run_duration_ms",
		"pages_scanned",
		"repos_scanned",
		"repos_failed",
		"config_params",
	}

	for _, colName := range expectedColumns {
		col, ok := scanSchema.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestRepositoryHealthStructTags(t *testing.T) {
	// Verify struct tags are properly defined for parquet schema inference
	healthSchema := parquet.SchemaOf(new(RepositoryHealth))
	require.NotNil(t, healthSchema)

	expectedColumns := []string{
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
		"metrics_json",
		"last_updated",
	}

	for _, colName := range expectedColumns {
		col, ok := healthSchema.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col, "Column %s should not be nil", colName)
	}
}

func TestWriteScanRunsParquet(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "scan_runs.parquet")

	data := MockFetchScanRuns()
	require.NotEmpty(t, data, "Mock data should not be empty")

	err := WriteScanRunsParquet(data, outputPath)
	require.NoError(t, err, "Writing Parquet file should not produce error")

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should not be empty")

	// Read back and verify data
	file, err := os.Open(outputPath)
	require.NoError(t, err, "Should be able to open output file")
	defer file.Close()

	reader := parquet.NewGenericReader[ScanRun](file)
	defer reader.Close()

	readData := make([]ScanRun, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	assert.Equal(t, len(data), n, "Should read all records")

	// Completed run keeps its completion fields
	assert.Equal(t, data[0].RunID, readData[0].RunID)
	assert.Equal(t, data[0].ReposScanned, readData[0].ReposScanned)
	require.NotNil(t, readData[0].FinishedAt, "FinishedAt should survive the round trip")
	assert.WithinDuration(t, *data[0].FinishedAt, *readData[0].FinishedAt, time.Nanosecond)
	require.NotNil(t, readData[0].RunDurationMs)
	assert.Equal(t, *data[0].RunDurationMs, *readData[0].RunDurationMs)
	require.NotNil(t, readData[0].ConfigParams)
	assert.Equal(t, *data[0].ConfigParams, *readData[0].ConfigParams)

	// In-flight run keeps its nullable fields null
	assert.Nil(t, readData[2].FinishedAt, "FinishedAt should stay nil")
	assert.Nil(t, readData[2].RunDurationMs, "RunDurationMs should stay nil")
	assert.Nil(t, readData[2].ConfigParams, "ConfigParams should stay nil")
}

func TestWriteRepositoryHealthParquet(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "repository_health.parquet")

	data := MockFetchRepositoryHealth()
	require.NotEmpty(t, data, "Mock data should not be empty")

	err := WriteRepositoryHealthParquet(data, outputPath)
	require.NoError(t, err, "Writing Parquet file should not produce error")

	file, err := os.Open(outputPath)
	require.NoError(t, err, "Should be able to open output file")
	defer file.Close()

	reader := parquet.NewGenericReader[RepositoryHealth](file)
	defer reader.Close()

	readData := make([]RepositoryHealth, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	assert.Equal(t, len(data), n, "Should read all records")

	assert.Equal(t, "platform-api", readData[0].Repository)
	assert.InDelta(t, 18.5, readData[0].OverallScore, 0.001)
	assert.Equal(t, "Low Risk", readData[0].RiskLevel)
	require.NotNil(t, readData[0].AvgWeeklyCommits)
	assert.InDelta(t, 6.4, *readData[0].AvgWeeklyCommits, 0.001)

	// Repository with no hosting data keeps its optional metrics null
	assert.Equal(t, "archived-tool", readData[2].Repository)
	assert.Nil(t, readData[2].AvgWeeklyCommits)
	assert.Nil(t, readData[2].BranchCount)
	assert.Contains(t, readData[2].MetricsJSON, "hosting_present")
}

func TestWriteScanRunsParquet_EmptyData(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "empty_scan_runs.parquet")

	err := WriteScanRunsParquet([]ScanRun{}, outputPath)
	require.NoError(t, err, "Writing empty data should not produce error")

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteRepositoryHealthParquet_EmptyData(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "empty_repository_health.parquet")

	err := WriteRepositoryHealthParquet([]RepositoryHealth{}, outputPath)
	require.NoError(t, err, "Writing empty data should not produce error")

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteScanRunsParquet_InvalidPath(t *testing.T) {
	data := MockFetchScanRuns()
	err := WriteScanRunsParquet(data, "/nonexistent/directory/output.parquet")
	require.Error(t, err, "Writing to invalid path should produce error")
}

func TestWriteRepositoryHealthParquet_InvalidPath(t *testing.T) {
	data := MockFetchRepositoryHealth()
	err := WriteRepositoryHealthParquet(data, "/nonexistent/directory/output.parquet")
	require.Error(t, err, "Writing to invalid path should produce error")
}

func TestConvertScanRunRecords(t *testing.T) {
	started := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Minute)
	duration := int64(180000)

	records := []schema.ScanRunRecord{
		{
			RunID:        "run-complete",
			Org:          "acme",
			StartedAt:    started,
			FinishedAt:   &finished,
			DurationMs:   &duration,
			PagesScanned: 5,
			ReposScanned: 210,
			ReposFailed:  1,
			ConfigParams: `{"workers":8}`,
		},
		{
			RunID:     "run-in-flight",
			Org:       "acme",
			StartedAt: started.Add(time.Hour),
		},
	}

	converted := ConvertScanRunRecords(records)
	require.Len(t, converted, 2)

	assert.Equal(t, "run-complete", converted[0].RunID)
	assert.Equal(t, int32(5), converted[0].PagesScanned)
	assert.Equal(t, int32(210), converted[0].ReposScanned)
	require.NotNil(t, converted[0].FinishedAt)
	require.NotNil(t, converted[0].RunDurationMs)
	assert.Equal(t, int64(180000), *converted[0].RunDurationMs)
	require.NotNil(t, converted[0].ConfigParams)
	assert.Equal(t, `{"workers":8}`, *converted[0].ConfigParams)

	// An empty config string becomes a null column, not an empty one
	assert.Nil(t, converted[1].ConfigParams)
	assert.Nil(t, converted[1].FinishedAt)
	assert.Nil(t, converted[1].RunDurationMs)
}

func TestConvertRepositoryRecords(t *testing.T) {
	updated := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	scored := schema.RepositoryRecord{
		Repository: "platform-api",
		Metrics: schema.MetricMap{
			schema.MetricAvgWeeklyCommits: 6.4,
			schema.MetricWeeklyChurn:      220.0,
			schema.MetricBranchCount:      4.0,
			schema.MetricContributorCount: 7.0,
			schema.MetricCoverage:         81.5,
		},
		Assessment: &schema.AberrancyAssessment{
			CommitFrequency:  schema.DimensionAssessment{Score: 84},
			CodeChurn:        schema.DimensionAssessment{Score: 78},
			BranchComplexity: schema.DimensionAssessment{Score: 88},
			Overall:          18.5,
			Rating:           schema.RatingGood,
			RiskLevel:        "Low Risk",
		},
		LastUpdated: updated,
	}
	unscored := schema.RepositoryRecord{
		Repository:  "archived-tool",
		Metrics:     schema.MetricMap{schema.MetaKey("hosting_present"): false},
		LastUpdated: updated,
	}

	converted := ConvertRepositoryRecords([]schema.RepositoryRecord{scored, unscored})
	require.Len(t, converted, 2)

	health := converted[0]
	assert.Equal(t, "platform-api", health.Repository)
	assert.InDelta(t, 18.5, health.OverallScore, 0.001)
	assert.Equal(t, "good", health.Rating)
	assert.Equal(t, "Low Risk", health.RiskLevel)
	assert.InDelta(t, 84.0, health.CommitFrequencyScore, 0.001)
	assert.InDelta(t, 78.0, health.CodeChurnScore, 0.001)
	assert.InDelta(t, 88.0, health.BranchComplexityScore, 0.001)
	require.NotNil(t, health.AvgWeeklyCommits)
	assert.InDelta(t, 6.4, *health.AvgWeeklyCommits, 0.001)
	require.NotNil(t, health.ContributorCount)
	assert.InDelta(t, 7.0, *health.ContributorCount, 0.001)
	assert.Contains(t, health.MetricsJSON, "quality.coverage", "the full metric map rides along as JSON")
	assert.Equal(t, updated, health.LastUpdated)

	bare := converted[1]
	assert.Zero(t, bare.OverallScore)
	assert.Empty(t, bare.Rating)
	assert.Nil(t, bare.AvgWeeklyCommits)
	assert.Nil(t, bare.WeeklyChurn)
	assert.Contains(t, bare.MetricsJSON, "meta.hosting_present")
}

func TestMockFetchScanRuns(t *testing.T) {
	data := MockFetchScanRuns()
	require.NotEmpty(t, data, "Mock data should not be empty")
	assert.GreaterOrEqual(t, len(data), 3, "Should have at least 3 mock records")

	for i, run := range data {
		assert.NotEmpty(t, run.RunID, "Record %d should have RunID", i)
		assert.NotEmpty(t, run.Org, "Record %d should have Org", i)
		assert.False(t, run.StartedAt.IsZero(), "Record %d should have StartedAt", i)
	}

	// The last mock run is still in flight
	last := data[len(data)-1]
	assert.Nil(t, last.FinishedAt)
	assert.Nil(t, last.RunDurationMs)
}

func TestMockFetchRepositoryHealth(t *testing.T) {
	data := MockFetchRepositoryHealth()
	require.NotEmpty(t, data, "Mock data should not be empty")
	assert.GreaterOrEqual(t, len(data), 3, "Should have at least 3 mock records")

	for i, health := range data {
		assert.NotEmpty(t, health.Repository, "Record %d should have Repository", i)
		assert.NotEmpty(t, health.Rating, "Record %d should have Rating", i)
		assert.NotEmpty(t, health.MetricsJSON, "Record %d should have MetricsJSON", i)
		assert.False(t, health.LastUpdated.IsZero(), "Record %d should have LastUpdated", i)
	}
}
