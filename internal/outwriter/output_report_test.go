package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportConfig(output schema.OutputMode, outputFile string) *contract.Config {
	return &contract.Config{
		Precision:    1,
		Output:       output,
		OutputFile:   outputFile,
		Width:        120,
		StoreBackend: schema.SQLiteBackend,
	}
}

func TestWriteReportTable(t *testing.T) {
	cfg := reportConfig(schema.TextOut, "")
	fmtFloat, fmtCount := createFormatters(cfg.Precision)

	var buf bytes.Buffer
	err := writeReportTable(&buf, reportRecords(), cfg, fmtFloat, fmtCount, 2*time.Second)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "legacy-batch")
	assert.Contains(t, out, "platform-api")
	assert.Contains(t, out, "71.2")
	assert.Contains(t, out, "High Risk")
	assert.Contains(t, out, "Showing 2 repositories")
	assert.Contains(t, out, "fleet avg aberrancy: 44.9")
	assert.Contains(t, out, "Store backend: sqlite")
}

func TestWriteReportTableUnscoredRow(t *testing.T) {
	cfg := reportConfig(schema.TextOut, "")
	fmtFloat, fmtCount := createFormatters(cfg.Precision)
	records := []schema.RepositoryRecord{
		{
			Repository:  "archived-tool",
			Metrics:     schema.MetricMap{schema.MetaKey("hosting_present"): false},
			LastUpdated: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	err := writeReportTable(&buf, records, cfg, fmtFloat, fmtCount, time.Second)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "archived-tool")
	assert.Contains(t, out, "Showing 1 repositories")
}

func TestPrintFleetReportJSONToFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.json")
	cfg := reportConfig(schema.JSONOut, outputPath)

	err := PrintFleetReport(reportRecords(), cfg, time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var result []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result, 2)
	assert.Equal(t, float64(1), result[0]["rank"])
	assert.Equal(t, "legacy-batch", result[0]["repository"])
}

func TestPrintFleetReportCSVToFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.csv")
	cfg := reportConfig(schema.CSVOut, outputPath)

	err := PrintFleetReport(reportRecords(), cfg, time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rank,repository")
	assert.Contains(t, string(data), "legacy-batch")
}

func TestPrintFleetReportParquetToFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.parquet")
	cfg := reportConfig(schema.ParquetOut, outputPath)

	err := PrintFleetReport(reportRecords(), cfg, time.Second)
	require.NoError(t, err)

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPrintFleetReportParquetRequiresFile(t *testing.T) {
	cfg := reportConfig(schema.ParquetOut, "")

	err := PrintFleetReport(reportRecords(), cfg, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output-file is required")
}
