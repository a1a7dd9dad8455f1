package agg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscan/fleetscan/schema"
)

func mergeClock() time.Time {
	return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
}

func partial(source schema.Source, present bool, metrics schema.MetricMap) schema.PartialMetricRecord {
	return schema.PartialMetricRecord{
		Source:    source,
		Present:   present,
		Metrics:   metrics,
		FetchedAt: mergeClock(),
	}
}

func TestMergeUnionsInAdapterOrder(t *testing.T) {
	// Input order is reversed on purpose: the declared adapter order, not
	// completion order, must decide collisions.
	partials := []schema.PartialMetricRecord{
		partial(schema.TestingSource, true, schema.MetricMap{
			"shared.key":          "testing",
			"testing.total_cases": 12.0,
		}),
		partial(schema.HostingSource, true, schema.MetricMap{
			"shared.key":    "hosting",
			"hosting.stars": 3.0,
		}),
	}

	record := Merge("widget-api", partials, mergeClock())

	assert.Equal(t, "widget-api", record.Repository)
	assert.Equal(t, mergeClock(), record.LastUpdated)
	winner, _ := record.Metrics.String("shared.key")
	assert.Equal(t, "testing", winner, "the later source in adapter order wins collisions")
	assert.Equal(t, 3.0, record.Metrics.FloatOr("hosting.stars", -1))
	assert.Equal(t, 12.0, record.Metrics.FloatOr("testing.total_cases", -1))
}

func TestMergeCoverageFlags(t *testing.T) {
	partials := []schema.PartialMetricRecord{
		partial(schema.HostingSource, true, schema.MetricMap{"hosting.stars": 1.0}),
		partial(schema.QualitySource, false, schema.MetricMap{"quality.bugs": 9.0}),
		{
			Source:   schema.CompositionSource,
			Present:  true,
			Degraded: true,
			Metrics:  schema.MetricMap{"sca.critical_issues": 0.0},
		},
		// No testing record at all.
	}

	record := Merge("widget-api", partials, mergeClock())

	m := record.Metrics
	tests := []struct {
		key  string
		want bool
	}{
		{"meta.hosting_present", true},
		{"meta.quality_present", false}, // absent backend
		{"meta.sca_present", true},
		{"meta.sca_degraded", true},
		{"meta.testing_present", false}, // no record reads the same as absent
	}
	for _, tt := range tests {
		got, ok := m.Bool(tt.key)
		require.True(t, ok, "flag %s must always be set", tt.key)
		assert.Equal(t, tt.want, got, "flag %s", tt.key)
	}

	_, ok := m.Float("quality.bugs")
	assert.False(t, ok, "metrics from absent sources must not leak into the record")
	_, ok = m.Bool("meta.hosting_degraded")
	assert.False(t, ok, "degraded flags appear only when set")
}

func TestMergeDerivesActivity(t *testing.T) {
	partials := []schema.PartialMetricRecord{
		partial(schema.HostingSource, true, schema.MetricMap{
			schema.MetricWeeklyCommits:    []float64{5, 4, 6, 5},
			schema.MetricTotalAdditions:   400.0,
			schema.MetricTotalDeletions:   100.0,
			schema.MetricWeeksObserved:    2.0,
			schema.MetricTotalLineChanges: 1000.0,
		}),
	}

	record := Merge("widget-api", partials, mergeClock())

	m := record.Metrics
	assert.Equal(t, 5.0, m.FloatOr(schema.MetricAvgWeeklyCommits, -1))
	assert.Equal(t, 0.5, m.FloatOr(schema.MetricCommitVariance, -1))
	assert.Equal(t, 250.0, m.FloatOr(schema.MetricWeeklyChurn, -1))
	assert.Equal(t, 0.25, m.FloatOr(schema.MetricDeletionRatio, -1))
	assert.Equal(t, 10.0, m.FloatOr(schema.MetricEstimatedHours, -1))
	assert.Equal(t, 10.0, m.FloatOr(schema.MetricBillableHours, -1))
}

func TestMergeDerivedGaps(t *testing.T) {
	tests := []struct {
		name    string
		metrics schema.MetricMap
		absent  []string
		want    map[string]float64
	}{
		{
			name:    "no hosting history derives nothing",
			metrics: schema.MetricMap{"hosting.stars": 1.0},
			absent: []string{
				schema.MetricAvgWeeklyCommits,
				schema.MetricWeeklyChurn,
				schema.MetricDeletionRatio,
				schema.MetricEstimatedHours,
			},
		},
		{
			name: "missing deletions blocks churn and ratio",
			metrics: schema.MetricMap{
				schema.MetricTotalAdditions: 400.0,
				schema.MetricWeeksObserved:  2.0,
			},
			absent: []string{schema.MetricWeeklyChurn, schema.MetricDeletionRatio},
		},
		{
			name: "zero observed weeks blocks churn but not the ratio",
			metrics: schema.MetricMap{
				schema.MetricTotalAdditions: 400.0,
				schema.MetricTotalDeletions: 100.0,
				schema.MetricWeeksObserved:  0.0,
			},
			absent: []string{schema.MetricWeeklyChurn},
			want:   map[string]float64{schema.MetricDeletionRatio: 0.25},
		},
		{
			name: "zero additions guard against division by zero",
			metrics: schema.MetricMap{
				schema.MetricTotalAdditions: 0.0,
				schema.MetricTotalDeletions: 50.0,
				schema.MetricWeeksObserved:  1.0,
			},
			want: map[string]float64{
				schema.MetricDeletionRatio: 50.0,
				schema.MetricWeeklyChurn:   50.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := Merge("widget-api", []schema.PartialMetricRecord{
				partial(schema.HostingSource, true, tt.metrics),
			}, mergeClock())

			for _, key := range tt.absent {
				_, ok := record.Metrics.Float(key)
				assert.False(t, ok, "%s must stay unset", key)
			}
			for key, want := range tt.want {
				assert.Equal(t, want, record.Metrics.FloatOr(key, -1), key)
			}
		})
	}
}

func TestPopulationVariance(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single bucket", []float64{3}, 0},
		{"steady weeks", []float64{5, 4, 6, 5}, 0.5}, // Bessel correction would give 2/3
		{"spread weeks", []float64{2, 4, 6, 8}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, populationVariance(tt.xs, mean(tt.xs)))
		})
	}
}
