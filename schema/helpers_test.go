package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricMapFloat(t *testing.T) {
	m := MetricMap{
		"native":  3.5,
		"int":     int(7),
		"int64":   int64(9),
		"number":  json.Number("4.25"),
		"text":    "not a number",
		"float32": float32(2),
	}

	tests := []struct {
		name   string
		key    string
		want   float64
		wantOK bool
	}{
		{"native float64", "native", 3.5, true},
		{"int coerced", "int", 7, true},
		{"int64 coerced", "int64", 9, true},
		{"json.Number coerced", "number", 4.25, true},
		{"float32 coerced", "float32", 2, true},
		{"string rejected", "text", 0, false},
		{"missing key", "absent", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Float(tt.key)
			assert.Equal(t, tt.wantOK, ok, "Float(%q) presence should match", tt.key)
			assert.Equal(t, tt.want, got, "Float(%q) value should match", tt.key)
		})
	}
}

func TestMetricMapFloatOr(t *testing.T) {
	m := MetricMap{"present": 12.0}

	assert.Equal(t, 12.0, m.FloatOr("present", -1), "FloatOr should return the stored value")
	assert.Equal(t, -1.0, m.FloatOr("absent", -1), "FloatOr should fall back for missing keys")
}

func TestMetricMapFloatSlice(t *testing.T) {
	// Native slices and the []any slices JSON decoding produces should both
	// round-trip to []float64.
	m := MetricMap{
		"native":  []float64{1, 2, 3},
		"decoded": []any{1.0, 2.5, float64(4)},
		"mixed":   []any{1.0, "two"},
		"scalar":  5.0,
	}

	got, ok := m.FloatSlice("native")
	assert.True(t, ok, "native []float64 should be accepted")
	assert.Equal(t, []float64{1, 2, 3}, got)

	got, ok = m.FloatSlice("decoded")
	assert.True(t, ok, "decoded []any of floats should be accepted")
	assert.Equal(t, []float64{1, 2.5, 4}, got)

	_, ok = m.FloatSlice("mixed")
	assert.False(t, ok, "slice with non-numeric elements should be rejected")

	_, ok = m.FloatSlice("scalar")
	assert.False(t, ok, "scalar value should be rejected")
}

func TestMetricMapSurvivesJSONRoundTrip(t *testing.T) {
	// The checkpoint file serializes records as JSON, so every accessor must
	// still work on a map that has been encoded and decoded.
	src := MetricMap{
		"hosting.branch_count":   int(6),
		"hosting.weekly_commits": []float64{4, 5, 6},
		"quality.quality_gate":   "OK",
		"meta.hosting_present":   true,
	}

	raw, err := json.Marshal(src)
	require.NoError(t, err)

	var dst MetricMap
	require.NoError(t, json.Unmarshal(raw, &dst))

	f, ok := dst.Float("hosting.branch_count")
	assert.True(t, ok, "numeric metric should survive the round trip")
	assert.Equal(t, 6.0, f)

	s, ok := dst.FloatSlice("hosting.weekly_commits")
	assert.True(t, ok, "series metric should survive the round trip")
	assert.Equal(t, []float64{4, 5, 6}, s)

	gate, ok := dst.String("quality.quality_gate")
	assert.True(t, ok)
	assert.Equal(t, "OK", gate)

	b, ok := dst.Bool("meta.hosting_present")
	assert.True(t, ok)
	assert.True(t, b)
}

func TestMetricMapMerge(t *testing.T) {
	dst := MetricMap{"a": 1.0, "b": 2.0}
	dst.Merge(MetricMap{"b": 20.0, "c": 3.0})

	assert.Equal(t, MetricMap{"a": 1.0, "b": 20.0, "c": 3.0}, dst, "Merge should overwrite existing keys and add new ones")
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},                              // no samples
		{"single", []float64{7}, 7},                    // one sample
		{"odd count", []float64{9, 1, 5}, 5},           // middle of sorted order
		{"even count", []float64{4, 1, 3, 2}, 2.5},     // mean of the middle pair
		{"unsorted input", []float64{10, 2, 8, 4}, 6},  // input order must not matter
		{"duplicates", []float64{5, 5, 5, 5}, 5},       // identical samples
		{"negatives", []float64{-3, -1, -2, -10}, -2.5}, // negative values
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Median(tt.values)
			assert.InDelta(t, tt.want, got, 1e-9, "Median(%v) should match", tt.values)
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "Median must sort a copy, not the caller's slice")
}

func TestFormatTechDebt(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		want    string
	}{
		{"zero", 0, "0min"},
		{"under an hour", 45, "45min"},
		{"exact hour", 60, "1h 0min"},
		{"hours and minutes", 200, "3h 20min"},
		{"just under a day", 1439, "23h 59min"},
		{"exact day", 1440, "1d 0h"},
		{"days and hours", 3120, "2d 4h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTechDebt(tt.minutes)
			assert.Equal(t, tt.want, got, "FormatTechDebt(%d) should match", tt.minutes)
		})
	}
}

func TestSonarGrade(t *testing.T) {
	tests := []struct {
		rating string
		want   string
	}{
		{"1", "A"},
		{"2", "B"},
		{"3", "C"},
		{"4", "D"},
		{"5", "E"},
		{"1.0", "A"},   // API sometimes returns float-formatted ratings
		{"3.0", "C"},   // same, mid-scale
		{"", "N/A"},    // missing rating
		{"6", "N/A"},   // out of range
		{"A", "N/A"},   // already a letter
		{"1.5", "N/A"}, // fractional ratings are not defined
	}

	for _, tt := range tests {
		t.Run(tt.rating, func(t *testing.T) {
			got := SonarGrade(tt.rating)
			assert.Equal(t, tt.want, got, "SonarGrade(%q) should match", tt.rating)
		})
	}
}
