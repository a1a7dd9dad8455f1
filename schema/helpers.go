package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MetricMap is a flat bag of metric values keyed by dotted names
// ("hosting.branch_count", "derived.weekly_churn"). Values survive a JSON
// round trip through the checkpoint file, so numeric accessors accept both
// native Go numbers and the float64/json.Number forms decoding produces.
type MetricMap map[string]any

// Float returns the value for key coerced to float64.
func (m MetricMap) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FloatOr returns the value for key, or fallback when the key is absent or
// not numeric.
func (m MetricMap) FloatOr(key string, fallback float64) float64 {
	if f, ok := m.Float(key); ok {
		return f
	}
	return fallback
}

// String returns the value for key when it is a string.
func (m MetricMap) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value for key when it is a bool.
func (m MetricMap) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// FloatSlice returns the value for key as a []float64. It accepts both the
// native slice and the []any form JSON decoding produces.
func (m MetricMap) FloatSlice(key string) ([]float64, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch s := v.(type) {
	case []float64:
		return s, true
	case []any:
		out := make([]float64, 0, len(s))
		for _, e := range s {
			f, ok := coerceFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Merge copies every entry of src into m, overwriting existing keys.
func (m MetricMap) Merge(src MetricMap) {
	for k, v := range src {
		m[k] = v
	}
}

// Median returns the median of values, averaging the middle pair for even
// lengths. An empty input yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// FormatTechDebt renders a SQALE index in minutes as a compact duration
// ("45min", "3h 20min", "2d 4h").
func FormatTechDebt(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dmin", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
	default:
		return fmt.Sprintf("%dd %dh", minutes/1440, (minutes%1440)/60)
	}
}

// SonarGrade converts a numeric quality rating ("1".."5", sometimes "1.0")
// to its letter grade. Unknown inputs map to "N/A".
func SonarGrade(rating string) string {
	if len(rating) > 2 && rating[len(rating)-2:] == ".0" {
		rating = rating[:len(rating)-2]
	}
	switch rating {
	case "1":
		return "A"
	case "2":
		return "B"
	case "3":
		return "C"
	case "4":
		return "D"
	case "5":
		return "E"
	default:
		return "N/A"
	}
}
