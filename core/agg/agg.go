// Package agg merges per-source partial records into unified repository
// records and derives the computed activity and effort metrics.
package agg

import (
	"math"
	"time"

	"github.com/fleetscan/fleetscan/schema"
)

const (
	// linesPerEstimatedHour converts total line changes into effort hours.
	linesPerEstimatedHour = 100

	// billableRatio scales estimated hours into billable hours.
	billableRatio = 1.0
)

// Merge combines the partial records collected for one repository into a
// unified RepositoryRecord. Metric maps union in the fixed adapter order; a
// key collision resolves to the later source in that order, which keeps the
// result deterministic regardless of fetch completion order. Sources are
// additionally summarized as meta presence flags so downstream consumers
// never have to probe for missing prefixes.
func Merge(repository string, partials []schema.PartialMetricRecord, now time.Time) schema.RepositoryRecord {
	// 1. Index partials by source; the last record per source wins.
	bySource := make(map[schema.Source]schema.PartialMetricRecord, len(partials))
	for _, partial := range partials {
		bySource[partial.Source] = partial
	}

	// 2. Union metric maps in declared order and record coverage flags.
	metrics := make(schema.MetricMap)
	for _, source := range schema.AdapterOrder {
		partial, ok := bySource[source]
		present := ok && partial.Present
		if present {
			metrics.Merge(partial.Metrics)
		}
		metrics[schema.MetaKey(string(source)+"_present")] = present
		if ok && partial.Degraded {
			metrics[schema.MetaKey(string(source)+"_degraded")] = true
		}
	}

	// 3. Derive activity and effort metrics from the merged hosting history.
	deriveActivity(metrics)
	deriveEffort(metrics)

	return schema.RepositoryRecord{
		Repository:  repository,
		Metrics:     metrics,
		LastUpdated: now,
	}
}

// deriveActivity computes the weekly commit statistics and churn metrics the
// scoring engine consumes. Metrics whose inputs are missing stay unset
// rather than defaulting, so scoring can distinguish "quiet" from "unknown".
func deriveActivity(metrics schema.MetricMap) {
	if weekly, ok := metrics.FloatSlice(schema.MetricWeeklyCommits); ok && len(weekly) > 0 {
		avg := mean(weekly)
		metrics[schema.MetricAvgWeeklyCommits] = avg
		metrics[schema.MetricCommitVariance] = populationVariance(weekly, avg)
	}

	additions, haveAdds := metrics.Float(schema.MetricTotalAdditions)
	deletions, haveDels := metrics.Float(schema.MetricTotalDeletions)
	if !haveAdds || !haveDels {
		return
	}
	if weeks := metrics.FloatOr(schema.MetricWeeksObserved, 0); weeks > 0 {
		metrics[schema.MetricWeeklyChurn] = (additions + deletions) / weeks
	}
	metrics[schema.MetricDeletionRatio] = deletions / math.Max(1, additions)
}

// deriveEffort estimates engineering effort from total line changes.
func deriveEffort(metrics schema.MetricMap) {
	changes, ok := metrics.Float(schema.MetricTotalLineChanges)
	if !ok {
		return
	}
	estimated := changes / linesPerEstimatedHour
	metrics[schema.MetricEstimatedHours] = estimated
	metrics[schema.MetricBillableHours] = estimated * billableRatio
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// populationVariance is mean((x_i - mean)^2) over all buckets. The divisor is
// the full bucket count, never the Bessel-corrected n-1; score parity with
// historic assessments depends on this.
func populationVariance(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
