// Package schema holds the shared data model for fleet scanning:
// repository records, partial per-source records, rating bands and the
// checkpoint document.
package schema

import "time"

// RepositoryHandle identifies one repository discovered during listing.
// Immutable once fetched; Page records the listing page it came from.
type RepositoryHandle struct {
	Name string `json:"name"`
	Page int    `json:"page"`
}

// PartialMetricRecord is the output of a single source adapter for a single
// repository. Present is false when the repository simply has no data in that
// backend (not onboarded, 404). Degraded is true when transient failures
// exhausted their retries and the record holds only what was fetched before.
type PartialMetricRecord struct {
	Source    Source    `json:"source"`
	Present   bool      `json:"present"`
	Degraded  bool      `json:"degraded,omitempty"`
	Metrics   MetricMap `json:"metrics"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RepositoryRecord is the unified per-repository entity produced by the
// aggregator. Metrics spans all sources plus derived fields; the sink keeps
// at most one record per repository (upsert, last write wins).
type RepositoryRecord struct {
	Repository  string               `json:"repository"`
	Metrics     MetricMap            `json:"metrics"`
	Assessment  *AberrancyAssessment `json:"assessment,omitempty"`
	LastUpdated time.Time            `json:"last_updated"`
}

// ScanCheckpoint is the durable resume point. Cursor is the next listing page
// to fetch; Results accumulates every record scored so far. Readers must
// ignore unknown fields so a partially upgraded scanner can still resume.
type ScanCheckpoint struct {
	Cursor  int                `json:"cursor"`
	Results []RepositoryRecord `json:"results"`
}

// Metric keys shared across packages. Each adapter owns one dotted prefix;
// the aggregator owns "derived." and "meta.". Keys used by a single package
// stay as literals next to their writer.
const (
	MetricWeeklyCommits     = "hosting.weekly_commits"
	MetricTotalCommits      = "hosting.total_commits"
	MetricTotalAdditions    = "hosting.total_additions"
	MetricTotalDeletions    = "hosting.total_deletions"
	MetricWeeksObserved     = "hosting.weeks_observed"
	MetricBranchCount       = "hosting.branch_count"
	MetricMaxBranchAgeDays  = "hosting.max_branch_age_days"
	MetricStaleBranchCount  = "hosting.stale_branch_count"
	MetricContributorCount  = "hosting.contributor_count"
	MetricTotalLineChanges  = "hosting.total_line_changes"
	MetricPRTotal           = "hosting.pr_total"
	MetricPRCommentDensity  = "hosting.pr_comment_density"
	MetricAvgWeeklyCommits  = "derived.avg_weekly_commits"
	MetricCommitVariance    = "derived.weekly_commit_variance"
	MetricWeeklyChurn       = "derived.weekly_churn"
	MetricDeletionRatio     = "derived.deletion_ratio"
	MetricEstimatedHours    = "derived.estimated_hours"
	MetricBillableHours     = "derived.billable_hours"
	MetricQualityGate       = "quality.quality_gate"
	MetricCoverage          = "quality.coverage"
	MetricSCARiskScore      = "sca.risk_score"
	MetricAutomationCover   = "testing.automation_coverage"
	MetricExecSuccessRate   = "testing.success_rate"
)
