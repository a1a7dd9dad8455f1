package schema

import "time"

// StoreStatus summarizes the state of the configured result store.
type StoreStatus struct {
	Backend      string           `json:"backend"`
	Connected    bool             `json:"connected"`
	Repositories int64            `json:"repositories"`
	LastUpdated  time.Time        `json:"last_updated"`
	TableCounts  map[string]int64 `json:"table_counts,omitempty"`
}

// ScanRunRecord captures one pipeline run for auditing. FinishedAt is nil
// while the run is in flight or was aborted before completion was recorded.
type ScanRunRecord struct {
	RunID        string     `json:"run_id"`
	Org          string     `json:"org"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	PagesScanned int        `json:"pages_scanned"`
	ReposScanned int        `json:"repos_scanned"`
	ReposFailed  int        `json:"repos_failed"`
	ConfigParams string     `json:"config_params,omitempty"`
}

// FleetSummary aggregates the stored fleet for reporting surfaces.
type FleetSummary struct {
	Repositories int            `json:"repositories"`
	AvgOverall   float64        `json:"avg_overall_score"`
	ByRating     map[Rating]int `json:"by_rating"`
	ByRiskLevel  map[string]int `json:"by_risk_level"`
	WorstRepos   []string       `json:"worst_repos,omitempty"`
}
