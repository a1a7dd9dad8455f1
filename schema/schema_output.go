package schema

// EnrichedRepositoryRecord adds presentation data to a RepositoryRecord.
type EnrichedRepositoryRecord struct {
	Rank      int    `json:"rank"`
	RiskLevel string `json:"risk_level"`
	RepositoryRecord
}

// RiskLabel returns the record's risk level, or "Unscored" when no assessment
// was produced (for example when the hosting backend had no data).
func (r *RepositoryRecord) RiskLabel() string {
	if r.Assessment == nil {
		return "Unscored"
	}
	return r.Assessment.RiskLevel
}

// EnrichRecords adds rank and risk level to a list of repository records.
// Records are expected worst-first, the order the store lists them.
func EnrichRecords(records []RepositoryRecord) []EnrichedRepositoryRecord {
	output := make([]EnrichedRepositoryRecord, len(records))
	for i, r := range records {
		output[i] = EnrichedRepositoryRecord{
			Rank:             i + 1,
			RiskLevel:        r.RiskLabel(),
			RepositoryRecord: r,
		}
	}
	return output
}

// BuildFleetSummary aggregates stored records into a fleet-level summary.
// Unscored records count toward Repositories but not toward the average or
// the rating buckets. WorstRepos keeps up to worstN names in the order
// given; pass records worst-first for a meaningful list.
func BuildFleetSummary(records []RepositoryRecord, worstN int) FleetSummary {
	summary := FleetSummary{
		Repositories: len(records),
		ByRating:     make(map[Rating]int),
		ByRiskLevel:  make(map[string]int),
	}

	var total float64
	scored := 0
	for _, r := range records {
		if r.Assessment == nil {
			continue
		}
		scored++
		total += r.Assessment.Overall
		summary.ByRating[r.Assessment.Rating]++
		summary.ByRiskLevel[r.Assessment.RiskLevel]++
		if len(summary.WorstRepos) < worstN {
			summary.WorstRepos = append(summary.WorstRepos, r.Repository)
		}
	}
	if scored > 0 {
		summary.AvgOverall = total / float64(scored)
	}
	return summary
}
