package schema

// DimensionAssessment is the scored outcome for one health dimension
// (commit frequency, code churn or branch complexity). Score is 0-100 where
// higher is healthier; Detail carries the raw measurement that produced it.
type DimensionAssessment struct {
	Score       float64 `json:"score"`
	Rating      Rating  `json:"rating"`
	Description string  `json:"description"`
	Detail      string  `json:"detail,omitempty"`
}

// AberrancyAssessment is the full scoring result for one repository.
// Overall is 0-100 where lower is healthier (it measures deviation from
// practice standards, not health). RiskFactors is informational and may
// repeat the same concern phrased from different signals.
type AberrancyAssessment struct {
	CommitFrequency  DimensionAssessment `json:"commit_frequency"`
	CodeChurn        DimensionAssessment `json:"code_churn"`
	BranchComplexity DimensionAssessment `json:"branch_complexity"`
	Overall          float64             `json:"overall_score"`
	Rating           Rating              `json:"rating"`
	Description      string              `json:"description"`
	RiskLevel        string              `json:"risk_level"`
	RiskFactors      []string            `json:"risk_factors,omitempty"`
}
