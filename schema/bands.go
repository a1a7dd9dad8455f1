package schema

// Industry threshold tables. These are static configuration: each table is
// contiguous, ordered least severe first, and classification falls back to
// the last (most severe) band when no band matches.

// CommitBand defines the weekly commit expectations for one rating.
type CommitBand struct {
	Rating        Rating
	MinWeekly     float64
	MaxWeekly     float64
	VarianceLimit float64
	Description   string
}

// ChurnBand defines the weekly churn expectations for one rating.
type ChurnBand struct {
	Rating             Rating
	WeeklyChurnLimit   float64
	DeletionRatioLimit float64
	Description        string
}

// BranchBand defines the branching expectations for one rating.
type BranchBand struct {
	Rating      Rating
	MaxBranches float64
	MaxAgeDays  float64
	Description string
}

// AberrancyBand classifies the composite aberrancy score. Bounds are
// half-open [Lower, Upper); the final band also includes its upper bound so
// the table covers the full 0-100 range.
type AberrancyBand struct {
	Rating      Rating
	Lower       float64
	Upper       float64
	Description string
	RiskLevel   string
}

// CommitBands holds commit frequency standards in severity order.
var CommitBands = []CommitBand{
	{RatingExcellent, 3, 15, 5, "Consistent, regular commits indicating continuous integration practices"},
	{RatingGood, 2, 20, 10, "Regular commits with acceptable variance"},
	{RatingAverage, 1, 25, 15, "Moderate commit frequency with some inconsistency"},
	{RatingBelowAverage, 0.5, 30, 20, "Irregular commit patterns indicating potential process issues"},
}

// ChurnBands holds code churn standards in severity order.
var ChurnBands = []ChurnBand{
	{RatingExcellent, 200, 0.8, "Low churn indicating stable, well-planned development"},
	{RatingGood, 500, 1.0, "Moderate churn with balanced additions/deletions"},
	{RatingAverage, 1000, 1.2, "Notable churn but within acceptable limits"},
	{RatingBelowAverage, 2000, 1.5, "High churn indicating potential stability issues"},
}

// BranchBands holds branch complexity standards in severity order.
var BranchBands = []BranchBand{
	{RatingExcellent, 5, 7, "Clean branch strategy with quick integration"},
	{RatingGood, 8, 14, "Well-managed branches with timely merging"},
	{RatingAverage, 12, 30, "Acceptable branch count with some stale branches"},
	{RatingBelowAverage, 15, 60, "Too many branches or long-lived feature branches"},
}

// AberrancyBands classifies the composite score; lower is healthier.
var AberrancyBands = []AberrancyBand{
	{RatingExcellent, 0, 20, "Minimal deviation from best practices", "Low Risk"},
	{RatingGood, 20, 40, "Minor deviations from best practices", "Moderate Risk"},
	{RatingAverage, 40, 60, "Notable deviations from best practices", "Medium Risk"},
	{RatingBelowAverage, 60, 100, "Significant deviations from best practices", "High Risk"},
}
