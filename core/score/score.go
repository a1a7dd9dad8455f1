// Package score classifies merged repository metrics against the industry
// band tables and produces the composite aberrancy assessment.
package score

import (
	"fmt"
	"math"

	"github.com/fleetscan/fleetscan/schema"
)

// Dimension weights for the composite score. The three weights sum to 1.
const (
	commitWeight = 0.4
	churnWeight  = 0.3
	branchWeight = 0.3

	// riskScoreCutoff is the dimension score below which the dimension's
	// generic risk factor fires.
	riskScoreCutoff = 40
)

// Assess scores one merged repository record. Overall runs 0-100 with lower
// meaning healthier: it measures deviation from practice standards. A
// dimension whose inputs are missing scores zero and rates in the most
// severe band; absent data is maximal deviation, not an error.
func Assess(record schema.RepositoryRecord) schema.AberrancyAssessment {
	m := record.Metrics

	commit, commitRisk := assessCommitFrequency(m)
	churn, churnRisk := assessCodeChurn(m)
	branch, branchRisk := assessBranchComplexity(m)

	overall := 100 - (commit.Score*commitWeight + churn.Score*churnWeight + branch.Score*branchWeight)
	band := ClassifyAberrancy(overall)

	// Generic low-score factors first, then the threshold-specific ones.
	// Duplicated concerns are kept: the factors are informational
	// annotations, not score inputs.
	var factors []string
	if commit.Score < riskScoreCutoff {
		factors = append(factors, "Irregular commit patterns indicating potential process issues")
	}
	if churn.Score < riskScoreCutoff {
		factors = append(factors, "High code churn suggesting potential instability")
	}
	if branch.Score < riskScoreCutoff {
		factors = append(factors, "Complex branching strategy with potential integration challenges")
	}
	if commitRisk != "" {
		factors = append(factors, commitRisk)
	}
	if churnRisk != "" {
		factors = append(factors, churnRisk)
	}
	if branchRisk != "" {
		factors = append(factors, branchRisk)
	}

	return schema.AberrancyAssessment{
		CommitFrequency:  commit,
		CodeChurn:        churn,
		BranchComplexity: branch,
		Overall:          overall,
		Rating:           band.Rating,
		Description:      band.Description,
		RiskLevel:        band.RiskLevel,
		RiskFactors:      factors,
	}
}

// assessCommitFrequency scores commit cadence: a steady, frequent stream
// scores high, a sparse or erratic one low. The variance term dampens the
// score so a repository cramming a month of work into one week cannot buy
// its way up on average alone.
func assessCommitFrequency(m schema.MetricMap) (schema.DimensionAssessment, string) {
	avg, ok := m.Float(schema.MetricAvgWeeklyCommits)
	if !ok {
		band := schema.CommitBands[len(schema.CommitBands)-1]
		return schema.DimensionAssessment{Rating: band.Rating, Description: band.Description}, ""
	}
	variance := m.FloatOr(schema.MetricCommitVariance, 0)

	band := classifyCommit(avg, variance)
	assessment := schema.DimensionAssessment{
		Score:       math.Min(100, (avg*10)/(1+math.Sqrt(variance))),
		Rating:      band.Rating,
		Description: band.Description,
		Detail: fmt.Sprintf(
			"Average commits per week: %.1f (Industry: %.1f), Variance: %.1f (Industry max: %.1f)",
			avg, band.MinWeekly, variance, band.VarianceLimit),
	}

	risk := ""
	if variance > band.VarianceLimit {
		risk = "High variance in commit frequency"
	}
	return assessment, risk
}

// assessCodeChurn scores weekly line turnover against the matched band's
// threshold. The denominator follows the classification on purpose, so the
// same churn reads harsher in a stricter band.
func assessCodeChurn(m schema.MetricMap) (schema.DimensionAssessment, string) {
	churn, ok := m.Float(schema.MetricWeeklyChurn)
	if !ok {
		band := schema.ChurnBands[len(schema.ChurnBands)-1]
		return schema.DimensionAssessment{Rating: band.Rating, Description: band.Description}, ""
	}
	ratio := m.FloatOr(schema.MetricDeletionRatio, 0)

	band := classifyChurn(churn, ratio)
	assessment := schema.DimensionAssessment{
		Score:       math.Max(0, 100-(churn/band.WeeklyChurnLimit)*100),
		Rating:      band.Rating,
		Description: band.Description,
		Detail: fmt.Sprintf(
			"Weekly churn: %.1f lines (Industry max: %.1f), Deletion ratio: %.2f (Industry max: %.2f)",
			churn, band.WeeklyChurnLimit, ratio, band.DeletionRatioLimit),
	}

	risk := ""
	if ratio > band.DeletionRatioLimit {
		risk = "High code deletion ratio"
	}
	return assessment, risk
}

// assessBranchComplexity scores branch shape: count and oldest age each
// contribute half against the matched band's limits.
func assessBranchComplexity(m schema.MetricMap) (schema.DimensionAssessment, string) {
	count, ok := m.Float(schema.MetricBranchCount)
	if !ok {
		band := schema.BranchBands[len(schema.BranchBands)-1]
		return schema.DimensionAssessment{Rating: band.Rating, Description: band.Description}, ""
	}
	maxAge := m.FloatOr(schema.MetricMaxBranchAgeDays, 0)

	band := classifyBranch(count, maxAge)
	assessment := schema.DimensionAssessment{
		Score:       math.Max(0, 100-((count/band.MaxBranches)*50+(maxAge/band.MaxAgeDays)*50)),
		Rating:      band.Rating,
		Description: band.Description,
		Detail: fmt.Sprintf(
			"Active branches: %.0f (Industry max: %.0f), Oldest branch: %.0f days (Industry max: %.0f days)",
			count, band.MaxBranches, maxAge, band.MaxAgeDays),
	}

	risk := ""
	if maxAge > band.MaxAgeDays {
		risk = "Long-lived branches detected"
	}
	return assessment, risk
}

// classifyCommit returns the first band whose weekly range and variance
// limit both contain the measurements. No match falls back to the most
// severe band with its declared thresholds.
func classifyCommit(avg, variance float64) schema.CommitBand {
	for _, band := range schema.CommitBands {
		if avg >= band.MinWeekly && avg <= band.MaxWeekly && variance <= band.VarianceLimit {
			return band
		}
	}
	return schema.CommitBands[len(schema.CommitBands)-1]
}

// classifyChurn returns the first band containing both the weekly churn and
// the deletion ratio, falling back to the most severe band.
func classifyChurn(weeklyChurn, deletionRatio float64) schema.ChurnBand {
	for _, band := range schema.ChurnBands {
		if weeklyChurn <= band.WeeklyChurnLimit && deletionRatio <= band.DeletionRatioLimit {
			return band
		}
	}
	return schema.ChurnBands[len(schema.ChurnBands)-1]
}

// classifyBranch returns the first band containing both the branch count and
// the oldest branch age, falling back to the most severe band.
func classifyBranch(count, maxAgeDays float64) schema.BranchBand {
	for _, band := range schema.BranchBands {
		if count <= band.MaxBranches && maxAgeDays <= band.MaxAgeDays {
			return band
		}
	}
	return schema.BranchBands[len(schema.BranchBands)-1]
}

// ClassifyAberrancy maps a composite score to its band. Bounds are half-open
// [Lower, Upper); any value the table does not cover, including exactly 100,
// collapses to the most severe band so no score is ever unrated.
func ClassifyAberrancy(overall float64) schema.AberrancyBand {
	for _, band := range schema.AberrancyBands {
		if overall >= band.Lower && overall < band.Upper {
			return band
		}
	}
	return schema.AberrancyBands[len(schema.AberrancyBands)-1]
}
