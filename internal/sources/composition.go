package sources

import (
	"context"
	"strings"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// Issue severity weights for the composition risk score.
const (
	criticalWeight = 10
	severeWeight   = 7
	moderateWeight = 4
	lowWeight      = 1
	maxRiskScore   = 100
)

// CompositionAdapter collects software composition analysis metrics from the
// latest policy evaluation report: issue counts by severity, violation
// counts by type and component exposure.
type CompositionAdapter struct {
	base   string
	client contract.RestClient
	now    func() time.Time
}

var _ contract.SourceAdapter = (*CompositionAdapter)(nil)

// NewCompositionAdapter builds the SCA adapter from the validated config.
func NewCompositionAdapter(cfg *contract.Config, client contract.RestClient) *CompositionAdapter {
	return &CompositionAdapter{
		base:   cfg.Composition.BaseURL,
		client: client,
		now:    time.Now,
	}
}

// Source identifies the adapter and its metric key prefix.
func (a *CompositionAdapter) Source() schema.Source {
	return schema.CompositionSource
}

// Collect gathers the composition slice for one repository. Repositories are
// matched to applications by public ID, case-insensitively; a repository
// without an application is absent. An application without an evaluation
// report is present with zeroed counts.
func (a *CompositionAdapter) Collect(ctx context.Context, repo string) (schema.PartialMetricRecord, error) {
	c := newCollection(schema.CompositionSource, repo)

	var appID string
	steps := []struct {
		name string
		root bool
		fn   func() error
	}{
		{"application lookup", true, func() error {
			id, err := a.lookupApplication(ctx, repo)
			appID = id
			return err
		}},
		{"evaluation report", false, func() error { return a.fetchReport(ctx, c, appID) }},
	}
	for _, s := range steps {
		if err := c.run(s.name, s.root, s.fn); err != nil {
			return schema.PartialMetricRecord{}, err
		}
	}
	return c.record(a.now()), nil
}

// lookupApplication resolves a repository name to its application ID. The
// backend has no per-application lookup by public ID, so this walks the
// full application list on every call and lets the rate limited client pace
// the traffic.
func (a *CompositionAdapter) lookupApplication(ctx context.Context, repo string) (string, error) {
	appsURL := a.base + "/api/v2/applications"
	var payload struct {
		Applications []struct {
			ID       string `json:"id"`
			PublicID string `json:"publicId"`
		} `json:"applications"`
	}
	if _, err := fetchJSON(ctx, a.client, appsURL, nil, &payload); err != nil {
		return "", err
	}

	want := strings.ToLower(repo)
	for _, app := range payload.Applications {
		if strings.ToLower(app.PublicID) == want {
			return app.ID, nil
		}
	}
	return "", &contract.NotFoundError{Backend: string(schema.CompositionSource), URL: appsURL}
}

func (a *CompositionAdapter) fetchReport(ctx context.Context, c *collection, appID string) error {
	if appID == "" {
		// The lookup degraded, so there is no application to report on and
		// nothing to publish.
		return nil
	}

	// Defaults stand when the application has never been evaluated.
	c.metrics["sca.critical_issues"] = 0
	c.metrics["sca.severe_issues"] = 0
	c.metrics["sca.moderate_issues"] = 0
	c.metrics["sca.low_issues"] = 0
	c.metrics["sca.policy_violations"] = 0
	c.metrics["sca.security_violations"] = 0
	c.metrics["sca.license_violations"] = 0
	c.metrics["sca.quality_violations"] = 0
	c.metrics["sca.total_components"] = 0
	c.metrics["sca.vulnerable_components"] = 0
	c.metrics["sca.evaluated_components"] = 0
	c.metrics["sca.last_scan"] = "Never"
	c.metrics["sca.policy_action"] = "N/A"
	c.metrics[schema.MetricSCARiskScore] = 0.0

	var report struct {
		SecurityIssues []struct {
			Severity string `json:"severity"`
		} `json:"securityIssues"`
		PolicyViolations []struct {
			Type string `json:"type"`
		} `json:"policyViolations"`
		Components []struct {
			Vulnerabilities []struct {
				Reference string `json:"reference"`
			} `json:"vulnerabilities"`
		} `json:"components"`
		EvaluatedComponents int    `json:"evaluatedComponents"`
		EvaluationDate      string `json:"evaluationDate"`
		PolicyAction        string `json:"policyAction"`
	}
	reportURL := a.base + "/api/v2/reports/applications/" + appID + "/latest"
	if _, err := fetchJSON(ctx, a.client, reportURL, nil, &report); err != nil {
		return err
	}

	severities := map[string]int{}
	for _, issue := range report.SecurityIssues {
		severities[strings.ToUpper(issue.Severity)]++
	}
	violations := map[string]int{}
	for _, violation := range report.PolicyViolations {
		violations[strings.ToUpper(violation.Type)]++
	}
	vulnerable := 0
	for _, component := range report.Components {
		if len(component.Vulnerabilities) > 0 {
			vulnerable++
		}
	}

	c.metrics["sca.critical_issues"] = severities["CRITICAL"]
	c.metrics["sca.severe_issues"] = severities["SEVERE"]
	c.metrics["sca.moderate_issues"] = severities["MODERATE"]
	c.metrics["sca.low_issues"] = severities["LOW"]
	c.metrics["sca.policy_violations"] = len(report.PolicyViolations)
	c.metrics["sca.security_violations"] = violations["SECURITY"]
	c.metrics["sca.license_violations"] = violations["LICENSE"]
	c.metrics["sca.quality_violations"] = violations["QUALITY"]
	c.metrics["sca.total_components"] = len(report.Components)
	c.metrics["sca.vulnerable_components"] = vulnerable
	c.metrics["sca.evaluated_components"] = report.EvaluatedComponents
	if report.EvaluationDate != "" {
		c.metrics["sca.last_scan"] = report.EvaluationDate
	}
	if report.PolicyAction != "" {
		c.metrics["sca.policy_action"] = report.PolicyAction
	}
	c.metrics[schema.MetricSCARiskScore] = riskScore(
		severities["CRITICAL"], severities["SEVERE"], severities["MODERATE"], severities["LOW"])
	return nil
}

// riskScore weighs issue counts by severity and caps the result at 100.
func riskScore(critical, severe, moderate, low int) float64 {
	total := float64(critical*criticalWeight + severe*severeWeight + moderate*moderateWeight + low*lowWeight)
	return min(total, maxRiskScore)
}
