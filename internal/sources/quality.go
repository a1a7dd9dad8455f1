package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// measureKeys is the full measure set requested from the static analysis
// backend in one call.
const measureKeys = "bugs,vulnerabilities,code_smells,coverage,duplicated_lines_density," +
	"security_rating,reliability_rating,sqale_rating,ncloc,cognitive_complexity,sqale_index"

// QualityAdapter collects static analysis metrics: issue counts, coverage,
// ratings, technical debt and the quality gate verdict.
type QualityAdapter struct {
	org    string
	base   string
	client contract.RestClient
	now    func() time.Time
}

var _ contract.SourceAdapter = (*QualityAdapter)(nil)

// NewQualityAdapter builds the static analysis adapter from the validated config.
func NewQualityAdapter(cfg *contract.Config, client contract.RestClient) *QualityAdapter {
	return &QualityAdapter{
		org:    cfg.Org,
		base:   cfg.Quality.BaseURL,
		client: client,
		now:    time.Now,
	}
}

// Source identifies the adapter and its metric key prefix.
func (a *QualityAdapter) Source() schema.Source {
	return schema.QualitySource
}

// projectKey maps a repository name to its analysis project key. Projects
// are registered as "<org>_<repo>" lowercased.
func (a *QualityAdapter) projectKey(repo string) string {
	return strings.ToLower(a.org + "_" + repo)
}

// Collect gathers the static analysis slice for one repository. A project
// missing from the backend yields an absent record.
func (a *QualityAdapter) Collect(ctx context.Context, repo string) (schema.PartialMetricRecord, error) {
	c := newCollection(schema.QualitySource, repo)
	key := a.projectKey(repo)
	steps := []struct {
		name string
		root bool
		fn   func() error
	}{
		{"measures", true, func() error { return a.fetchMeasures(ctx, c, key) }},
		{"quality gate", false, func() error { return a.fetchQualityGate(ctx, c, key) }},
		{"last analysis", false, func() error { return a.fetchLastAnalysis(ctx, c, key) }},
	}
	for _, s := range steps {
		if err := c.run(s.name, s.root, s.fn); err != nil {
			return schema.PartialMetricRecord{}, err
		}
	}
	return c.record(a.now()), nil
}

func (a *QualityAdapter) fetchMeasures(ctx context.Context, c *collection, key string) error {
	params := url.Values{
		"component":  {key},
		"metricKeys": {measureKeys},
	}
	var payload struct {
		Component struct {
			Measures []struct {
				Metric string `json:"metric"`
				Value  string `json:"value"`
			} `json:"measures"`
		} `json:"component"`
	}
	if _, err := fetchJSON(ctx, a.client, a.base+"/api/measures/component", params, &payload); err != nil {
		return err
	}

	measures := make(map[string]string, len(payload.Component.Measures))
	for _, m := range payload.Component.Measures {
		measures[m.Metric] = m.Value
	}

	c.metrics["quality.bugs"] = measureFloat(measures, "bugs")
	c.metrics["quality.vulnerabilities"] = measureFloat(measures, "vulnerabilities")
	c.metrics["quality.code_smells"] = measureFloat(measures, "code_smells")
	c.metrics[schema.MetricCoverage] = measureFloat(measures, "coverage")
	c.metrics["quality.duplicated_lines_density"] = measureFloat(measures, "duplicated_lines_density")
	c.metrics["quality.ncloc"] = measureFloat(measures, "ncloc")
	c.metrics["quality.cognitive_complexity"] = measureFloat(measures, "cognitive_complexity")
	c.metrics["quality.security_rating"] = schema.SonarGrade(measures["security_rating"])
	c.metrics["quality.reliability_rating"] = schema.SonarGrade(measures["reliability_rating"])
	c.metrics["quality.maintainability_rating"] = schema.SonarGrade(measures["sqale_rating"])

	debtMinutes := int(measureFloat(measures, "sqale_index"))
	c.metrics["quality.tech_debt_minutes"] = debtMinutes
	c.metrics["quality.tech_debt"] = schema.FormatTechDebt(debtMinutes)
	return nil
}

func (a *QualityAdapter) fetchQualityGate(ctx context.Context, c *collection, key string) error {
	params := url.Values{"projectKey": {key}}
	var payload struct {
		ProjectStatus struct {
			Status string `json:"status"`
		} `json:"projectStatus"`
	}
	if _, err := fetchJSON(ctx, a.client, a.base+"/api/qualitygates/project_status", params, &payload); err != nil {
		return err
	}
	status := payload.ProjectStatus.Status
	if status == "" {
		status = "N/A"
	}
	c.metrics[schema.MetricQualityGate] = status
	return nil
}

func (a *QualityAdapter) fetchLastAnalysis(ctx context.Context, c *collection, key string) error {
	params := url.Values{
		"project": {key},
		"ps":      {"1"},
	}
	var payload struct {
		Analyses []struct {
			Date string `json:"date"`
		} `json:"analyses"`
	}
	if _, err := fetchJSON(ctx, a.client, a.base+"/api/project_analyses/search", params, &payload); err != nil {
		return err
	}
	if len(payload.Analyses) > 0 && payload.Analyses[0].Date != "" {
		c.metrics["quality.last_analysis"] = payload.Analyses[0].Date
	}
	return nil
}

// measureFloat parses one measure value; the backend reports every value as
// a string.
func measureFloat(measures map[string]string, key string) float64 {
	v, ok := measures[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
