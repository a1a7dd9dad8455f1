package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

const (
	// testPageSize is the fixed page size of the test management search API.
	testPageSize = 50

	// executionWindowDays bounds the execution history considered recent.
	executionWindowDays = 30
)

// TestingAdapter collects test management metrics: case inventory with
// automation coverage and the recent execution record.
type TestingAdapter struct {
	org    string
	base   string
	client contract.RestClient
	now    func() time.Time
}

var _ contract.SourceAdapter = (*TestingAdapter)(nil)

// NewTestingAdapter builds the test management adapter from the validated config.
func NewTestingAdapter(cfg *contract.Config, client contract.RestClient) *TestingAdapter {
	return &TestingAdapter{
		org:    cfg.Org,
		base:   cfg.Testing.BaseURL,
		client: client,
		now:    time.Now,
	}
}

// Source identifies the adapter and its metric key prefix.
func (a *TestingAdapter) Source() schema.Source {
	return schema.TestingSource
}

// projectKey maps a repository name to its test project key. Test projects
// are registered as "<ORG>_<REPO>" uppercased.
func (a *TestingAdapter) projectKey(repo string) string {
	return strings.ToUpper(a.org + "_" + repo)
}

// Collect gathers the test management slice for one repository. A project
// with no test cases at all is treated as not onboarded.
func (a *TestingAdapter) Collect(ctx context.Context, repo string) (schema.PartialMetricRecord, error) {
	c := newCollection(schema.TestingSource, repo)
	key := a.projectKey(repo)
	steps := []struct {
		name string
		root bool
		fn   func() error
	}{
		{"test cases", true, func() error { return a.fetchTestCases(ctx, c, key) }},
		{"test executions", false, func() error { return a.fetchExecutions(ctx, c, key) }},
	}
	for _, s := range steps {
		if err := c.run(s.name, s.root, s.fn); err != nil {
			return schema.PartialMetricRecord{}, err
		}
	}
	return c.record(a.now()), nil
}

func (a *TestingAdapter) fetchTestCases(ctx context.Context, c *collection, key string) error {
	searchURL := a.base + "/rest/atm/1.0/testcase/search"
	query := fmt.Sprintf("projectKey = %q", key)

	var cases []struct {
		Automated bool   `json:"automatedTestCase"`
		Priority  string `json:"priority"`
		Type      string `json:"type"`
	}
	for startAt := 0; ; startAt += testPageSize {
		params := url.Values{
			"query":      {query},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(testPageSize)},
		}
		var payload struct {
			Results []struct {
				Automated bool   `json:"automatedTestCase"`
				Priority  string `json:"priority"`
				Type      string `json:"type"`
			} `json:"results"`
		}
		if _, err := fetchJSON(ctx, a.client, searchURL, params, &payload); err != nil {
			return err
		}
		cases = append(cases, payload.Results...)
		if len(payload.Results) < testPageSize {
			break
		}
	}
	if len(cases) == 0 {
		// The backend answers empty searches for unknown projects, so an
		// empty inventory is the absence signal here.
		return &contract.NotFoundError{Backend: string(schema.TestingSource), URL: searchURL}
	}

	automated := 0
	priorities := map[string]int{}
	types := map[string]int{}
	for _, tc := range cases {
		if tc.Automated {
			automated++
		}
		priority := tc.Priority
		if priority == "" {
			priority = "Medium"
		}
		priorities[priority]++

		testType := tc.Type
		if testType == "" {
			testType = "Functional"
		}
		types[testType]++
	}

	total := len(cases)
	c.metrics["testing.total_cases"] = total
	c.metrics["testing.automated"] = automated
	c.metrics["testing.manual"] = total - automated
	c.metrics[schema.MetricAutomationCover] = float64(automated) / float64(total) * 100
	c.metrics["testing.priority_high"] = priorities["High"]
	c.metrics["testing.priority_medium"] = priorities["Medium"]
	c.metrics["testing.priority_low"] = priorities["Low"]
	for testType, count := range types {
		c.metrics["testing.type_"+typeSlug(testType)] = count
	}
	return nil
}

func (a *TestingAdapter) fetchExecutions(ctx context.Context, c *collection, key string) error {
	searchURL := a.base + "/rest/atm/1.0/testexecution/search"
	since := a.now().AddDate(0, 0, -executionWindowDays).Format("2006-01-02")
	query := fmt.Sprintf("projectKey = %q AND executedOn >= %q", key, since)

	var executions []struct {
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		ExecutionTime float64 `json:"executionTime"`
	}
	for startAt := 0; ; startAt += testPageSize {
		params := url.Values{
			"query":      {query},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(testPageSize)},
		}
		var payload struct {
			Results []struct {
				Status struct {
					Name string `json:"name"`
				} `json:"status"`
				ExecutionTime float64 `json:"executionTime"`
			} `json:"results"`
		}
		if _, err := fetchJSON(ctx, a.client, searchURL, params, &payload); err != nil {
			return err
		}
		executions = append(executions, payload.Results...)
		if len(payload.Results) < testPageSize {
			break
		}
	}

	var passed, failed, blocked int
	var totalTime float64
	for _, execution := range executions {
		switch strings.ToLower(execution.Status.Name) {
		case "pass":
			passed++
		case "fail":
			failed++
		case "blocked":
			blocked++
		}
		totalTime += execution.ExecutionTime
	}

	c.metrics["testing.executions_30d"] = len(executions)
	c.metrics["testing.passed"] = passed
	c.metrics["testing.failed"] = failed
	c.metrics["testing.blocked"] = blocked

	successRate := 0.0
	if completed := passed + failed; completed > 0 {
		successRate = float64(passed) / float64(completed) * 100
	}
	c.metrics[schema.MetricExecSuccessRate] = successRate

	avgTime := 0.0
	if len(executions) > 0 {
		avgTime = totalTime / float64(len(executions))
	}
	c.metrics["testing.avg_execution_minutes"] = avgTime
	return nil
}

// typeSlug turns a test type label into a metric key fragment.
func typeSlug(testType string) string {
	return strings.ReplaceAll(strings.ToLower(testType), " ", "_")
}
