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

// HostingAdapter collects repository activity metrics from the hosting
// backend and doubles as the fleet inventory lister for the scan pipeline.
type HostingAdapter struct {
	org      string
	base     string
	client   contract.RestClient
	pageSize int
	lookback int // days of history to keep from weekly stats
	stale    int // branch age in days beyond which a branch counts as stale

	now func() time.Time
}

var (
	_ contract.SourceAdapter    = (*HostingAdapter)(nil)
	_ contract.RepositoryLister = (*HostingAdapter)(nil)
)

// NewHostingAdapter builds the hosting adapter from the validated config.
func NewHostingAdapter(cfg *contract.Config, client contract.RestClient) *HostingAdapter {
	return &HostingAdapter{
		org:      cfg.Org,
		base:     cfg.Hosting.BaseURL,
		client:   client,
		pageSize: cfg.PageSize,
		lookback: cfg.LookbackDays,
		stale:    cfg.StaleDays,
		now:      time.Now,
	}
}

// Source identifies the adapter and its metric key prefix.
func (a *HostingAdapter) Source() schema.Source {
	return schema.HostingSource
}

// ListPage fetches one page of the org repository listing. A page smaller
// than the configured page size means the listing is exhausted.
func (a *HostingAdapter) ListPage(ctx context.Context, page int) ([]schema.RepositoryHandle, bool, error) {
	params := url.Values{
		"per_page": {strconv.Itoa(a.pageSize)},
		"page":     {strconv.Itoa(page)},
	}
	var items []struct {
		Name string `json:"name"`
	}
	listURL := fmt.Sprintf("%s/orgs/%s/repos", a.base, url.PathEscape(a.org))
	if _, err := fetchJSON(ctx, a.client, listURL, params, &items); err != nil {
		return nil, false, fmt.Errorf("listing repositories page %d: %w", page, err)
	}

	handles := make([]schema.RepositoryHandle, 0, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		handles = append(handles, schema.RepositoryHandle{Name: item.Name, Page: page})
	}
	return handles, len(items) < a.pageSize, nil
}

// Collect assembles the hosting slice of a repository's metrics: repo stats,
// commit and churn history, branch shape, contributor effort and pull
// request flow. Each group degrades independently so one flaky stats
// endpoint never blanks the rest.
func (a *HostingAdapter) Collect(ctx context.Context, repo string) (schema.PartialMetricRecord, error) {
	c := newCollection(schema.HostingSource, repo)
	steps := []struct {
		name string
		root bool
		fn   func() error
	}{
		{"repository stats", true, func() error { return a.fetchRepoStats(ctx, c) }},
		{"last commit", false, func() error { return a.fetchLastCommit(ctx, c) }},
		{"commit activity", false, func() error { return a.fetchCommitActivity(ctx, c) }},
		{"code frequency", false, func() error { return a.fetchCodeFrequency(ctx, c) }},
		{"branches", false, func() error { return a.fetchBranches(ctx, c) }},
		{"contributor stats", false, func() error { return a.fetchContributorStats(ctx, c) }},
		{"pull requests", false, func() error { return a.fetchPullRequests(ctx, c) }},
	}
	for _, s := range steps {
		if err := c.run(s.name, s.root, s.fn); err != nil {
			return schema.PartialMetricRecord{}, err
		}
	}
	return c.record(a.now()), nil
}

func (a *HostingAdapter) repoURL(repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s", a.base, url.PathEscape(a.org), url.PathEscape(repo))
}

// lookbackWeeks converts the configured lookback window to whole weeks.
func (a *HostingAdapter) lookbackWeeks() int {
	return (a.lookback + 6) / 7
}

func (a *HostingAdapter) fetchRepoStats(ctx context.Context, c *collection) error {
	var stats struct {
		StargazersCount int    `json:"stargazers_count"`
		ForksCount      int    `json:"forks_count"`
		WatchersCount   int    `json:"watchers_count"`
		OpenIssuesCount int    `json:"open_issues_count"`
		Size            int    `json:"size"`
		Language        string `json:"language"`
		DefaultBranch   string `json:"default_branch"`
		Archived        bool   `json:"archived"`
		PushedAt        string `json:"pushed_at"`
	}
	if _, err := fetchJSON(ctx, a.client, a.repoURL(c.repo), nil, &stats); err != nil {
		return err
	}

	language := stats.Language
	if language == "" {
		language = "Unknown"
	}
	c.metrics["hosting.stars"] = stats.StargazersCount
	c.metrics["hosting.forks"] = stats.ForksCount
	c.metrics["hosting.watchers"] = stats.WatchersCount
	c.metrics["hosting.open_issues"] = stats.OpenIssuesCount
	c.metrics["hosting.size_kb"] = stats.Size
	c.metrics["hosting.language"] = language
	c.metrics["hosting.default_branch"] = stats.DefaultBranch
	c.metrics["hosting.archived"] = stats.Archived
	if stats.PushedAt != "" {
		c.metrics["hosting.pushed_at"] = stats.PushedAt
	}
	return nil
}

func (a *HostingAdapter) fetchLastCommit(ctx context.Context, c *collection) error {
	var commits []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	params := url.Values{"per_page": {"1"}}
	if _, err := fetchJSON(ctx, a.client, a.repoURL(c.repo)+"/commits", params, &commits); err != nil {
		return err
	}
	if len(commits) == 0 {
		return nil
	}

	last := commits[0]
	c.metrics["hosting.last_commit_sha"] = last.SHA
	c.metrics["hosting.last_commit_author"] = last.Commit.Author.Name
	c.metrics["hosting.last_commit_date"] = last.Commit.Author.Date
	if msg, _, _ := strings.Cut(last.Commit.Message, "\n"); msg != "" {
		c.metrics["hosting.last_commit_message"] = msg
	}
	return nil
}

func (a *HostingAdapter) fetchCommitActivity(ctx context.Context, c *collection) error {
	var activity []struct {
		Total int `json:"total"`
	}
	if _, err := fetchJSON(ctx, a.client, a.repoURL(c.repo)+"/stats/commit_activity", nil, &activity); err != nil {
		return err
	}
	if len(activity) == 0 {
		return nil
	}

	// The backend reports up to a year of weekly buckets, oldest first.
	// Keep only the lookback window.
	if n := a.lookbackWeeks(); len(activity) > n {
		activity = activity[len(activity)-n:]
	}
	weekly := make([]float64, len(activity))
	for i, week := range activity {
		weekly[i] = float64(week.Total)
	}
	c.metrics[schema.MetricWeeklyCommits] = weekly
	return nil
}

func (a *HostingAdapter) fetchCodeFrequency(ctx context.Context, c *collection) error {
	// Rows are [weekTimestamp, additions, deletions] with deletions negative.
	var rows [][]float64
	if _, err := fetchJSON(ctx, a.client, a.repoURL(c.repo)+"/stats/code_frequency", nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if n := a.lookbackWeeks(); len(rows) > n {
		rows = rows[len(rows)-n:]
	}

	var additions, deletions float64
	weeks := 0
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		additions += row[1]
		if row[2] < 0 {
			deletions += -row[2]
		} else {
			deletions += row[2]
		}
		weeks++
	}
	if weeks == 0 {
		return nil
	}
	c.metrics[schema.MetricTotalAdditions] = additions
	c.metrics[schema.MetricTotalDeletions] = deletions
	c.metrics[schema.MetricWeeksObserved] = weeks
	return nil
}

func (a *HostingAdapter) fetchBranches(ctx context.Context, c *collection) error {
	branchesURL := a.repoURL(c.repo) + "/branches"
	params := url.Values{"per_page": {strconv.Itoa(a.pageSize)}}

	var names []string
	next := branchesURL
	for next != "" {
		var page []struct {
			Name string `json:"name"`
		}
		n, err := fetchJSON(ctx, a.client, next, params, &page)
		if err != nil {
			return err
		}
		for _, b := range page {
			names = append(names, b.Name)
		}
		next = n
		params = nil // follow-up links carry their own query
	}
	if len(names) == 0 {
		return nil
	}

	var maxAge, staleCount int
	now := a.now()
	for _, name := range names {
		var detail struct {
			Commit struct {
				Committer struct {
					Date string `json:"date"`
				} `json:"committer"`
			} `json:"commit"`
		}
		_, err := fetchJSON(ctx, a.client, branchesURL+"/"+url.PathEscape(name), nil, &detail)
		if abort := c.classify("branch detail", err); abort != nil {
			return abort
		}
		if err != nil || detail.Commit.Committer.Date == "" {
			continue
		}
		last, err := time.Parse(contract.DateTimeFormat, detail.Commit.Committer.Date)
		if err != nil {
			continue
		}
		age := int(now.Sub(last).Hours() / 24)
		if age > maxAge {
			maxAge = age
		}
		if age > a.stale {
			staleCount++
		}
	}

	c.metrics[schema.MetricBranchCount] = len(names)
	c.metrics[schema.MetricMaxBranchAgeDays] = maxAge
	c.metrics[schema.MetricStaleBranchCount] = staleCount
	return nil
}

func (a *HostingAdapter) fetchContributorStats(ctx context.Context, c *collection) error {
	var contributors []struct {
		Total  int `json:"total"`
		Author struct {
			Login string `json:"login"`
		} `json:"author"`
		Weeks []struct {
			Additions int `json:"a"`
			Deletions int `json:"d"`
		} `json:"weeks"`
	}
	if _, err := fetchJSON(ctx, a.client, a.repoURL(c.repo)+"/stats/contributors", nil, &contributors); err != nil {
		return err
	}
	if len(contributors) == 0 {
		return nil
	}

	var totalCommits, totalChanges int
	var topLogin string
	topCommits := -1
	for _, contributor := range contributors {
		totalCommits += contributor.Total
		for _, week := range contributor.Weeks {
			totalChanges += week.Additions + week.Deletions
		}
		if contributor.Total > topCommits {
			topCommits = contributor.Total
			topLogin = contributor.Author.Login
		}
	}

	c.metrics[schema.MetricContributorCount] = len(contributors)
	c.metrics[schema.MetricTotalCommits] = totalCommits
	c.metrics[schema.MetricTotalLineChanges] = totalChanges
	if topLogin != "" {
		c.metrics["hosting.top_contributor"] = topLogin
		c.metrics["hosting.top_contributor_commits"] = topCommits
	}
	return nil
}

// pullRequestPayload is the slice of the PR object the flow metrics need.
type pullRequestPayload struct {
	Number         int    `json:"number"`
	State          string `json:"state"`
	CreatedAt      string `json:"created_at"`
	ClosedAt       string `json:"closed_at"`
	MergedAt       string `json:"merged_at"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	Comments       int    `json:"comments"`
	ReviewComments int    `json:"review_comments"`
	User           struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (a *HostingAdapter) fetchPullRequests(ctx context.Context, c *collection) error {
	params := url.Values{
		"state":    {"all"},
		"per_page": {strconv.Itoa(a.pageSize)},
	}

	var pulls []pullRequestPayload
	next := a.repoURL(c.repo) + "/pulls"
	for next != "" {
		var page []pullRequestPayload
		n, err := fetchJSON(ctx, a.client, next, params, &page)
		if err != nil {
			return err
		}
		pulls = append(pulls, page...)
		next = n
		params = nil
	}

	summarizePulls(c.metrics, pulls, a.now())
	return nil
}

// summarizePulls computes the pull request flow metrics: cycle times per
// bucket, size histogram, comment density and author spread. Open PRs get a
// running cycle time measured against now.
func summarizePulls(metrics schema.MetricMap, pulls []pullRequestPayload, now time.Time) {
	buckets := map[string][]float64{}
	sizes := map[string]int{"small": 0, "medium": 0, "large": 0, "xlarge": 0}
	authors := map[string]struct{}{}
	var comments, linesChanged float64
	var openCount, closedCount, mergedCount int

	for _, pr := range pulls {
		cycle, ok := prCycleHours(pr, now)
		if ok {
			buckets["total"] = append(buckets["total"], cycle)
		}
		switch {
		case pr.State == "closed":
			closedCount++
			if ok {
				buckets["closed"] = append(buckets["closed"], cycle)
			}
			if pr.MergedAt != "" {
				mergedCount++
				if ok {
					buckets["merged"] = append(buckets["merged"], cycle)
				}
			}
		default:
			openCount++
			if ok {
				buckets["open"] = append(buckets["open"], cycle)
			}
		}

		sizes[prSizeBucket(pr.Additions+pr.Deletions)]++
		comments += float64(pr.Comments + pr.ReviewComments)
		linesChanged += float64(pr.Additions + pr.Deletions)
		if pr.User.Login != "" {
			authors[pr.User.Login] = struct{}{}
		}
	}

	metrics[schema.MetricPRTotal] = len(pulls)
	metrics["hosting.pr_open"] = openCount
	metrics["hosting.pr_closed"] = closedCount
	metrics["hosting.pr_merged"] = mergedCount
	metrics["hosting.pr_size_small"] = sizes["small"]
	metrics["hosting.pr_size_medium"] = sizes["medium"]
	metrics["hosting.pr_size_large"] = sizes["large"]
	metrics["hosting.pr_size_xlarge"] = sizes["xlarge"]
	metrics["hosting.pr_authors"] = len(authors)

	density := 0.0
	if linesChanged > 0 {
		density = comments / linesChanged
	}
	metrics[schema.MetricPRCommentDensity] = density

	for bucket, cycles := range buckets {
		if len(cycles) == 0 {
			continue
		}
		suffix := ""
		if bucket != "total" {
			suffix = "_" + bucket
		}
		metrics["hosting.pr_avg_cycle_hours"+suffix] = mean(cycles)
		metrics["hosting.pr_median_cycle_hours"+suffix] = schema.Median(cycles)
	}
}

// prCycleHours is the time from PR creation to close, or to now while the
// PR is still open.
func prCycleHours(pr pullRequestPayload, now time.Time) (float64, bool) {
	created, err := time.Parse(contract.DateTimeFormat, pr.CreatedAt)
	if err != nil {
		return 0, false
	}
	end := now
	if pr.State == "closed" && pr.ClosedAt != "" {
		if closed, err := time.Parse(contract.DateTimeFormat, pr.ClosedAt); err == nil {
			end = closed
		}
	}
	return end.Sub(created).Hours(), true
}

func prSizeBucket(linesChanged int) string {
	switch {
	case linesChanged < 100:
		return "small"
	case linesChanged < 500:
		return "medium"
	case linesChanged < 1000:
		return "large"
	default:
		return "xlarge"
	}
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
