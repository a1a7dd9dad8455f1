// Package sources implements the four backend adapters that collect metric
// slices for a repository: hosting, static analysis, software composition
// analysis and test management. Every adapter fetches through the shared
// rate limited client and reports absence and degradation through the
// partial record flags instead of errors.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// collection accumulates one adapter's partial record for one repository.
type collection struct {
	source   schema.Source
	repo     string
	metrics  schema.MetricMap
	absent   bool
	degraded bool
}

func newCollection(source schema.Source, repo string) *collection {
	return &collection{
		source:  source,
		repo:    repo,
		metrics: make(schema.MetricMap),
	}
}

// run executes one fetch step and classifies its failure. A missing root
// resource marks the whole repository absent from the backend and skips the
// remaining steps. Transient exhaustion and malformed payloads degrade the
// record but keep collecting. Authorization failures and cancellation are
// the only errors returned to the caller.
func (c *collection) run(name string, root bool, fn func() error) error {
	if c.absent {
		return nil
	}
	err := fn()
	if root && contract.IsNotFound(err) {
		c.absent = true
		return nil
	}
	if abort := c.classify(name, err); abort != nil {
		return fmt.Errorf("%s %s for %s: %w", c.source, name, c.repo, abort)
	}
	return nil
}

// classify folds one failure into the collection: absence of a sub-resource
// is skipped, transient exhaustion and malformed payloads degrade the record,
// and abort-worthy errors come back to the caller.
func (c *collection) classify(name string, err error) error {
	switch {
	case err == nil, contract.IsNotFound(err):
		return nil
	case contract.IsFatalScanError(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		c.degrade(name, err)
		return nil
	}
}

// degrade records that some of the backend's data could not be fetched.
func (c *collection) degrade(name string, err error) {
	c.degraded = true
	contract.LogWarn(fmt.Sprintf("%s %s for %s", c.source, name, c.repo), err)
}

func (c *collection) record(at time.Time) schema.PartialMetricRecord {
	return schema.PartialMetricRecord{
		Source:    c.source,
		Present:   !c.absent,
		Degraded:  c.degraded && !c.absent,
		Metrics:   c.metrics,
		FetchedAt: at,
	}
}

// fetchJSON performs one paced GET and decodes the JSON body into v. The
// returned next URL is non-empty while the backend reports more pages.
func fetchJSON(ctx context.Context, client contract.RestClient, rawURL string, params url.Values, v any) (string, error) {
	body, next, err := client.Fetch(ctx, rawURL, params)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return "", fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return next, nil
}
