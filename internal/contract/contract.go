// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"net/url"
	"time"

	"github.com/fleetscan/fleetscan/schema"
)

// RestClient is the fetch surface that source adapters consume. Implementations
// pace requests against backend quotas and classify HTTP failures into the
// shared error taxonomy, so adapter code never inspects status codes.
type RestClient interface {
	// Fetch performs one GET and returns the response body plus the follow-up
	// page URL from the pagination headers ("" when the listing is exhausted).
	Fetch(ctx context.Context, rawURL string, params url.Values) (body []byte, next string, err error)
}

// SourceAdapter collects the metric slice one backend knows about a repository.
type SourceAdapter interface {
	// Source identifies the adapter and its dotted metric key prefix.
	Source() schema.Source

	// Collect gathers every metric the backend has for one repository. A
	// repository that is not onboarded in the backend yields Present=false and
	// a nil error. Transient failures that outlive their retries yield a
	// degraded record holding whatever was fetched first. A non-nil error is
	// fatal for the whole scan (authorization, misconfiguration).
	Collect(ctx context.Context, repo string) (schema.PartialMetricRecord, error)
}

// RepositoryLister pages through the fleet inventory in stable order.
type RepositoryLister interface {
	// ListPage fetches one page of repository handles. short is true when the
	// page came back empty or smaller than the page size, meaning the listing
	// is exhausted.
	ListPage(ctx context.Context, page int) (handles []schema.RepositoryHandle, short bool, err error)
}

// CheckpointStore persists scan progress between runs.
// This allows the pipeline to be tested against an in-memory fake.
type CheckpointStore interface {
	// Load returns the saved checkpoint, or nil when none exists.
	Load() (*schema.ScanCheckpoint, error)

	// Save durably replaces the checkpoint. Readers must never observe a
	// partially written document.
	Save(cp *schema.ScanCheckpoint) error

	// Clear removes the checkpoint. Called only after a fully successful scan.
	Clear() error
}

// ResultSink stores scored repository records and scan run audit rows.
type ResultSink interface {
	// UpsertRecords inserts or replaces one row per repository (last write wins)
	UpsertRecords(records []schema.RepositoryRecord) error

	// GetLatest returns the stored record for one repository, or nil when absent
	GetLatest(repo string) (*schema.RepositoryRecord, error)

	// ListRepositories returns every stored repository name in sorted order
	ListRepositories() ([]string, error)

	// ListRecords returns every stored record, worst overall score first
	ListRecords() ([]schema.RepositoryRecord, error)

	// BeginScanRun creates a new scan run row and returns its unique ID
	BeginScanRun(org string, startTime time.Time, configParams map[string]any) (string, error)

	// EndScanRun updates the scan run row with completion data
	EndScanRun(runID string, endTime time.Time, pages, scanned, failed int) error

	// ListScanRuns returns every recorded scan run, oldest first
	ListScanRuns() ([]schema.ScanRunRecord, error)

	// GetStatus returns status information about the result store
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// ResultManager hands out the shared ResultSink instance.
type ResultManager interface {
	// GetResultStore returns the results ResultSink.
	GetResultStore() ResultSink
}
