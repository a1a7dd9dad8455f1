package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/core/agg"
	"github.com/fleetscan/fleetscan/core/score"
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// ScanPipeline walks the fleet page by page: list one page of repositories,
// collect metrics from every backend with a bounded worker pool, merge and
// score each repository, then checkpoint before advancing. Pages progress
// strictly in order, so a resumed scan never reprocesses checkpointed work.
type ScanPipeline struct {
	cfg      *contract.Config
	lister   contract.RepositoryLister
	adapters []contract.SourceAdapter
	store    contract.CheckpointStore
	sink     contract.ResultSink

	state schema.ScanState
	now   func() time.Time
}

// ScanOutcome summarizes a completed scan.
type ScanOutcome struct {
	Records []schema.RepositoryRecord // full fleet, resumed results included
	Pages   int                       // pages processed and checkpointed by this run
	Scanned int                       // repositories scored by this run
	Failed  int                       // repositories excluded after isolated failures
	Resumed bool                      // a checkpoint restored prior progress
}

// repoOutcome carries one repository's result back from a pool worker.
type repoOutcome struct {
	repo   string
	record schema.RepositoryRecord
	err    error
}

// NewScanPipeline wires a pipeline from its collaborators. Adapters run in
// the given order; on a metric key collision the later adapter wins.
func NewScanPipeline(
	cfg *contract.Config,
	lister contract.RepositoryLister,
	adapters []contract.SourceAdapter,
	store contract.CheckpointStore,
	sink contract.ResultSink,
) *ScanPipeline {
	return &ScanPipeline{
		cfg:      cfg,
		lister:   lister,
		adapters: adapters,
		store:    store,
		sink:     sink,
		state:    schema.StateInit,
		now:      time.Now,
	}
}

// State reports the most recent state the pipeline entered.
func (p *ScanPipeline) State() schema.ScanState {
	return p.state
}

// Run executes the scan to completion and reports the outcome. A fatal
// failure (authorization, configuration, checkpoint IO) aborts the run with
// a nil outcome; the last fully checkpointed page stays on disk, so the next
// run resumes from there instead of rescanning.
func (p *ScanPipeline) Run(ctx context.Context) (*ScanOutcome, error) {
	// --- 1. INIT: restore or discard prior progress ---
	p.state = schema.StateInit
	cursor := 0
	var records []schema.RepositoryRecord
	resumed := false
	if p.cfg.Fresh {
		if err := p.store.Clear(); err != nil {
			return p.abort(err)
		}
	} else {
		cp, err := p.store.Load()
		if err != nil {
			return p.abort(err)
		}
		if cp != nil {
			cursor = cp.Cursor
			records = cp.Results
			resumed = true
		}
	}
	if resumed && !shouldSuppressProgress(ctx) {
		if p.cfg.UseEmojis {
			fmt.Printf("⏩ Resuming after page %d (%d repositories already scored)\n", cursor, len(records))
		} else {
			fmt.Printf("Resuming after page %d (%d repositories already scored)\n", cursor, len(records))
		}
	}

	// --- 2. Begin scan run tracking (warn-only, never blocks the scan) ---
	runID, err := p.sink.BeginScanRun(p.cfg.Org, p.now(), p.cfg.ConfigParams())
	if err != nil {
		contract.LogWarn("Scan run tracking initialization failed", err)
	}

	// --- 3. Page loop: FETCH_PAGE, DISPATCH, MERGE_SCORE, CHECKPOINT ---
	var pages, scanned, failed int
	for {
		p.state = schema.StateFetchPage
		page := cursor + 1
		handles, short, err := p.lister.ListPage(ctx, page)
		if err != nil {
			return p.abort(fmt.Errorf("listing repositories page %d: %w", page, err))
		}

		if len(handles) > 0 {
			if !shouldSuppressProgress(ctx) {
				if p.cfg.UseEmojis {
					fmt.Printf("📄 Page %d: scanning %d repositories...\n", page, len(handles))
				} else {
					fmt.Printf("Page %d: scanning %d repositories...\n", page, len(handles))
				}
			}

			pageRecords, pageFailed, err := p.processPage(ctx, handles)
			if err != nil {
				return p.abort(err)
			}
			records = append(records, pageRecords...)
			scanned += len(pageRecords)
			failed += pageFailed

			// The cursor advances only once the page is durably saved. An IO
			// failure here leaves the previous page as the resume point.
			p.state = schema.StateCheckpoint
			if err := p.store.Save(&schema.ScanCheckpoint{Cursor: page, Results: records}); err != nil {
				return p.abort(err)
			}
			cursor = page
			pages++
		}

		if short || len(handles) == 0 {
			break
		}
	}

	// --- 4. DONE: persist the fleet, then drop the resume state ---
	if err := p.finish(records); err != nil {
		return p.abort(err)
	}
	p.state = schema.StateDone

	// --- 5. End scan run tracking (warn-only) ---
	if runID != "" {
		if err := p.sink.EndScanRun(runID, p.now(), pages, scanned, failed); err != nil {
			contract.LogWarn("Failed to finalize scan run tracking", err)
		}
	}

	return &ScanOutcome{
		Records: records,
		Pages:   pages,
		Scanned: scanned,
		Failed:  failed,
		Resumed: resumed,
	}, nil
}

// processPage scans one page of repositories through a bounded worker pool.
// The pool width caps concurrency; a page larger than the pool queues the
// excess until a worker frees up. A fatal failure cancels the page's sibling
// workers and discards the whole page, keeping the prior checkpoint
// authoritative. Isolated per-repository failures are logged and excluded
// without failing the page.
func (p *ScanPipeline) processPage(ctx context.Context, handles []schema.RepositoryHandle) ([]schema.RepositoryRecord, int, error) {
	p.state = schema.StateDispatch

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handleCh := make(chan schema.RepositoryHandle, len(handles))
	outcomeCh := make(chan repoOutcome, len(handles))

	workers := min(p.cfg.Workers, len(handles))
	if workers < 1 {
		workers = 1
	}

	// Start worker pool
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for h := range handleCh {
				if pageCtx.Err() != nil {
					// The page was cancelled; stop feeding the backends.
					outcomeCh <- repoOutcome{repo: h.Name, err: pageCtx.Err()}
					continue
				}
				record, err := p.scanRepository(pageCtx, h.Name)
				outcomeCh <- repoOutcome{repo: h.Name, record: record, err: err}
				if err != nil && contract.IsFatalScanError(err) {
					cancel()
				}
			}
		})
	}

	// Send handles to the worker channel
	for _, h := range handles {
		handleCh <- h
	}
	close(handleCh)

	// Wait for all workers to finish processing
	wg.Wait()
	close(outcomeCh)

	outcomes := make(map[string]repoOutcome, len(handles))
	for o := range outcomeCh {
		outcomes[o.repo] = o
	}

	// Surface the first fatal failure in listing order.
	for _, h := range handles {
		if o := outcomes[h.Name]; o.err != nil && contract.IsFatalScanError(o.err) {
			return nil, 0, o.err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	// Fold the survivors in listing order so checkpoint documents stay
	// stable from run to run.
	p.state = schema.StateMergeScore
	records := make([]schema.RepositoryRecord, 0, len(handles))
	var failed int
	for _, h := range handles {
		o := outcomes[h.Name]
		if o.err != nil {
			contract.LogWarn(fmt.Sprintf("Excluding %s from this page", h.Name), o.err)
			failed++
			continue
		}
		records = append(records, o.record)
	}
	return records, failed, nil
}

// scanRepository runs every source adapter against one repository, then
// merges the partial records and scores the result.
func (p *ScanPipeline) scanRepository(ctx context.Context, repo string) (schema.RepositoryRecord, error) {
	partials := make([]schema.PartialMetricRecord, 0, len(p.adapters))
	for _, adapter := range p.adapters {
		partial, err := adapter.Collect(ctx, repo)
		if err != nil {
			return schema.RepositoryRecord{}, fmt.Errorf("collecting %s metrics for %s: %w", adapter.Source(), repo, err)
		}
		partials = append(partials, partial)
	}

	record := agg.Merge(repo, partials, p.now())
	assessment := score.Assess(record)
	record.Assessment = &assessment
	return record, nil
}

// finish writes the accumulated fleet to the sink and clears the checkpoint,
// in that order. A failed sink write leaves the checkpoint behind: the next
// run resumes past the final page, sees the listing exhausted and retries
// this step without rescanning anything.
func (p *ScanPipeline) finish(records []schema.RepositoryRecord) error {
	if err := p.sink.UpsertRecords(records); err != nil {
		return fmt.Errorf("persisting %d repository records: %w", len(records), err)
	}
	return p.store.Clear()
}

// abort records the terminal state and surfaces err. The checkpoint is left
// untouched; whatever was last saved is the resume point.
func (p *ScanPipeline) abort(err error) (*ScanOutcome, error) {
	p.state = schema.StateAborted
	return nil, err
}
