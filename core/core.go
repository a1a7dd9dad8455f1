// Package core has core logic for scanning, scoring and reporting.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetscan/fleetscan/internal/checkpoint"
	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/outwriter"
	"github.com/fleetscan/fleetscan/internal/restclient"
	"github.com/fleetscan/fleetscan/internal/sink"
	"github.com/fleetscan/fleetscan/internal/sources"
	"github.com/fleetscan/fleetscan/schema"
)

// ExecutorFunc defines the function signature for executing different scan commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config) error

// newBackendClient builds the rate limited client for one backend. Quota
// pacing is per backend, so every adapter gets its own client.
func newBackendClient(cfg *contract.Config, source schema.Source) *restclient.Client {
	backend := cfg.Backend(source)
	return restclient.New(string(source), restclient.Options{
		Token:      backend.Token,
		Retries:    cfg.Retries,
		RateBuffer: cfg.RateBuffer,
	})
}

// buildAdapters wires one adapter per configured backend. The hosting adapter
// comes first and doubles as the fleet lister; unconfigured backends get no
// adapter, so their sources are recorded as absent during aggregation.
func buildAdapters(cfg *contract.Config) (*sources.HostingAdapter, []contract.SourceAdapter) {
	hosting := sources.NewHostingAdapter(cfg, newBackendClient(cfg, schema.HostingSource))
	adapters := []contract.SourceAdapter{hosting}
	if cfg.Quality.Configured() {
		adapters = append(adapters, sources.NewQualityAdapter(cfg, newBackendClient(cfg, schema.QualitySource)))
	}
	if cfg.Composition.Configured() {
		adapters = append(adapters, sources.NewCompositionAdapter(cfg, newBackendClient(cfg, schema.CompositionSource)))
	}
	if cfg.Testing.Configured() {
		adapters = append(adapters, sources.NewTestingAdapter(cfg, newBackendClient(cfg, schema.TestingSource)))
	}
	return hosting, adapters
}

// ExecuteFleetScan runs the scan pipeline over the configured organization
// and prints the fleet report when it completes. It serves as the main entry
// point for the 'scan' command.
func ExecuteFleetScan(ctx context.Context, cfg *contract.Config) error {
	start := time.Now()
	if err := cfg.ValidateForScan(); err != nil {
		return err
	}
	resultSink := sink.Manager.GetResultStore()
	if resultSink == nil {
		return errors.New("result store is not initialized")
	}
	contract.LogScanHeader(cfg)

	hosting, adapters := buildAdapters(cfg)
	store := checkpoint.NewFileStore(cfg.CheckpointFile)
	pipeline := NewScanPipeline(cfg, hosting, adapters, store, resultSink)

	outcome, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if outcome.Failed > 0 {
		if cfg.UseEmojis {
			fmt.Printf("⚠️ Excluded %d repositories after collection failures\n", outcome.Failed)
		} else {
			fmt.Printf("Excluded %d repositories after collection failures\n", outcome.Failed)
		}
	}

	ranked := rankRecords(outcome.Records, cfg.ResultLimit)
	duration := time.Since(start)
	return outwriter.PrintFleetReport(ranked, cfg, duration)
}

// ExecuteFleetReport renders stored scan results without touching any
// backend. It serves as the main entry point for the 'report' command; when
// cfg.Repository is set the output narrows to that repository's detail view.
func ExecuteFleetReport(_ context.Context, cfg *contract.Config) error {
	start := time.Now()
	store := sink.Manager.GetResultStore()
	if store == nil {
		return errors.New("result store is not initialized")
	}

	if cfg.Repository != "" {
		record, err := store.GetLatest(cfg.Repository)
		if err != nil {
			return fmt.Errorf("loading %s from the result store: %w", cfg.Repository, err)
		}
		if record == nil {
			return fmt.Errorf("no stored results for repository %s; run a scan first", cfg.Repository)
		}
		return outwriter.PrintRepositoryDetail(record, cfg)
	}

	records, err := store.ListRecords()
	if err != nil {
		return fmt.Errorf("listing stored results: %w", err)
	}
	if len(records) == 0 {
		return errors.New("no stored scan results; run a scan first")
	}
	if len(records) > cfg.ResultLimit {
		records = records[:cfg.ResultLimit]
	}
	return outwriter.PrintFleetReport(records, cfg, time.Since(start))
}
