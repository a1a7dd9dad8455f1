// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteFleetReport prints stored repository records using the configured output format.
func (ow *OutWriter) WriteFleetReport(records []schema.RepositoryRecord, cfg *contract.Config, duration time.Duration) error {
	return PrintFleetReport(records, cfg, duration)
}

// WriteRepositoryDetail prints a single repository record using the configured output format.
func (ow *OutWriter) WriteRepositoryDetail(record *schema.RepositoryRecord, cfg *contract.Config) error {
	return PrintRepositoryDetail(record, cfg)
}
