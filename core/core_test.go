package core

import (
	"context"
	"testing"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildAdapters tests adapter wiring from the validated config.
func TestBuildAdapters(t *testing.T) {
	t.Run("hosting only", func(t *testing.T) {
		cfg := &contract.Config{
			Org:     "acme",
			Hosting: contract.BackendConfig{BaseURL: "https://git.acme.test/api/v3"},
		}

		hosting, adapters := buildAdapters(cfg)
		require.NotNil(t, hosting)
		require.Len(t, adapters, 1)
		assert.Equal(t, schema.HostingSource, adapters[0].Source())
	})

	t.Run("all backends configured", func(t *testing.T) {
		cfg := &contract.Config{
			Org:         "acme",
			Hosting:     contract.BackendConfig{BaseURL: "https://git.acme.test/api/v3"},
			Quality:     contract.BackendConfig{BaseURL: "https://sonar.acme.test"},
			Composition: contract.BackendConfig{BaseURL: "https://iq.acme.test"},
			Testing:     contract.BackendConfig{BaseURL: "https://zephyr.acme.test"},
		}

		_, adapters := buildAdapters(cfg)
		require.Len(t, adapters, 4)

		order := make([]schema.Source, 0, len(adapters))
		for _, a := range adapters {
			order = append(order, a.Source())
		}
		assert.Equal(t, []schema.Source{
			schema.HostingSource,
			schema.QualitySource,
			schema.CompositionSource,
			schema.TestingSource,
		}, order)
	})
}

// TestExecuteFleetScanValidation tests the fatal configuration paths of the
// scan entry point.
func TestExecuteFleetScanValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing org", func(t *testing.T) {
		cfg := &contract.Config{
			Hosting: contract.BackendConfig{BaseURL: "https://git.acme.test/api/v3"},
		}
		err := ExecuteFleetScan(ctx, cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "org")
	})

	t.Run("missing hosting backend", func(t *testing.T) {
		cfg := &contract.Config{Org: "acme"}
		err := ExecuteFleetScan(ctx, cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "hosting.url")
	})
}

// TestExecuteFleetReportUninitializedStore tests that reporting fails cleanly
// when no result store was set up.
func TestExecuteFleetReportUninitializedStore(t *testing.T) {
	cfg := &contract.Config{ResultLimit: contract.DefaultResultLimit}
	err := ExecuteFleetReport(context.Background(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "result store is not initialized")
}
