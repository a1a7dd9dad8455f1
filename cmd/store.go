package cmd

import (
	"fmt"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/internal/sink"
	"github.com/fleetscan/fleetscan/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store operations.
// This is used by commands that need store access without full shared setup.
func storeSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get store-related config values
	backendStr := viper.GetString("store-backend")
	connStr := viper.GetString("store-db-connect")

	// Handle empty backend as NoneBackend
	var backend schema.DatabaseBackend
	if backendStr == "" {
		backend = schema.NoneBackend
	} else {
		backend = schema.DatabaseBackend(backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Get output-related config values (used by export command)
	outputFile := viper.GetString("output-file")

	// Initialize the store with the loaded config
	if err := sink.InitResults(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OutputFile = outputFile

	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize the store or create tables,
// allowing migrations to run on a fresh database.
func storeMigrateSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get store-related config values
	backendStr := viper.GetString("store-backend")
	connStr := viper.GetString("store-db-connect")

	// Handle empty backend as NoneBackend
	var backend schema.DatabaseBackend
	if backendStr == "" {
		backend = schema.NoneBackend
	} else {
		backend = schema.DatabaseBackend(backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetResultsDBFilePath()
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr

	return nil
}

// storeMigrateSetupWrapper wraps storeMigrateSetup to provide PreRunE for migrate command.
func storeMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeMigrateSetup()
}

// storeCmd focused on result store management.
//
// Note: Store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup used by scan commands. This avoids backend validation
// and scan config processing for simple store operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage stored scan results",
	Long: `Manage the result store that holds scored repository records.

Every completed scan upserts one record per repository, storing:
- Run metadata (timestamp, organization, page and repository counts)
- Per-dimension scores with ratings and supporting detail
- Raw backend metrics (commits, reviews, coverage, violations, etc.)

This enables re-rendering reports, fleet summaries, and data export for BI tools.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  clear   - Remove all stored results
  migrate - Run database schema migrations

Examples:
  # Remove all stored results
  fleetscan store clear

  # Migrate the store schema to the latest version
  fleetscan store migrate`,
}

// storeClearCmd clears the stored results.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored scan results",
	Long: `Delete all stored repository records and scan run history.

This removes:
- All scored repository records
- Scan run metadata across every organization
- Raw backend metrics for scanned repositories

WARNING: This action cannot be undone. Consider exporting data first.

Use this when:
- Resetting fleet history after a reorganization
- Database storage is full
- Starting fresh result history
- Testing store features

Examples:
  # Export before clearing
  fleetscan export --output-file backup.parquet
  fleetscan store clear

  # Clear and start fresh
  fleetscan store clear`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// For SQLite the connection string is the DB file path when set.
		dbPath := cfg.StoreDBConnect
		if dbPath == "" {
			dbPath = contract.GetResultsDBFilePath()
		}
		if err := sink.ClearResults(cfg.StoreBackend, dbPath, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear stored results", err)
		}
		fmt.Println("Stored results cleared successfully.")
	},
}

// storeMigrateCmd runs database migrations for the result store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the result store.

Migrations allow:
- Upgrading to new schema versions when Fleetscan is updated
- Safely modifying database structure without data loss
- Rolling back schema changes if needed
- Testing new features on specific schema versions

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  fleetscan store migrate

  # Migrate to specific version
  fleetscan store migrate --target-version 2

  # Rollback to previous version
  fleetscan store migrate --target-version 0`,
	PreRunE: storeMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := sink.MigrateResults(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
