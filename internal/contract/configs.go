package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetscan/fleetscan/schema"
)

// Default values for configuration.
const (
	DefaultLookbackDays = 90
	DefaultPageSize     = 50
	MaxPageSize         = 100
	DefaultWorkers      = 10
	MaxWorkers          = 64
	DefaultRetries      = 3
	DefaultRateBuffer   = 3
	DefaultStaleDays    = 30
	DefaultResultLimit  = 25
	MaxResultLimit      = 1000
	DefaultPrecision    = 1
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// BackendConfig holds the connection settings for one metric backend. A
// backend with an empty BaseURL is treated as not configured; its adapter
// reports every repository as absent.
type BackendConfig struct {
	BaseURL string
	Token   string
}

// Configured reports whether the backend has a usable base URL.
func (b BackendConfig) Configured() bool {
	return b.BaseURL != ""
}

// Config holds the runtime configuration for scanning and reporting.
// This struct remains the "final, validated" config.
type Config struct {
	Org          string
	LookbackDays int
	Workers      int
	PageSize     int
	Retries      int
	RateBuffer   int
	StaleDays    int

	Hosting     BackendConfig
	Quality     BackendConfig
	Composition BackendConfig
	Testing     BackendConfig

	CheckpointFile string
	Fresh          bool // Discard any existing checkpoint and start over

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	ResultLimit int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int    // Terminal width override (0 = auto-detect)
	Repository  string // Narrow the report to one repository ("" = whole fleet)

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// BackendRawInput holds the raw connection settings for one backend.
type BackendRawInput struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Org            string `mapstructure:"org"`
	LookbackDays   int    `mapstructure:"lookback-days"`
	Workers        int    `mapstructure:"workers"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Limit          int    `mapstructure:"limit"`
	Precision      int    `mapstructure:"precision"`
	Width          int    `mapstructure:"width"`
	Emoji          string `mapstructure:"emoji"`
	Color          string `mapstructure:"color"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`

	// --- Fields from scanCmd.Flags() ---
	PageSize       int    `mapstructure:"page-size"`
	Retries        int    `mapstructure:"retries"`
	RateBuffer     int    `mapstructure:"rate-buffer"`
	StaleDays      int    `mapstructure:"stale-days"`
	CheckpointFile string `mapstructure:"checkpoint-file"`
	Fresh          bool   `mapstructure:"fresh"`

	// --- Fields from reportCmd.Flags() ---
	Repository string `mapstructure:"repository"`

	// --- Backend connections from the config file / env ---
	Hosting     BackendRawInput `mapstructure:"hosting"`
	Quality     BackendRawInput `mapstructure:"quality"`
	Composition BackendRawInput `mapstructure:"composition"`
	Testing     BackendRawInput `mapstructure:"testing"`
}

// Backend returns the connection settings for the named source.
func (c *Config) Backend(source schema.Source) BackendConfig {
	switch source {
	case schema.QualitySource:
		return c.Quality
	case schema.CompositionSource:
		return c.Composition
	case schema.TestingSource:
		return c.Testing
	default:
		return c.Hosting
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// All validation functions read from 'input' and populate 'cfg'.
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateScanControls(cfg, input); err != nil {
		return err
	}
	if err := validateStoreConfig(cfg, input); err != nil {
		return err
	}
	processBackends(cfg, input)
	return nil
}

// ValidateForScan checks the settings that only the scan pipeline needs.
// Reporting commands work off the store and skip these.
func (c *Config) ValidateForScan() error {
	if strings.TrimSpace(c.Org) == "" {
		return &ConfigurationError{Field: "org", Reason: "an organization is required to list repositories"}
	}
	if !c.Hosting.Configured() {
		return &ConfigurationError{Field: "hosting.url", Reason: "the hosting backend is required to list repositories"}
	}
	return nil
}

// validateSimpleInputs processes and validates the shared output fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Org = strings.TrimSpace(input.Org)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Repository = strings.TrimSpace(input.Repository)

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	return nil
}

// validateScanControls processes the knobs that shape the scan pipeline.
func validateScanControls(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Page Size Validation ---
	if input.PageSize <= 0 || input.PageSize > MaxPageSize {
		return fmt.Errorf("page-size must be between 1 and %d (received %d)", MaxPageSize, input.PageSize)
	}
	cfg.PageSize = input.PageSize

	// --- 3. Lookback Validation ---
	if input.LookbackDays <= 0 {
		return fmt.Errorf("lookback-days must be greater than 0 (received %d)", input.LookbackDays)
	}
	cfg.LookbackDays = input.LookbackDays

	// --- 4. Retry and Rate Buffer Validation ---
	if input.Retries < 0 {
		return fmt.Errorf("retries cannot be negative (received %d)", input.Retries)
	}
	cfg.Retries = input.Retries

	if input.RateBuffer < 0 {
		return fmt.Errorf("rate-buffer cannot be negative (received %d)", input.RateBuffer)
	}
	cfg.RateBuffer = input.RateBuffer

	// --- 5. Stale Branch Threshold ---
	if input.StaleDays <= 0 {
		return fmt.Errorf("stale-days must be greater than 0 (received %d)", input.StaleDays)
	}
	cfg.StaleDays = input.StaleDays

	// --- 6. Checkpoint Location ---
	cfg.CheckpointFile = input.CheckpointFile
	if cfg.CheckpointFile == "" {
		cfg.CheckpointFile = GetCheckpointFilePath()
	}
	cfg.Fresh = input.Fresh

	return nil
}

// validateStoreConfig validates the result store backend configuration.
func validateStoreConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// processBackends transfers the per-backend connection settings.
func processBackends(cfg *Config, input *ConfigRawInput) {
	cfg.Hosting = BackendConfig{BaseURL: strings.TrimRight(input.Hosting.URL, "/"), Token: input.Hosting.Token}
	cfg.Quality = BackendConfig{BaseURL: strings.TrimRight(input.Quality.URL, "/"), Token: input.Quality.Token}
	cfg.Composition = BackendConfig{BaseURL: strings.TrimRight(input.Composition.URL, "/"), Token: input.Composition.Token}
	cfg.Testing = BackendConfig{BaseURL: strings.TrimRight(input.Testing.URL, "/"), Token: input.Testing.Token}
}

// ValidateDatabaseConnectionString validates the format of database connection
// strings for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ConfigParams returns the settings worth recording with a scan run, keyed
// for the audit row. Secrets never go in here.
func (c *Config) ConfigParams() map[string]any {
	return map[string]any{
		"org":           c.Org,
		"lookback_days": c.LookbackDays,
		"workers":       c.Workers,
		"page_size":     c.PageSize,
		"retries":       c.Retries,
		"rate_buffer":   c.RateBuffer,
		"stale_days":    c.StaleDays,
		"hosting":       c.Hosting.Configured(),
		"quality":       c.Quality.Configured(),
		"composition":   c.Composition.Configured(),
		"testing":       c.Testing.Configured(),
	}
}
