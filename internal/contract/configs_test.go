package contract

import (
	"testing"

	"github.com/fleetscan/fleetscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation; tests mutate the
// field under test.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Org:          "acme",
		LookbackDays: DefaultLookbackDays,
		Workers:      DefaultWorkers,
		Output:       "text",
		Limit:        DefaultResultLimit,
		Precision:    DefaultPrecision,
		Emoji:        "yes",
		Color:        "yes",
		StoreBackend: "sqlite",
		PageSize:     DefaultPageSize,
		Retries:      DefaultRetries,
		RateBuffer:   DefaultRateBuffer,
		StaleDays:    DefaultStaleDays,
		Hosting:      BackendRawInput{URL: "https://git.example.com/api/v3", Token: "t1"},
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{
			name:        "valid minimal config",
			mutate:      func(in *ConfigRawInput) {},
			expectError: false,
		},
		{
			name:        "invalid output format",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "invalid limit (zero)",
			mutate:      func(in *ConfigRawInput) { in.Limit = 0 },
			expectError: true,
		},
		{
			name:        "invalid limit (too large)",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 },
			expectError: true,
		},
		{
			name:        "invalid precision",
			mutate:      func(in *ConfigRawInput) { in.Precision = 3 },
			expectError: true,
		},
		{
			name:        "invalid workers (zero)",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: true,
		},
		{
			name:        "invalid workers (too many)",
			mutate:      func(in *ConfigRawInput) { in.Workers = MaxWorkers + 1 },
			expectError: true,
		},
		{
			name:        "invalid page size",
			mutate:      func(in *ConfigRawInput) { in.PageSize = 0 },
			expectError: true,
		},
		{
			name:        "invalid lookback",
			mutate:      func(in *ConfigRawInput) { in.LookbackDays = 0 },
			expectError: true,
		},
		{
			name:        "negative retries",
			mutate:      func(in *ConfigRawInput) { in.Retries = -1 },
			expectError: true,
		},
		{
			name:        "zero retries is valid",
			mutate:      func(in *ConfigRawInput) { in.Retries = 0 },
			expectError: false,
		},
		{
			name:        "invalid emoji flag",
			mutate:      func(in *ConfigRawInput) { in.Emoji = "maybe" },
			expectError: true,
		},
		{
			name:        "invalid store backend",
			mutate:      func(in *ConfigRawInput) { in.StoreBackend = "oracle" },
			expectError: true,
		},
		{
			name:        "mysql backend without connection string",
			mutate:      func(in *ConfigRawInput) { in.StoreBackend = "mysql" },
			expectError: true,
		},
		{
			name: "mysql backend with connection string",
			mutate: func(in *ConfigRawInput) {
				in.StoreBackend = "mysql"
				in.StoreDBConnect = "user:pass@tcp(localhost:3306)/fleetscan"
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)

			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)

			if tt.expectError {
				assert.Error(t, err, "expected validation to fail")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestProcessAndValidatePopulatesConfig(t *testing.T) {
	input := validInput()
	input.Hosting.URL = "https://git.example.com/api/v3/" // trailing slash should be trimmed
	input.Quality = BackendRawInput{URL: "https://sonar.example.com", Token: "t2"}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, schema.SQLiteBackend, cfg.StoreBackend)
	assert.Equal(t, "https://git.example.com/api/v3", cfg.Hosting.BaseURL, "trailing slash should be stripped")
	assert.True(t, cfg.Quality.Configured())
	assert.False(t, cfg.Composition.Configured(), "unset backend should report unconfigured")
	assert.NotEmpty(t, cfg.CheckpointFile, "checkpoint path should default when unset")
	assert.True(t, cfg.UseEmojis)
	assert.True(t, cfg.UseColors)
}

func TestValidateForScan(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name:        "org and hosting present",
			cfg:         Config{Org: "acme", Hosting: BackendConfig{BaseURL: "https://git.example.com"}},
			expectError: false,
		},
		{
			name:        "missing org",
			cfg:         Config{Hosting: BackendConfig{BaseURL: "https://git.example.com"}},
			expectError: true,
		},
		{
			name:        "missing hosting backend",
			cfg:         Config{Org: "acme"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateForScan()
			if tt.expectError {
				require.Error(t, err)
				var confErr *ConfigurationError
				assert.ErrorAs(t, err, &confErr, "scan validation failures should carry ConfigurationError")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigBackendSelection(t *testing.T) {
	cfg := Config{
		Hosting:     BackendConfig{BaseURL: "h"},
		Quality:     BackendConfig{BaseURL: "q"},
		Composition: BackendConfig{BaseURL: "c"},
		Testing:     BackendConfig{BaseURL: "t"},
	}

	assert.Equal(t, "h", cfg.Backend(schema.HostingSource).BaseURL)
	assert.Equal(t, "q", cfg.Backend(schema.QualitySource).BaseURL)
	assert.Equal(t, "c", cfg.Backend(schema.CompositionSource).BaseURL)
	assert.Equal(t, "t", cfg.Backend(schema.TestingSource).BaseURL)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name        string
		backend     schema.DatabaseBackend
		connStr     string
		expectError bool
	}{
		{"sqlite needs nothing", schema.SQLiteBackend, "", false},
		{"none needs nothing", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(db:3306)/fleet", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@db/fleet", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=db port=5432 dbname=fleet user=u", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=fleet", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=db", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigParamsOmitsSecrets(t *testing.T) {
	cfg := Config{
		Org:     "acme",
		Workers: 8,
		Hosting: BackendConfig{BaseURL: "https://git.example.com", Token: "super-secret"},
	}

	params := cfg.ConfigParams()

	assert.Equal(t, "acme", params["org"])
	assert.Equal(t, true, params["hosting"], "backend presence should be recorded as a bool")
	for k, v := range params {
		assert.NotEqual(t, "super-secret", v, "param %q must not leak the token", k)
	}
}
