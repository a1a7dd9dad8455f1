package sink

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for result storage.
const (
	recordsTable  = "fleetscan_records"
	scanRunsTable = "fleetscan_scan_runs"
)

// ResultStoreImpl implements the ResultSink interface.
type ResultStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.ResultSink = &ResultStoreImpl{} // Compile-time check

// NewResultStore creates a new ResultSink with the specified backend.
func NewResultStore(backend schema.DatabaseBackend, connStr string) (contract.ResultSink, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetResultsDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname?parseTime=true", err)
		}

	case schema.PostgreSQLBackend:
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		// Return a no-op store for disabled result storage
		return &ResultStoreImpl{
			db:         nil,
			backend:    backend,
			driverName: "",
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database server is running and accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	// Create the table schemas
	if err := createResultTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create result tables: %w", err)
	}

	return &ResultStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
	}, nil
}

// createResultTables creates the result storage tables.
func createResultTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{recordsTable, getCreateRecordsQuery(backend)},
		{scanRunsTable, getCreateScanRunsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	return nil
}

// getCreateRecordsQuery returns the CREATE TABLE query for fleetscan_records.
// Scalar columns carry what listings sort and filter on; the full metric map
// and assessment ride along as JSON.
func getCreateRecordsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(recordsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repository VARCHAR(255) PRIMARY KEY,
				overall_score DOUBLE NOT NULL,
				rating VARCHAR(32) NOT NULL,
				risk_level VARCHAR(32) NOT NULL,
				metrics JSON NOT NULL,
				assessment JSON,
				last_updated DATETIME(6) NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repository TEXT PRIMARY KEY,
				overall_score DOUBLE PRECISION NOT NULL,
				rating TEXT NOT NULL,
				risk_level TEXT NOT NULL,
				metrics JSONB NOT NULL,
				assessment JSONB,
				last_updated TIMESTAMPTZ NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repository TEXT PRIMARY KEY,
				overall_score REAL NOT NULL,
				rating TEXT NOT NULL,
				risk_level TEXT NOT NULL,
				metrics TEXT NOT NULL,
				assessment TEXT,
				last_updated TEXT NOT NULL
			);
		`, quotedTableName)
	}
}

// getCreateScanRunsQuery returns the CREATE TABLE query for fleetscan_scan_runs.
func getCreateScanRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(scanRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(64) PRIMARY KEY,
				org VARCHAR(255) NOT NULL,
				started_at DATETIME(6) NOT NULL,
				finished_at DATETIME(6),
				run_duration_ms BIGINT,
				pages_scanned INT NOT NULL DEFAULT 0,
				repos_scanned INT NOT NULL DEFAULT 0,
				repos_failed INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				org TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ,
				run_duration_ms BIGINT,
				pages_scanned INT NOT NULL DEFAULT 0,
				repos_scanned INT NOT NULL DEFAULT 0,
				repos_failed INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				org TEXT NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT,
				run_duration_ms INTEGER,
				pages_scanned INTEGER NOT NULL DEFAULT 0,
				repos_scanned INTEGER NOT NULL DEFAULT 0,
				repos_failed INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// UpsertRecords inserts or replaces one row per repository. Re-upserting the
// same batch is harmless, which is what lets an interrupted final persist be
// replayed on the next run.
func (rs *ResultStoreImpl) UpsertRecords(records []schema.RepositoryRecord) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	query := rs.getUpsertRecordQuery()
	for _, record := range records {
		args, err := rs.upsertArgs(record)
		if err != nil {
			return fmt.Errorf("failed to encode record for %s: %w", record.Repository, err)
		}
		if _, err := rs.db.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to upsert record for %s: %w", record.Repository, err)
		}
	}

	return nil
}

// getUpsertRecordQuery returns the UPSERT query for the backend.
func (rs *ResultStoreImpl) getUpsertRecordQuery() string {
	quotedTableName := quoteTableName(recordsTable, rs.backend)
	switch rs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (repository, overall_score, rating, risk_level, metrics, assessment, last_updated) VALUES (?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE overall_score = new.overall_score, rating = new.rating, risk_level = new.risk_level, metrics = new.metrics, assessment = new.assessment, last_updated = new.last_updated`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (repository, overall_score, rating, risk_level, metrics, assessment, last_updated) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (repository) DO UPDATE SET overall_score = EXCLUDED.overall_score, rating = EXCLUDED.rating, risk_level = EXCLUDED.risk_level, metrics = EXCLUDED.metrics, assessment = EXCLUDED.assessment, last_updated = EXCLUDED.last_updated`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (repository, overall_score, rating, risk_level, metrics, assessment, last_updated) VALUES (?, ?, ?, ?, ?, ?, ?)`, quotedTableName)
	}
}

// upsertArgs flattens a record into the column values for the upsert query.
func (rs *ResultStoreImpl) upsertArgs(record schema.RepositoryRecord) ([]any, error) {
	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	var overall float64
	var rating, riskLevel string
	var assessmentJSON any // NULL when the record carries no assessment
	if record.Assessment != nil {
		overall = record.Assessment.Overall
		rating = string(record.Assessment.Rating)
		riskLevel = record.Assessment.RiskLevel
		encoded, err := json.Marshal(record.Assessment)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal assessment: %w", err)
		}
		assessmentJSON = string(encoded)
	}

	return []any{
		record.Repository, overall, rating, riskLevel,
		string(metricsJSON), assessmentJSON, formatTime(record.LastUpdated, rs.backend),
	}, nil
}

// GetLatest returns the stored record for one repository, or nil when absent.
func (rs *ResultStoreImpl) GetLatest(repo string) (*schema.RepositoryRecord, error) {
	// Nothing stored for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(recordsTable, rs.backend)

	var query string
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`SELECT repository, metrics, assessment, last_updated FROM %s WHERE repository = $1`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`SELECT repository, metrics, assessment, last_updated FROM %s WHERE repository = ?`, quotedTableName)
	}

	record, err := rs.scanRecord(rs.db.QueryRow(query, repo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record for %s: %w", repo, err)
	}
	return &record, nil
}

// ListRepositories returns every stored repository name in sorted order.
func (rs *ResultStoreImpl) ListRepositories() ([]string, error) {
	// Nothing stored for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(recordsTable, rs.backend)
	query := fmt.Sprintf("SELECT repository FROM %s ORDER BY repository", quotedTableName)

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan repository name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}

	return names, nil
}

// ListRecords returns every stored record, worst overall score first. Overall
// measures deviation from practice standards, so higher sorts first.
func (rs *ResultStoreImpl) ListRecords() ([]schema.RepositoryRecord, error) {
	// Nothing stored for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(recordsTable, rs.backend)
	query := fmt.Sprintf("SELECT repository, metrics, assessment, last_updated FROM %s ORDER BY overall_score DESC, repository", quotedTableName)

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RepositoryRecord
	for rows.Next() {
		record, err := rs.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return results, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord rebuilds a RepositoryRecord from its row. The scalar columns are
// derived from the assessment at write time, so only the JSON blobs and the
// timestamp are read back.
func (rs *ResultStoreImpl) scanRecord(row rowScanner) (schema.RepositoryRecord, error) {
	var record schema.RepositoryRecord
	var metricsJSON, assessmentJSON []byte

	switch rs.backend {
	case schema.SQLiteBackend:
		var updatedStr string
		if err := row.Scan(&record.Repository, &metricsJSON, &assessmentJSON, &updatedStr); err != nil {
			return record, err
		}
		updated, err := time.Parse(time.RFC3339Nano, updatedStr)
		if err != nil {
			return record, fmt.Errorf("failed to parse last_updated: %w", err)
		}
		record.LastUpdated = updated
	default: // MySQL and PostgreSQL store as native datetime
		if err := row.Scan(&record.Repository, &metricsJSON, &assessmentJSON, &record.LastUpdated); err != nil {
			return record, err
		}
	}

	if err := json.Unmarshal(metricsJSON, &record.Metrics); err != nil {
		return record, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if len(assessmentJSON) > 0 {
		var assessment schema.AberrancyAssessment
		if err := json.Unmarshal(assessmentJSON, &assessment); err != nil {
			return record, fmt.Errorf("failed to unmarshal assessment: %w", err)
		}
		record.Assessment = &assessment
	}

	return record, nil
}

// BeginScanRun creates a new scan run row and returns its unique ID.
func (rs *ResultStoreImpl) BeginScanRun(org string, startTime time.Time, configParams map[string]any) (string, error) {
	// Skip for NoneBackend; an empty ID tells the caller tracking is off
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return "", nil
	}

	// Serialize config params to JSON
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config params: %w", err)
	}

	// The ID is generated here rather than by the database so every backend
	// behaves the same (pgx has no LastInsertId).
	runID := uuid.NewString()
	quotedTableName := quoteTableName(scanRunsTable, rs.backend)

	var query string
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (run_id, org, started_at, config_params) VALUES ($1, $2, $3, $4)`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`INSERT INTO %s (run_id, org, started_at, config_params) VALUES (?, ?, ?, ?)`, quotedTableName)
	}

	if _, err := rs.db.Exec(query, runID, org, formatTime(startTime, rs.backend), string(configJSON)); err != nil {
		return "", fmt.Errorf("failed to insert scan run: %w", err)
	}

	return runID, nil
}

// EndScanRun updates the scan run row with completion data.
func (rs *ResultStoreImpl) EndScanRun(runID string, endTime time.Time, pages, scanned, failed int) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	// First, get the started_at to calculate duration
	quotedTableName := quoteTableName(scanRunsTable, rs.backend)
	var startTime time.Time

	var query string
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`SELECT started_at FROM %s WHERE run_id = $1`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`SELECT started_at FROM %s WHERE run_id = ?`, quotedTableName)
	}

	row := rs.db.QueryRow(query, runID)

	// Handle different time storage formats per backend
	switch rs.backend {
	case schema.SQLiteBackend:
		var startTimeStr string
		if err := row.Scan(&startTimeStr); err != nil {
			return fmt.Errorf("failed to get started_at for scan run %s: %w", runID, err)
		}
		var err error
		startTime, err = time.Parse(time.RFC3339Nano, startTimeStr)
		if err != nil {
			return fmt.Errorf("failed to parse started_at: %w", err)
		}
	default: // MySQL and PostgreSQL store as native datetime
		if err := row.Scan(&startTime); err != nil {
			return fmt.Errorf("failed to get started_at for scan run %s: %w", runID, err)
		}
	}

	// Calculate duration in milliseconds
	durationMs := endTime.Sub(startTime).Milliseconds()

	// Update the scan run with completion data
	var updateQuery string
	var args []any

	switch rs.backend {
	case schema.PostgreSQLBackend:
		updateQuery = fmt.Sprintf(`UPDATE %s SET finished_at = $1, run_duration_ms = $2, pages_scanned = $3, repos_scanned = $4, repos_failed = $5 WHERE run_id = $6`, quotedTableName)
		args = []any{endTime, durationMs, pages, scanned, failed, runID}
	default: // SQLite and MySQL
		updateQuery = fmt.Sprintf(`UPDATE %s SET finished_at = ?, run_duration_ms = ?, pages_scanned = ?, repos_scanned = ?, repos_failed = ? WHERE run_id = ?`, quotedTableName)
		args = []any{formatTime(endTime, rs.backend), durationMs, pages, scanned, failed, runID}
	}

	if _, err := rs.db.Exec(updateQuery, args...); err != nil {
		return fmt.Errorf("failed to update scan run: %w", err)
	}

	return nil
}

// ListScanRuns returns every recorded scan run, oldest first.
func (rs *ResultStoreImpl) ListScanRuns() ([]schema.ScanRunRecord, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(scanRunsTable, rs.backend)
	query := fmt.Sprintf("SELECT run_id, org, started_at, finished_at, run_duration_ms, pages_scanned, repos_scanned, repos_failed, config_params FROM %s ORDER BY started_at, run_id", quotedTableName)

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScanRunRecord

	for rows.Next() {
		var record schema.ScanRunRecord
		var configParams sql.NullString

		switch rs.backend {
		case schema.SQLiteBackend:
			var startedStr string
			var finishedStr *string
			if err := rows.Scan(&record.RunID, &record.Org, &startedStr, &finishedStr, &record.DurationMs, &record.PagesScanned, &record.ReposScanned, &record.ReposFailed, &configParams); err != nil {
				return nil, fmt.Errorf("failed to scan scan run: %w", err)
			}
			started, err := time.Parse(time.RFC3339Nano, startedStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse started_at: %w", err)
			}
			record.StartedAt = started
			// Parse finish time if present
			if finishedStr != nil {
				finished, err := time.Parse(time.RFC3339Nano, *finishedStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse finished_at: %w", err)
				}
				record.FinishedAt = &finished
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.Org, &record.StartedAt, &record.FinishedAt, &record.DurationMs, &record.PagesScanned, &record.ReposScanned, &record.ReposFailed, &configParams); err != nil {
				return nil, fmt.Errorf("failed to scan scan run: %w", err)
			}
		}

		record.ConfigParams = configParams.String
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan runs: %w", err)
	}

	return results, nil
}

// Close closes the underlying connection.
func (rs *ResultStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the result store.
func (rs *ResultStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:     string(rs.backend),
		Connected:   rs.db != nil,
		TableCounts: make(map[string]int64),
	}

	if rs.backend == schema.NoneBackend || rs.db == nil {
		return status, nil
	}

	// Get total repositories
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(recordsTable, rs.backend))
	row := rs.db.QueryRow(countQuery)
	if err := row.Scan(&status.Repositories); err != nil {
		return status, fmt.Errorf("failed to get repository count: %w", err)
	}

	if status.Repositories > 0 {
		// Get the most recent record time
		lastQuery := fmt.Sprintf("SELECT last_updated FROM %s ORDER BY last_updated DESC LIMIT 1", quoteTableName(recordsTable, rs.backend))
		row = rs.db.QueryRow(lastQuery)

		switch rs.backend {
		case schema.SQLiteBackend:
			var lastStr string
			if err := row.Scan(&lastStr); err != nil {
				return status, fmt.Errorf("failed to get last update time: %w", err)
			}
			last, err := time.Parse(time.RFC3339Nano, lastStr)
			if err != nil {
				return status, fmt.Errorf("failed to parse last update time: %w", err)
			}
			status.LastUpdated = last
		default: // MySQL and PostgreSQL store as native datetime
			if err := row.Scan(&status.LastUpdated); err != nil {
				return status, fmt.Errorf("failed to get last update time: %w", err)
			}
		}
	}

	// Get table sizes
	tables := []string{recordsTable, scanRunsTable}
	for _, table := range tables {
		quotedTable := quoteTableName(table, rs.backend)
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTable)
		row = rs.db.QueryRow(countQuery)
		var count int64
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableCounts[table] = count
	}

	return status, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.Format(time.RFC3339Nano)
	default:
		return t
	}
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("%q", name)
	}
}
