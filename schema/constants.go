package schema

// Custom string types for type safety.
type (
	// Rating is a qualitative band label for a metric dimension.
	Rating string

	// Source identifies one of the metric backends.
	Source string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for result storage.
	DatabaseBackend string

	// ScanState represents a state of the scan pipeline state machine.
	ScanState string
)

// All ratings, ordered from least to most severe.
const (
	RatingExcellent    Rating = "excellent"
	RatingGood         Rating = "good"
	RatingAverage      Rating = "average"
	RatingBelowAverage Rating = "below_average"
)

// All metric sources supported.
const (
	HostingSource     Source = "hosting"
	QualitySource     Source = "quality"
	CompositionSource Source = "sca"
	TestingSource     Source = "testing"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All pipeline states.
const (
	StateInit       ScanState = "init"
	StateFetchPage  ScanState = "fetch_page"
	StateDispatch   ScanState = "dispatch"
	StateMergeScore ScanState = "merge_score"
	StateCheckpoint ScanState = "checkpoint"
	StateDone       ScanState = "done"
	StateAborted    ScanState = "aborted"
)

// AdapterOrder is the fixed merge order for partial records. A key collision
// between adapters resolves to the later source in this slice.
var AdapterOrder = []Source{HostingSource, QualitySource, CompositionSource, TestingSource}

// RatingsBySeverity lists ratings in band-scan order, least severe first.
var RatingsBySeverity = []Rating{RatingExcellent, RatingGood, RatingAverage, RatingBelowAverage}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid storage backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Key builds a prefixed metric key owned by this source.
func (s Source) Key(name string) string {
	return string(s) + "." + name
}

// DerivedKey builds a metric key in the aggregator-owned "derived." space.
func DerivedKey(name string) string {
	return "derived." + name
}

// MetaKey builds a metric key in the aggregator-owned "meta." space.
func MetaKey(name string) string {
	return "meta." + name
}
