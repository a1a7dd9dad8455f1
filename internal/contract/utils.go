package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Risk level label constants, as produced by the scoring engine.
const (
	HighRiskValue     = "High Risk"     // Significant deviation, act soon
	MediumRiskValue   = "Medium Risk"   // Notable deviation
	ModerateRiskValue = "Moderate Risk" // Minor deviation
	LowRiskValue      = "Low Risk"      // Healthy
)

// Color variables for console output.
var (
	HighRiskColor     = color.New(color.FgRed, color.Bold)     // highRiskColor represents standard danger.
	MediumRiskColor   = color.New(color.FgMagenta, color.Bold) // mediumRiskColor represents strong, distinct warning.
	ModerateRiskColor = color.New(color.FgYellow)              // moderateRiskColor represents standard caution, not bold.
	LowRiskColor      = color.New(color.FgCyan)                // lowRiskColor represents informational / low-priority signal.
)

// ColorizeRiskLevel returns a colored risk level label for console output
// (table). CSV and JSON writers keep the plain label.
func ColorizeRiskLevel(level string) string {
	switch level {
	case HighRiskValue:
		return HighRiskColor.Sprint(level)
	case MediumRiskValue:
		return MediumRiskColor.Sprint(level)
	case ModerateRiskValue:
		return ModerateRiskColor.Sprint(level)
	default: // "Low Risk"
		return LowRiskColor.Sprint(level)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCheckpointFilePath returns the default path of the scan checkpoint file.
func GetCheckpointFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".fleetscan_checkpoint.json"
	}
	return filepath.Join(homeDir, ".fleetscan_checkpoint.json")
}

// GetResultsDBFilePath returns the path to the SQLite DB file for result storage.
func GetResultsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".fleetscan_results.db"
	}
	return filepath.Join(homeDir, ".fleetscan_results.db")
}

// TruncateName truncates a repository name to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at
// least one character of content.
func TruncateName(name string, maxWidth int) string {
	runes := []rune(name)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return name
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
