package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
	"golang.org/x/term"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// createFormatters creates the common formatter closures used across multiple output types.
// fmtFloat honors the configured precision; fmtCount renders whole-number metrics.
func createFormatters(precision int) (fmtFloat func(float64) string, fmtCount func(float64) string) {
	numFmt := "%.*f"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	fmtCount = func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	}
	return fmtFloat, fmtCount
}

// metricCell renders one metric for a table or CSV cell. Metrics the scan
// never collected render as the placeholder.
func metricCell(metrics schema.MetricMap, key string, format func(float64) string, placeholder string) string {
	if v, ok := metrics.Float(key); ok {
		return format(v)
	}
	return placeholder
}

// riskLabelCell renders the risk level, colorized for terminals when enabled.
func riskLabelCell(a *schema.AberrancyAssessment, useColors bool) string {
	if a == nil {
		return "-"
	}
	if useColors {
		return contract.ColorizeRiskLevel(a.RiskLevel)
	}
	return a.RiskLevel
}

// GetMaxTableNameWidth calculates the maximum width for repository names in
// table output based on terminal width and table configuration.
func GetMaxTableNameWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		// Get terminal width
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for fixed columns with table formatting
	baseWidth := 45 // Rank + Score + Rating + Risk with borders/padding

	// Add headline metric columns with formatting
	baseWidth += 40 // Commits/Wk + Churn/Wk + Branches + Contrib

	// Add dimension score columns
	baseWidth += 24 // Freq + Chrn + Brch

	// Reserve generous space for table borders, separators, and padding
	baseWidth += 20

	// Calculate available space for the name
	available := termWidth - baseWidth
	if available < 15 {
		// Minimum reasonable name width
		return 15
	}
	if available > 40 {
		// Maximum name width to prevent overly wide tables
		return 40
	}
	return available
}
