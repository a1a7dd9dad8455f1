package contract

import (
	"fmt"
	"time"
)

// LogScanHeader prints a concise, 2-line header before a scan starts.
func LogScanHeader(cfg *Config) {
	backends := 0
	for _, b := range []BackendConfig{cfg.Hosting, cfg.Quality, cfg.Composition, cfg.Testing} {
		if b.Configured() {
			backends++
		}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -cfg.LookbackDays)

	if cfg.UseEmojis {
		// Line 1: The scan summary (Org and backend coverage)
		fmt.Printf("🔎 Org: %s (Backends: %d/4, Workers: %d)\n", cfg.Org, backends, cfg.Workers)
		// Line 2: The actual date range being scanned
		fmt.Printf("📅 Range: %s → %s\n", start.Format(DateTimeFormat), end.Format(DateTimeFormat))
		return
	}
	fmt.Printf("Org: %s (Backends: %d/4, Workers: %d)\n", cfg.Org, backends, cfg.Workers)
	fmt.Printf("Range: %s -> %s\n", start.Format(DateTimeFormat), end.Format(DateTimeFormat))
}
