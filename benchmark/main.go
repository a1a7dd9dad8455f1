// Package main provides a performance benchmarking tool for the Fleetscan CLI.
// It measures scan execution times across different fleet sizes and worker counts
// against a local synthetic hosting backend, running each test multiple times,
// treating the first successful sqlite run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - fleetscan binary installed and available in PATH
//
// Usage: go run benchmark/main.go
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (store-less average, cold run and average of warm runs).
type BenchmarkResult struct {
	Fleet       string
	Workers     int
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Timeout      time.Duration
	NoStoreRuns  int
	StoreRuns    int
	WorkerCounts []int
	FleetOrder   []string
	Fleets       map[string]int
}

func main() {
	config := BenchmarkConfig{
		Timeout:      5 * time.Minute,
		NoStoreRuns:  3,
		StoreRuns:    4,
		WorkerCounts: []int{1, 4, 16},
		FleetOrder:   []string{"small", "medium", "large"},
		Fleets: map[string]int{
			"small":  25,
			"medium": 100,
			"large":  400,
		},
	}

	if err := checkPrerequisites(); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Scratch home keeps the sqlite store and checkpoint files out of the
	// real home directory.
	scratch, err := os.MkdirTemp("", "fleetscan-bench-")
	if err != nil {
		fmt.Printf("Failed to create scratch directory: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			fmt.Printf("Warning: failed to remove scratch directory: %v\n", rmErr)
		}
	}()

	backend, err := startFleetBackend(config.Fleets)
	if err != nil {
		fmt.Printf("Failed to start synthetic backend: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()
	fmt.Printf("Synthetic hosting backend listening on %s\n", backend.url)

	results := runBenchmarks(config, backend.url, scratch)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results, config.WorkerCounts)
}

// checkPrerequisites verifies that the fleetscan binary exists
func checkPrerequisites() error {
	if _, err := exec.LookPath("fleetscan"); err != nil {
		return fmt.Errorf("fleetscan binary not found in PATH")
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured fleets and worker counts
func runBenchmarks(config BenchmarkConfig, backendURL, scratch string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d fleets, %v timeout, no-store: %d runs, store: %d runs\n",
		len(config.FleetOrder), config.Timeout, config.NoStoreRuns, config.StoreRuns)

	for _, fleet := range config.FleetOrder {
		fmt.Printf("Benchmarking %s fleet (%d repositories)\n", fleet, config.Fleets[fleet])

		for _, workers := range config.WorkerCounts {
			result := runBenchmarkSuite(config, fleet, workers, backendURL, scratch)
			results = append(results, result)
		}
	}

	return results
}

// runBenchmarkSuite runs both no-store and store benchmarks for one fleet and worker count
func runBenchmarkSuite(config BenchmarkConfig, fleet string, workers int, backendURL, scratch string) BenchmarkResult {
	fmt.Printf("Running %s fleet with %d workers\n", fleet, workers)

	// Helper to run a benchmark phase
	runPhase := func(storeBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, fleet, workers, storeBackend, backendURL, scratch, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-store runs
	_, noStoreAvg := runPhase("none", config.NoStoreRuns, "No-store")

	// Phase 2: Store runs. Clear first so the opening run pays the full
	// schema creation cost.
	clearCmd := exec.Command("fleetscan", "store", "clear")
	clearCmd.Env = benchEnv(backendURL, scratch)
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear store: %v\nOutput: %s\n", err, string(output))
	}
	coldTime, warmAvg := runPhase("sqlite", config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Fleet:       fleet,
		Workers:     workers,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a fleetscan scan multiple times with the specified store backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, fleet string, workers int, storeBackend, backendURL, scratch string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"scan",
		"--org", fleet,
		"--workers", strconv.Itoa(workers),
		"--store-backend", storeBackend,
		"--fresh",
		"--emoji", "no",
		"--color", "no",
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("fleetscan", args...)
		cmd.Env = benchEnv(backendURL, scratch)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// benchEnv builds the environment for a fleetscan invocation, pointing the
// hosting backend at the synthetic server and home at the scratch directory.
// Conflicting inherited keys are dropped rather than shadowed: duplicated env
// keys resolve to the first occurrence, not the last.
func benchEnv(backendURL, scratch string) []string {
	env := []string{
		"HOME=" + scratch,
		"FLEETSCAN_HOSTING_URL=" + backendURL,
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HOME=") || strings.HasPrefix(kv, "FLEETSCAN_") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// isSuccess checks if scan output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Report completed in") &&
		strings.Contains(outputStr, "Workers:")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/fleetscan_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"fleet", "workers", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		row := []string{result.Fleet, strconv.Itoa(result.Workers), result.NoStoreTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult, workerCounts []int) {
	fmt.Printf("Benchmark complete\n")

	for _, workers := range workerCounts {
		printWorkerSummary(results, workers)
	}

	fmt.Printf("Benchmark script completed successfully\n")
}

// printWorkerSummary displays results for a specific worker count
func printWorkerSummary(results []BenchmarkResult, workers int) {
	fmt.Printf("%d workers:\n", workers)
	for _, result := range results {
		if result.Workers == workers {
			fmt.Printf("  %-8s: No-store: %s, Cold: %s, Warm: %s\n", result.Fleet, result.NoStoreTime, result.ColdTime, result.WarmTime)
		}
	}
}

// fleetBackend serves a synthetic hosting API so benchmark scans never leave
// the machine. Each org name maps to a fixed repository count.
type fleetBackend struct {
	server *http.Server
	url    string
}

// startFleetBackend starts the synthetic hosting backend on a loopback port.
func startFleetBackend(fleets map[string]int) (*fleetBackend, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recent := now.AddDate(0, 0, -3).Format(time.RFC3339)
	lastWeek := now.AddDate(0, 0, -7).Format(time.RFC3339)
	weekStamp := now.AddDate(0, 0, -14).Unix()

	statsJSON := fmt.Sprintf(`{"stargazers_count":42,"forks_count":7,"watchers_count":42,"open_issues_count":5,"size":2048,"language":"Go","default_branch":"main","archived":false,"pushed_at":%q}`, recent)
	commitsJSON := fmt.Sprintf(`[{"sha":"0f51f2ea90c0","commit":{"message":"Tighten retry backoff","author":{"name":"Dev One","date":%q}}}]`, recent)
	activityJSON := `[{"total":3},{"total":5},{"total":4},{"total":6}]`
	frequencyJSON := fmt.Sprintf(`[[%d,120,-40],[%d,80,-25]]`, weekStamp, weekStamp+7*24*3600)
	branchesJSON := `[{"name":"main"}]`
	branchJSON := fmt.Sprintf(`{"commit":{"committer":{"date":%q}}}`, recent)
	contributorsJSON := `[{"total":9,"author":{"login":"dev-one"},"weeks":[{"a":120,"d":40}]},{"total":4,"author":{"login":"dev-two"},"weeks":[{"a":80,"d":25}]}]`
	pullsJSON := fmt.Sprintf(`[{"number":1,"state":"closed","created_at":%q,"closed_at":%q,"merged_at":%q,"additions":120,"deletions":40,"comments":3,"review_comments":2,"user":{"login":"dev-one"}},{"number":2,"state":"open","created_at":%q,"additions":30,"deletions":5,"comments":1,"review_comments":0,"user":{"login":"dev-two"}}]`,
		lastWeek, recent, recent, recent)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/{org}/repos", func(w http.ResponseWriter, r *http.Request) {
		count, ok := fleets[r.PathValue("org")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		perPage := queryInt(r, "per_page", 50)
		page := queryInt(r, "page", 1)
		start := (page - 1) * perPage
		end := min(start+perPage, count)
		if start > end {
			start = end
		}
		names := make([]map[string]string, 0, end-start)
		for i := start; i < end; i++ {
			names = append(names, map[string]string{"name": fmt.Sprintf("repo-%04d", i+1)})
		}
		data, err := json.Marshal(names)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, string(data))
	})
	mux.HandleFunc("GET /repos/{org}/{repo}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, statsJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/commits", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, commitsJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/stats/commit_activity", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, activityJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/stats/code_frequency", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, frequencyJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/stats/contributors", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, contributorsJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/branches", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, branchesJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/branches/{branch}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, branchJSON)
	})
	mux.HandleFunc("GET /repos/{org}/{repo}/pulls", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, pullsJSON)
	})

	server := &http.Server{Handler: mux}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			fmt.Printf("Warning: backend server stopped: %v\n", serveErr)
		}
	}()

	return &fleetBackend{server: server, url: "http://" + listener.Addr().String()}, nil
}

// Close shuts the synthetic backend down.
func (b *fleetBackend) Close() {
	if err := b.server.Close(); err != nil {
		fmt.Printf("Warning: failed to close backend server: %v\n", err)
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
