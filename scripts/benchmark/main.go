// Benchmark tool: runs a set of representative extraction requests
// against a live Gleaner instance and reports latency and item yield.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Gleaner API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per target for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Targets covering the main extraction shapes.
var targets = []struct {
	Label     string
	URL       string
	Selectors []string
}{
	{"Static", "https://example.com", []string{"h1", "p"}},
	{"Blog", "https://go.dev/blog/go1.21", []string{"article h1", "article p"}},
	{"Docs", "https://go.dev/doc/effective_go", []string{"h2", "h3"}},
	{"Listing", "https://news.ycombinator.com", []string{".titleline a"}},
	{"Ladder", "https://go.dev", nil}, // structural fallback only
}

// --- Request / Response types (mirrors models package) ---

type executeRequest struct {
	URL     string         `json:"url"`
	Config  *executeConfig `json:"config"`
	Timeout int            `json:"timeout"`
}

type executeConfig struct {
	Selectors []string `json:"selectors,omitempty"`
}

type executeResponse struct {
	Success         bool             `json:"success"`
	Items           []map[string]any `json:"items"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	FallbackUsed    string           `json:"fallback_used"`
	Error           *errorDetail     `json:"error,omitempty"`
}

type errorDetail struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	Items        int    `json:"items"`
	FallbackUsed string `json:"fallback_used,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type targetAverages struct {
	TotalMs float64 `json:"total_ms"`
	Items   float64 `json:"items"`
}

type targetResult struct {
	URL      string          `json:"url"`
	Label    string          `json:"label"`
	Runs     []runResult     `json:"runs"`
	Averages *targetAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string         `json:"timestamp"`
	APIURL     string         `json:"api_url"`
	RunsPerURL int            `json:"runs_per_url"`
	Results    []targetResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Gleaner Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		tr := targetResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkTarget(t.URL, t.Selectors, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d item(s)\n", rr.TotalMs, rr.Items)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}

		tr.Averages = computeAverages(tr.Runs)
		report.Results = append(report.Results, tr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkTarget(url string, selectors []string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := executeRequest{
		URL:     url,
		Config:  &executeConfig{Selectors: selectors},
		Timeout: 60,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/execute", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var er executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = er.Success
	rr.TotalMs = er.ExecutionTimeMs
	rr.Items = len(er.Items)
	rr.FallbackUsed = er.FallbackUsed

	if er.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", er.Error.Category, er.Error.Message)
	}

	return rr
}

func computeAverages(runs []runResult) *targetAverages {
	var successCount int
	var avg targetAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Items += float64(r.Items)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Items /= n
	return &avg
}

func printTable(results []targetResult) {
	fmt.Println(strings.Repeat("─", 70))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Items\tFallback\n")
	fmt.Fprintf(w, "───\t───────────\t─────────\t────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Items,
			dominantFallback(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 70))
}

func dominantFallback(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success && r.FallbackUsed != "" {
			counts[r.FallbackUsed]++
		}
	}
	best, bestCount := "-", 0
	for name, count := range counts {
		if count > bestCount {
			best = name
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
