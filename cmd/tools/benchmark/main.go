package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/models"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL      string
	NumSeries    int           // series per request
	Resolution   time.Duration // spacing of raw samples
	Windows      []time.Duration
	Strategy     string
	GapRatio     float64 // share of null readings
	Duration     time.Duration
	Workers      int
	APIKey       string
	ResultsDir   string
	HTTPClient   *http.Client
	RequestCache bool // reuse identical payloads to exercise the memo cache
}

// Metrics holds benchmark metrics
type Metrics struct {
	Latencies  []float64
	Errors     int64
	Success    int64
	Points     int64
	FirstError string
	mu         sync.Mutex
}

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func main() {
	config := BenchmarkConfig{
		Windows: []time.Duration{time.Hour, 24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour},
	}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:5580", "Base URL of the API")
	flag.IntVar(&config.NumSeries, "series", 4, "Series per aggregate request")
	flag.DurationVar(&config.Resolution, "resolution", time.Minute, "Spacing of raw samples")
	flag.StringVar(&config.Strategy, "strategy", "", "Bucketing strategy (empty uses the server default)")
	flag.Float64Var(&config.GapRatio, "gaps", 0.05, "Share of null readings")
	flag.DurationVar(&config.Duration, "duration", 30*time.Second, "Benchmark duration")
	flag.IntVar(&config.Workers, "workers", 8, "Number of concurrent workers")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for authentication")
	flag.StringVar(&config.ResultsDir, "results-dir", "benchmark_results", "Directory for the result file (empty disables)")
	flag.BoolVar(&config.RequestCache, "repeat", false, "Send identical payloads so the memo cache serves them")
	flag.Parse()

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== Chamberview Benchmark Tool ===\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  URL: %s\n", config.BaseURL)
	fmt.Printf("  Series/request: %d\n", config.NumSeries)
	fmt.Printf("  Resolution: %s\n", config.Resolution)
	fmt.Printf("  Windows: %v\n", config.Windows)
	fmt.Printf("  Duration: %s\n", config.Duration)
	fmt.Printf("  Workers: %d\n", config.Workers)
	fmt.Printf("\n")

	payloads := buildPayloads(config)

	start := time.Now()
	metrics := runBenchmark(config, payloads)
	elapsed := time.Since(start)

	result := calculateResult("Aggregate", metrics.Latencies, metrics.Success, metrics.Errors, elapsed, metrics.FirstError)
	fmt.Printf("\n")
	displayResult(result)
	fmt.Printf("Points returned:  %d\n", atomic.LoadInt64(&metrics.Points))

	if config.ResultsDir != "" {
		saveResults(config, result)
	}
}

// buildPayloads prepares one request per window
func buildPayloads(config BenchmarkConfig) [][]byte {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	to := time.Now().UTC().Truncate(time.Minute)

	payloads := make([][]byte, 0, len(config.Windows))
	for _, window := range config.Windows {
		from := to.Add(-window)
		req := models.AggregateRequest{
			From:     from.Format(time.RFC3339),
			To:       to.UnixMilli(),
			Strategy: config.Strategy,
		}
		for i := 0; i < config.NumSeries; i++ {
			req.Series = append(req.Series, generateSeries(rng, i, from, to, config))
		}
		data, err := json.Marshal(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode payload: %v\n", err)
			os.Exit(1)
		}
		payloads = append(payloads, data)
	}
	return payloads
}

var sensorTypes = []string{"temperature", "humidity", "pressure", "co2"}

// generateSeries produces a drifting reading with nulls and occasional spikes
func generateSeries(rng *rand.Rand, idx int, from, to time.Time, config BenchmarkConfig) models.SeriesInput {
	sensor := sensorTypes[idx%len(sensorTypes)]
	n := int(to.Sub(from)/config.Resolution) + 1
	in := models.SeriesInput{
		Label:  fmt.Sprintf("chamber-%02d/%s", idx/len(sensorTypes), sensor),
		Type:   sensor,
		Times:  make([]interface{}, n),
		Values: make([]interface{}, n),
	}

	level := 20 + rng.Float64()*10
	for i := 0; i < n; i++ {
		in.Times[i] = from.Add(time.Duration(i) * config.Resolution).UnixMilli()
		level += rng.NormFloat64() * 0.1
		switch r := rng.Float64(); {
		case r < config.GapRatio:
			in.Values[i] = nil
		case r < config.GapRatio+0.001:
			in.Values[i] = level * 1000
		default:
			in.Values[i] = level
		}
	}
	return in
}

func runBenchmark(config BenchmarkConfig, payloads [][]byte) *Metrics {
	metrics := &Metrics{Latencies: make([]float64, 0, 10000)}

	var wg sync.WaitGroup
	stopCh := make(chan struct{})
	startTime := time.Now()

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go worker(i, config, payloads, metrics, stopCh, &wg)
	}

	go progressReporter(metrics, config.Duration, startTime)

	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()

	return metrics
}

func worker(id int, config BenchmarkConfig, payloads [][]byte, metrics *Metrics, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id)))
	url := config.BaseURL + "/v1/aggregate"

	for n := 0; ; n++ {
		select {
		case <-stopCh:
			return
		default:
		}

		payload := payloads[(id+n)%len(payloads)]
		if !config.RequestCache {
			payload = perturb(rng, payload)
		}

		start := time.Now()
		points, err := postAggregate(config, url, payload)
		latency := time.Since(start).Seconds() * 1000 // ms

		metrics.mu.Lock()
		metrics.Latencies = append(metrics.Latencies, latency)
		if err != nil && metrics.FirstError == "" {
			metrics.FirstError = err.Error()
		}
		metrics.mu.Unlock()

		if err != nil {
			atomic.AddInt64(&metrics.Errors, 1)
			continue
		}
		atomic.AddInt64(&metrics.Success, 1)
		atomic.AddInt64(&metrics.Points, int64(points))
	}
}

// perturb changes the requested point count so the memo cache misses
func perturb(rng *rand.Rand, payload []byte) []byte {
	var req map[string]interface{}
	if err := json.Unmarshal(payload, &req); err != nil {
		return payload
	}
	tiers := downsampling.ValidTiers()
	req["precision"] = string(tiers[rng.Intn(len(tiers))])
	req["points"] = 20 + rng.Intn(80)
	out, err := json.Marshal(req)
	if err != nil {
		return payload
	}
	return out
}

func postAggregate(config BenchmarkConfig, url string, payload []byte) (int, error) {
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")
	if config.APIKey != "" {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var out models.AggregateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	points := 0
	for _, s := range out.Series {
		points += len(s.Values)
	}
	return points, nil
}

func progressReporter(metrics *Metrics, duration time.Duration, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(startTime)
		if elapsed >= duration {
			return
		}

		success := atomic.LoadInt64(&metrics.Success)
		errors := atomic.LoadInt64(&metrics.Errors)
		remaining := duration - elapsed
		fmt.Printf("[%s remaining] Requests: %d (%.0f/s, %d errors)\n",
			remaining.Round(time.Second), success, float64(success)/elapsed.Seconds(), errors)
	}
}

func calculateResult(operation string, latencies []float64, success, errors int64, duration time.Duration, errorMsg string) Result {
	if len(latencies) == 0 {
		return Result{
			Operation: operation,
			TotalOps:  success + errors,
			ErrorMsg:  errorMsg,
		}
	}

	sort.Float64s(latencies)

	result := Result{
		Operation:  operation,
		TotalOps:   success + errors,
		SuccessOps: success,
		ErrorOps:   errors,
		Duration:   duration,
		Throughput: float64(success) / duration.Seconds(),
		MinLatency: latencies[0],
		MaxLatency: latencies[len(latencies)-1],
		P50Latency: percentile(latencies, 50),
		P95Latency: percentile(latencies, 95),
		P99Latency: percentile(latencies, 99),
		ErrorMsg:   errorMsg,
	}

	var sum float64
	for _, lat := range latencies {
		sum += lat
	}
	result.AvgLatency = sum / float64(len(latencies))

	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted)) * p / 100.0))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func writeResult(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %d\n", r.TotalOps)
	if r.TotalOps > 0 {
		_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, float64(r.SuccessOps)/float64(r.TotalOps)*100)
		_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, float64(r.ErrorOps)/float64(r.TotalOps)*100)
	}
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && r.ErrorMsg != "" {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.MaxLatency)
}

func displayResult(r Result) {
	writeResult(os.Stdout, r)
}

func saveResults(config BenchmarkConfig, result Result) {
	if err := os.MkdirAll(config.ResultsDir, 0o755); err != nil {
		fmt.Printf("Failed to create results directory: %v\n", err)
		return
	}
	filename := fmt.Sprintf("%s/aggregate_benchmark_%s.txt", config.ResultsDir, time.Now().Format("20060102_150405"))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== Chamberview Aggregate Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(f, "Configuration:\n")
	_, _ = fmt.Fprintf(f, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(f, "  Series/request: %d\n", config.NumSeries)
	_, _ = fmt.Fprintf(f, "  Resolution: %s\n", config.Resolution)
	_, _ = fmt.Fprintf(f, "  Windows: %v\n", config.Windows)
	_, _ = fmt.Fprintf(f, "  Workers: %d\n", config.Workers)
	_, _ = fmt.Fprintf(f, "  Repeat payloads: %v\n\n", config.RequestCache)

	writeResult(f, result)
	fmt.Printf("\nResults saved to: %s\n", filename)
}
