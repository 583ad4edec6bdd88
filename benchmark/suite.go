package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-facedet/models/postprocess"
)

// Detector is the part of detector.Detector the suite drives.
type Detector interface {
	DetectImage(img image.Image, scoreThreshold float32) []postprocess.Detection
	DetectBatch(imgs []image.Image, scoreThreshold float32, concurrency int) [][]postprocess.Detection
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	detector  Detector
	corpus    []image.Image
	outputDir string
	log       *zap.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a suite that runs det over corpus.
//
// Arguments:
//   - det: The detector under test.
//   - corpus: The decoded images, cycled through by every scenario.
//   - outputDir: Where SaveResults writes. Empty disables saving.
//   - logger: Destination for progress. Nil discards it.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(det Detector, corpus []image.Image, outputDir string, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		detector:  det,
		corpus:    corpus,
		outputDir: outputDir,
		log:       logger.Named("benchmark"),
	}
}

// AddScenario adds a scenario to the suite.
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// frames resizes the corpus for the scenario.
func (bs *Suite) frames(r Resolution) []image.Image {
	if r.Width <= 0 || r.Height <= 0 {
		return bs.corpus
	}
	out := make([]image.Image, len(bs.corpus))
	for i, img := range bs.corpus {
		out[i] = imaging.Resize(img, r.Width, r.Height, imaging.Linear)
	}
	return out
}

// batchAt returns the i-th batch of size frames, cycling through frames.
func batchAt(frames []image.Image, i, size int) []image.Image {
	batch := make([]image.Image, size)
	for k := range batch {
		batch[k] = frames[(i*size+k)%len(frames)]
	}
	return batch
}

// detect runs one batch. A batch of one goes through DetectImage; larger batches
// are preprocessed concurrently.
func (bs *Suite) detect(batch []image.Image, scoreThreshold float32) [][]postprocess.Detection {
	if len(batch) == 1 {
		return [][]postprocess.Detection{bs.detector.DetectImage(batch[0], scoreThreshold)}
	}
	return bs.detector.DetectBatch(batch, scoreThreshold, len(batch))
}

// RunScenario executes a single benchmark scenario. Latencies are per batch.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if len(bs.corpus) == 0 {
		return nil, fmt.Errorf("scenario %s: empty corpus", scenario.Name)
	}
	if scenario.Iterations <= 0 {
		return nil, fmt.Errorf("scenario %s: iterations must be positive", scenario.Name)
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	resizeStart := time.Now()
	frames := bs.frames(scenario.Resolution)
	metrics.ResizeDuration = time.Since(resizeStart)

	size := max(scenario.BatchSize, 1)
	for i := 0; i < scenario.WarmupRuns; i++ {
		bs.detect(batchAt(frames, i, size), scenario.ScoreThreshold)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	startTime := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t := time.Now()
		results := bs.detect(batchAt(frames, i, size), scenario.ScoreThreshold)
		latency := time.Since(t)

		if i == 0 || latency < metrics.MinLatency {
			metrics.MinLatency = latency
		}
		metrics.MaxLatency = max(metrics.MaxLatency, latency)
		for _, dets := range results {
			metrics.Frames++
			metrics.DetectionCount += len(dets)
			if len(dets) == 0 {
				metrics.EmptyFrames++
			}
		}
	}
	metrics.TotalDuration = time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.MeanLatency = metrics.TotalDuration / time.Duration(scenario.Iterations)
	if s := metrics.TotalDuration.Seconds(); s > 0 {
		metrics.FramesPerSecond = float64(metrics.Frames) / s
	}
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	metrics.CPUStats = CPUMetrics{
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	return metrics, nil
}

// RunAllScenarios runs every added scenario in order, then saves the results.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := append([]Scenario(nil), bs.scenarios...)
	bs.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			return err
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		bs.log.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Duration("mean_latency", metrics.MeanLatency),
			zap.Int("detections", metrics.DetectionCount),
		)
	}

	if bs.outputDir == "" {
		return nil
	}
	return bs.SaveResults()
}

// SaveResults writes the results as JSON and a CSV summary to the output directory.
func (bs *Suite) SaveResults() error {
	results := bs.GetResults()

	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return fmt.Errorf("failed to save summary CSV: %w", err)
	}

	bs.log.Info("results saved", zap.String("results", resultsFile), zap.String("summary", summaryFile))
	return nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"Scenario", "Resolution", "FPS", "Mean_Latency_ms", "Max_Latency_ms", "Alloc_MB", "Detections", "Empty_Frames"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Resolution.Name,
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.MeanLatency.Microseconds())/1e3, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MaxLatency.Microseconds())/1e3, 'f', 3, 64),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.Itoa(r.EmptyFrames),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// GetResults returns a copy of the results collected so far.
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	results := make([]PerformanceMetrics, len(bs.results))
	copy(results, bs.results)
	return results
}
