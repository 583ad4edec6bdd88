package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
)

// Resolution is the size the corpus is resized to before detection.
// A zero resolution keeps the original images.
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// CameraResolutions are the frame sizes of common surveillance cameras.
var CameraResolutions = []Resolution{
	{Width: 640, Height: 360, Name: "nHD"},
	{Width: 1280, Height: 720, Name: "HD 720p"},
	{Width: 1920, Height: 1080, Name: "Full HD 1080p"},
	{Width: 2560, Height: 1440, Name: "QHD 1440p"},
	{Width: 3840, Height: 2160, Name: "4K UHD"},
}

// Scenario defines a single benchmark run.
type Scenario struct {
	Name           string     `json:"name"`
	Resolution     Resolution `json:"resolution"`
	ScoreThreshold float32    `json:"score_threshold"`
	Iterations     int        `json:"iterations"`
	WarmupRuns     int        `json:"warmup_runs"`
	// BatchSize is the number of frames per timed run. Zero means one.
	BatchSize int `json:"batch_size"`
}

// ScenarioBuilder provides a fluent interface for creating scenarios
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder with one warmup run, ten single-frame iterations
// and a 0.5 threshold.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:           name,
			ScoreThreshold: 0.5,
			Iterations:     10,
			WarmupRuns:     1,
			BatchSize:      1,
		},
	}
}

// WithResolution sets the frame size.
func (sb *ScenarioBuilder) WithResolution(r Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = r
	return sb
}

// WithScoreThreshold sets the detection threshold.
func (sb *ScenarioBuilder) WithScoreThreshold(threshold float32) *ScenarioBuilder {
	sb.scenario.ScoreThreshold = threshold
	return sb
}

// WithIterations sets the number of timed runs.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of untimed runs.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// WithBatchSize sets the number of frames detected per run.
func (sb *ScenarioBuilder) WithBatchSize(size int) *ScenarioBuilder {
	sb.scenario.BatchSize = size
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet is a named list of scenarios, as stored on disk.
type ScenarioSet struct {
	Name      string     `json:"name"`
	Scenarios []Scenario `json:"scenarios"`
}

// QuickScenarios runs the corpus as is.
func QuickScenarios(iterations int) *ScenarioSet {
	return &ScenarioSet{
		Name: "quick",
		Scenarios: []Scenario{
			NewScenarioBuilder("original").WithIterations(iterations).Build(),
		},
	}
}

// ResolutionScenarios runs the corpus at every camera resolution.
func ResolutionScenarios(iterations int) *ScenarioSet {
	set := &ScenarioSet{Name: "resolutions"}
	for _, r := range CameraResolutions {
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(r.Name).
			WithResolution(r).
			WithIterations(iterations).
			Build())
	}
	return set
}

// SaveScenarioSet writes a scenario set as JSON.
func SaveScenarioSet(set *ScenarioSet, filename string) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario set: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// LoadScenarioSet reads a scenario set written by SaveScenarioSet.
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var set ScenarioSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return &set, nil
}
