package facedet

import (
	"fmt"

	"github.com/nvr-ai/go-facedet/models/decode"
	"github.com/nvr-ai/go-facedet/models/postprocess"
)

const (
	// DefaultInputSize is the side of the square model input.
	DefaultInputSize = 640
	// DefaultScoreThreshold is used by callers that do not pick their own threshold.
	DefaultScoreThreshold = 0.5
	// DefaultRawSampleSize is the number of raw records included in debug logs.
	DefaultRawSampleSize = 20
)

// Config holds the tuned constants of the decode pipeline. Every value is empirical,
// so all of them can be overridden from configuration.
type Config struct {
	// InputSize is the side of the square model input in pixels.
	InputSize int `json:"inputSize" yaml:"inputSize" koanf:"inputsize"`
	// ScoreThreshold is the default minimum confidence.
	ScoreThreshold float32 `json:"scoreThreshold" yaml:"scoreThreshold" koanf:"scorethreshold"`
	// NormalizedLimit is the largest coordinate magnitude read as normalized output.
	NormalizedLimit float32 `json:"normalizedLimit" yaml:"normalizedLimit" koanf:"normalizedlimit"`
	// Strides are the candidate feature-map strides for the decode search.
	Strides []int `json:"strides" yaml:"strides" koanf:"strides"`
	// MinBoxSize is the side a box must exceed, in original pixels.
	MinBoxSize float32 `json:"minBoxSize" yaml:"minBoxSize" koanf:"minboxsize"`
	// MaxAreaRatio is the largest fraction of the image one box may cover.
	MaxAreaRatio float32 `json:"maxAreaRatio" yaml:"maxAreaRatio" koanf:"maxarearatio"`
	// ClusterRadius is the centre distance within which boxes are merged.
	ClusterRadius float32 `json:"clusterRadius" yaml:"clusterRadius" koanf:"clusterradius"`
	// ClusterIoU is the overlap at or above which boxes are merged.
	ClusterIoU float32 `json:"clusterIoU" yaml:"clusterIoU" koanf:"clusteriou"`
	// IoUThreshold is the overlap above which NMS suppresses a box.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold" koanf:"iouthreshold"`
	// MaxDetections caps the output per frame.
	MaxDetections int `json:"maxDetections" yaml:"maxDetections" koanf:"maxdetections"`
	// SwapWH exchanges the w and h fields of every record before decoding.
	SwapWH bool `json:"swapWH" yaml:"swapWH" koanf:"swapwh"`
	// RawSampleSize is the number of raw records logged at debug level.
	RawSampleSize int `json:"rawSampleSize" yaml:"rawSampleSize" koanf:"rawsamplesize"`
	// NeighborSample bounds the nearest-neighbour diagnostic logged at debug level.
	NeighborSample int `json:"neighborSample" yaml:"neighborSample" koanf:"neighborsample"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		InputSize:       DefaultInputSize,
		ScoreThreshold:  DefaultScoreThreshold,
		NormalizedLimit: decode.DefaultNormalizedLimit,
		Strides:         append([]int(nil), decode.DefaultStrides...),
		MinBoxSize:      postprocess.DefaultMinBoxSize,
		MaxAreaRatio:    postprocess.DefaultMaxAreaRatio,
		ClusterRadius:   postprocess.DefaultClusterRadius,
		ClusterIoU:      postprocess.DefaultClusterIoU,
		IoUThreshold:    postprocess.DefaultIoUThreshold,
		MaxDetections:   postprocess.DefaultMaxDetections,
		RawSampleSize:   DefaultRawSampleSize,
		NeighborSample:  postprocess.DefaultNeighborSample,
	}
}

// Validate reports the first value that would make the pipeline misbehave.
func (c Config) Validate() error {
	switch {
	case c.InputSize <= 0:
		return fmt.Errorf("inputSize must be positive, got %d", c.InputSize)
	case c.ScoreThreshold < 0 || c.ScoreThreshold > 1:
		return fmt.Errorf("scoreThreshold must be in [0, 1], got %v", c.ScoreThreshold)
	case c.NormalizedLimit <= 0:
		return fmt.Errorf("normalizedLimit must be positive, got %v", c.NormalizedLimit)
	case len(c.Strides) == 0:
		return fmt.Errorf("strides must not be empty")
	case c.MinBoxSize <= 0:
		return fmt.Errorf("minBoxSize must be positive, got %v", c.MinBoxSize)
	case c.MaxAreaRatio <= 0 || c.MaxAreaRatio > 1:
		return fmt.Errorf("maxAreaRatio must be in (0, 1], got %v", c.MaxAreaRatio)
	case c.ClusterRadius < 0:
		return fmt.Errorf("clusterRadius must not be negative, got %v", c.ClusterRadius)
	case c.ClusterIoU <= 0 || c.ClusterIoU > 1:
		return fmt.Errorf("clusterIoU must be in (0, 1], got %v", c.ClusterIoU)
	case c.IoUThreshold <= 0 || c.IoUThreshold > 1:
		return fmt.Errorf("iouThreshold must be in (0, 1], got %v", c.IoUThreshold)
	case c.MaxDetections <= 0:
		return fmt.Errorf("maxDetections must be positive, got %d", c.MaxDetections)
	}
	for _, s := range c.Strides {
		if s <= 0 {
			return fmt.Errorf("strides must be positive, got %v", c.Strides)
		}
	}
	return nil
}

func (c Config) decodeOptions(scoreThreshold float32) decode.Options {
	return decode.Options{
		Search: decode.SearchConfig{
			Strides:        c.Strides,
			ScoreThreshold: scoreThreshold,
			MinBoxSize:     c.MinBoxSize,
		},
		NormalizedLimit: c.NormalizedLimit,
		SwapWH:          c.SwapWH,
	}
}
