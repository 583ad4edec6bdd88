// Package inference - runs a detection model with ONNX Runtime and hands back its raw output.
package inference

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/go-facedet/inference/providers"
	"github.com/nvr-ai/go-facedet/models/decode"
)

var (
	// ErrOutputNotFound is returned when the model has no output of the configured name.
	ErrOutputNotFound = errors.New("model output not found")
	// ErrInputSize is returned when the input buffer does not match the model input.
	ErrInputSize = errors.New("input size mismatch")
)

// Engine runs one forward pass of a model.
type Engine interface {
	// Run executes the model on a [1,3,S,S] input and returns the named output as C x H x W.
	Run(input []float32) (decode.RawTensor, error)
	// OutputName is the name of the output tensor returned by Run.
	OutputName() string
	// Close releases the session and its tensors.
	Close() error
}

// Config describes where the model and runtime live and which tensors to bind.
type Config struct {
	LibraryPath string           `json:"libraryPath" yaml:"libraryPath" koanf:"librarypath"`
	ModelPath   string           `json:"modelPath" yaml:"modelPath" koanf:"modelpath"`
	InputName   string           `json:"inputName" yaml:"inputName" koanf:"inputname"`
	OutputName  string           `json:"outputName" yaml:"outputName" koanf:"outputname"`
	InputSize   int              `json:"inputSize" yaml:"inputSize" koanf:"inputsize"`
	Provider    providers.Config `json:"provider" yaml:"provider" koanf:"provider"`
}

// DefaultConfig returns the tensor names exported by the face model at 640x640 on CPU.
func DefaultConfig() Config {
	return Config{
		LibraryPath: providers.DefaultLibraryPath(),
		InputName:   "images",
		OutputName:  "output0",
		InputSize:   640,
		Provider:    providers.DefaultConfig(),
	}
}

// Validate checks that the engine can be built from the configuration.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputName == "" || c.OutputName == "" {
		return fmt.Errorf("input and output names are required: input=%q output=%q", c.InputName, c.OutputName)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive: %d", c.InputSize)
	}
	return c.Provider.Validate()
}

// InputLen is the number of float32 values in one [1,3,S,S] input.
func (c Config) InputLen() int {
	return 3 * c.InputSize * c.InputSize
}

// ShapeToCHW maps an output shape to channels, height and width.
// A leading batch axis of 1 is dropped and shorter shapes are left-padded with 1s.
func ShapeToCHW(shape []int64) ([]int, error) {
	dims := shape
	if len(dims) == 4 {
		if dims[0] != 1 {
			return nil, fmt.Errorf("%w: batch %d", decode.ErrInvalidShape, dims[0])
		}
		dims = dims[1:]
	}
	if len(dims) == 0 || len(dims) > 3 {
		return nil, fmt.Errorf("%w: rank %d", decode.ErrInvalidShape, len(shape))
	}

	chw := []int{1, 1, 1}
	offset := 3 - len(dims)
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: axis %d is %d", decode.ErrInvalidShape, i, d)
		}
		chw[offset+i] = int(d)
	}
	return chw, nil
}
