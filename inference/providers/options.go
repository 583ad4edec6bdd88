package providers

import (
	"fmt"
	"runtime"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

func parseGraphOptimization(level string) (ort.GraphOptimizationLevel, error) {
	switch strings.ToLower(level) {
	case "disable", "none":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unknown graph optimization level: %q", level)
	}
}

// NewSessionOptions builds session options for the configured provider.
//
// Order of operations:
//  1. Threading and graph optimization level.
//  2. Execution provider, if other than CPU.
//
// Arguments:
//   - config: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: Options the caller must Destroy.
//   - error: If the options cannot be created or the provider cannot be enabled.
func NewSessionOptions(config Config) (*ort.SessionOptions, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	level, _ := parseGraphOptimization(config.GraphOptimization)

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := configure(options, config, level); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, config Config, level ort.GraphOptimizationLevel) error {
	if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
		return fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
		return fmt.Errorf("error setting inter-op threads: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return fmt.Errorf("error setting graph optimization level: %w", err)
	}

	switch config.Backend {
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(config.CoreMLFlags); err != nil {
			return fmt.Errorf("error enabling CoreML: %w", err)
		}
	case OpenVINOProviderBackend:
		if err := options.AppendExecutionProviderOpenVINO(config.OpenVINO.ProviderOptions()); err != nil {
			return fmt.Errorf("error enabling OpenVINO: %w", err)
		}
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("error creating CUDA options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(config.CUDA.ProviderOptions()); err != nil {
			return fmt.Errorf("error converting CUDA options: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fmt.Errorf("error enabling CUDA: %w", err)
		}
	}

	return nil
}

// DefaultLibraryPath returns the conventional location of the ONNX Runtime shared
// library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
