// Package providers - Execution provider selection and session options for ONNX Runtime.
package providers

import (
	"fmt"
	"strconv"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Config selects the execution provider and threading of a session.
type Config struct {
	// Backend specifies the backend to use.
	Backend ProviderBackend `json:"backend" yaml:"backend" koanf:"backend"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intraOpNumThreads" yaml:"intraOpNumThreads" koanf:"intraopnumthreads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero lets the runtime decide.
	InterOpNumThreads int `json:"interOpNumThreads" yaml:"interOpNumThreads" koanf:"interopnumthreads"`
	// GraphOptimization is one of "disable", "basic", "extended" or "all".
	GraphOptimization string `json:"graphOptimization" yaml:"graphOptimization" koanf:"graphoptimization"`
	// CUDA holds the CUDA options, used when Backend is cuda.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda" koanf:"cuda"`
	// OpenVINO holds the OpenVINO options, used when Backend is openvino.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino" koanf:"openvino"`
	// CoreMLFlags are passed to the CoreML provider as is.
	CoreMLFlags uint32 `json:"coreMLFlags" yaml:"coreMLFlags" koanf:"coremlflags"`
}

// DefaultConfig returns a single-threaded CPU configuration.
func DefaultConfig() Config {
	return Config{
		Backend:           CPUProviderBackend,
		IntraOpNumThreads: 1,
		InterOpNumThreads: 1,
		GraphOptimization: "extended",
	}
}

// Validate checks the backend name and thread counts.
func (c Config) Validate() error {
	switch c.Backend {
	case CPUProviderBackend, CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
	default:
		return fmt.Errorf("unsupported provider backend: %q", c.Backend)
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return fmt.Errorf("thread counts must not be negative: intra=%d inter=%d",
			c.IntraOpNumThreads, c.InterOpNumThreads)
	}
	if _, err := parseGraphOptimization(c.GraphOptimization); err != nil {
		return err
	}
	return c.OpenVINO.Precision.Validate()
}

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID" yaml:"deviceID" koanf:"deviceid"`
	// The size limit of the device memory arena in bytes. Zero leaves the runtime default.
	GPUMemLimit int64 `json:"gpuMemLimit" yaml:"gpuMemLimit" koanf:"gpumemlimit"`
	// The type of search done for cuDNN convolution algorithms: EXHAUSTIVE, HEURISTIC or DEFAULT.
	CudnnConvAlgoSearch string `json:"cudnnConvAlgoSearch" yaml:"cudnnConvAlgoSearch" koanf:"cudnnconvalgosearch"`
	// Whether to do copies in the default stream or use separate streams.
	DoCopyInDefaultStream bool `json:"doCopyInDefaultStream" yaml:"doCopyInDefaultStream" koanf:"docopyindefaultstream"`
}

// ProviderOptions returns the key/value form understood by ONNX Runtime.
func (o CUDAOptions) ProviderOptions() map[string]string {
	opts := map[string]string{
		"device_id":                 strconv.Itoa(o.DeviceID),
		"do_copy_in_default_stream": boolFlag(o.DoCopyInDefaultStream),
	}
	if o.GPUMemLimit > 0 {
		opts["gpu_mem_limit"] = strconv.FormatInt(o.GPUMemLimit, 10)
	}
	if o.CudnnConvAlgoSearch != "" {
		opts["cudnn_conv_algo_search"] = o.CudnnConvAlgoSearch
	}
	return opts
}

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"deviceType" yaml:"deviceType" koanf:"devicetype"`
	// Inference precision. Empty leaves the device default.
	Precision Precision `json:"precision" yaml:"precision" koanf:"precision"`
	// Overrides the accelerator default number of threads.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads" koanf:"numofthreads"`
}

// ProviderOptions returns the key/value form understood by ONNX Runtime.
func (o OpenVINOOptions) ProviderOptions() map[string]string {
	opts := map[string]string{}
	if o.DeviceType != "" {
		opts["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		opts["precision"] = string(o.Precision)
	}
	if o.NumOfThreads > 0 {
		opts["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	return opts
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
