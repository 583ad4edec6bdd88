package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"cuda", func(c *Config) { c.Backend = CUDAProviderBackend }, false},
		{"unknown backend", func(c *Config) { c.Backend = "tpu" }, true},
		{"negative threads", func(c *Config) { c.IntraOpNumThreads = -1 }, true},
		{"bad optimization level", func(c *Config) { c.GraphOptimization = "max" }, true},
		{"openvino fp16", func(c *Config) { c.Backend = OpenVINOProviderBackend; c.OpenVINO.Precision = PrecisionFP16 }, false},
		{"bad precision", func(c *Config) { c.OpenVINO.Precision = "INT4" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestParseGraphOptimization(t *testing.T) {
	level, err := parseGraphOptimization("")
	require.NoError(t, err)
	assert.Equal(t, ort.GraphOptimizationLevelEnableExtended, level)

	level, err = parseGraphOptimization("ALL")
	require.NoError(t, err)
	assert.Equal(t, ort.GraphOptimizationLevelEnableAll, level)
}

func TestProviderOptions(t *testing.T) {
	cuda := CUDAOptions{DeviceID: 1, GPUMemLimit: 1 << 30, CudnnConvAlgoSearch: "HEURISTIC", DoCopyInDefaultStream: true}
	assert.Equal(t, map[string]string{
		"device_id":                 "1",
		"gpu_mem_limit":             "1073741824",
		"cudnn_conv_algo_search":    "HEURISTIC",
		"do_copy_in_default_stream": "1",
	}, cuda.ProviderOptions())

	ov := OpenVINOOptions{DeviceType: "GPU", Precision: PrecisionFP16}
	assert.Equal(t, map[string]string{"device_type": "GPU", "precision": "FP16"}, ov.ProviderOptions())
	assert.Empty(t, OpenVINOOptions{}.ProviderOptions())
}

func TestDefaultLibraryPath(t *testing.T) {
	assert.NotEmpty(t, DefaultLibraryPath())
}
