package providers

import "fmt"

// Precision is the inference precision requested from the OpenVINO provider.
type Precision string

const (
	// PrecisionAccuracy keeps the precision of the model file.
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 is 32-bit floating point.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 is 16-bit floating point.
	PrecisionFP16 Precision = "FP16"
)

// Validate accepts the empty precision, which leaves the device default.
func (p Precision) Validate() error {
	switch p {
	case "", PrecisionAccuracy, PrecisionFP32, PrecisionFP16:
		return nil
	default:
		return fmt.Errorf("unsupported OpenVINO precision: %q", p)
	}
}
