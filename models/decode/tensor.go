// Package decode - Layout normalization and decode-convention search for single-class
// detection heads whose output layout is not known ahead of time.
package decode

import (
	"fmt"

	"gorgonia.org/tensor"
)

// RawTensor is the flat output of a detection head, addressed as (C, H, W) with
// element (c, h, w) at Data[c*H*W + h*W + w].
type RawTensor struct {
	C    int
	H    int
	W    int
	Data []float32
}

// Len returns C*H*W.
func (t RawTensor) Len() int {
	return t.C * t.H * t.W
}

// At returns element (c, h, w).
func (t RawTensor) At(c, h, w int) float32 {
	return t.Data[(c*t.H+h)*t.W+w]
}

// FromDense wraps a float32 tensor of rank 1 to 4 as a RawTensor. Shapes with fewer than three
// axes are left-padded with 1s; a rank-4 shape must carry a batch of 1.
//
// Arguments:
//   - d: The dense tensor holding the head output.
//
// Returns:
//   - RawTensor: A view sharing d's backing slice.
//   - error: If the tensor is not float32 or its shape cannot be reduced to (C, H, W).
func FromDense(d *tensor.Dense) (RawTensor, error) {
	if d == nil {
		return RawTensor{}, fmt.Errorf("%w: nil tensor", ErrInvalidShape)
	}
	if d.Dtype() != tensor.Float32 {
		return RawTensor{}, fmt.Errorf("%w: dtype %v, want float32", ErrInvalidShape, d.Dtype())
	}

	shape := []int(d.Shape())
	if len(shape) == 4 {
		if shape[0] != 1 {
			return RawTensor{}, fmt.Errorf("%w: batch %d, want 1", ErrInvalidShape, shape[0])
		}
		shape = shape[1:]
	}
	if len(shape) == 0 || len(shape) > 3 {
		return RawTensor{}, fmt.Errorf("%w: rank %d", ErrInvalidShape, len(d.Shape()))
	}
	for len(shape) < 3 {
		shape = append([]int{1}, shape...)
	}

	return RawTensor{C: shape[0], H: shape[1], W: shape[2], Data: d.Float32s()}, nil
}

// Prediction is one candidate record from the head, in whatever units the model
// emits. Conf is assumed to be in [0, 1].
type Prediction struct {
	CX   float32 `json:"cx"`
	CY   float32 `json:"cy"`
	W    float32 `json:"w"`
	H    float32 `json:"h"`
	Conf float32 `json:"conf"`
}

// SwapWH returns a copy of preds with W and H exchanged in every record.
func SwapWH(preds []Prediction) []Prediction {
	out := make([]Prediction, len(preds))
	for i, p := range preds {
		p.W, p.H = p.H, p.W
		out[i] = p
	}
	return out
}
