package decode

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-facedet/images"
)

// Mode is the convention used to turn cx, cy into input pixels.
type Mode int

const (
	// ModeRaw reads every field as input pixels. Stride and size encoding are ignored.
	ModeRaw Mode = iota
	// ModeGridOffset multiplies the centre by the stride.
	ModeGridOffset
	// ModeGridCentered shifts the centre by half a cell before multiplying by the stride.
	ModeGridCentered
)

// Modes lists every Mode in search order.
var Modes = []Mode{ModeRaw, ModeGridOffset, ModeGridCentered}

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeGridOffset:
		return "grid-offset"
	case ModeGridCentered:
		return "grid-centered"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// SizeEncoding is the convention used to turn w, h into input pixels.
type SizeEncoding int

const (
	// SizeLinear is w * stride.
	SizeLinear SizeEncoding = iota
	// SizeExponential is e^w * stride.
	SizeExponential
)

// SizeEncodings lists every SizeEncoding in search order.
var SizeEncodings = []SizeEncoding{SizeLinear, SizeExponential}

func (s SizeEncoding) String() string {
	switch s {
	case SizeLinear:
		return "linear"
	case SizeExponential:
		return "exp"
	default:
		return fmt.Sprintf("size(%d)", int(s))
	}
}

// Hypothesis is one guess at how the head encodes its boxes.
type Hypothesis struct {
	Stride int          `json:"stride"`
	Mode   Mode         `json:"mode"`
	Size   SizeEncoding `json:"size"`
}

func (h Hypothesis) String() string {
	return fmt.Sprintf("stride=%d mode=%s size=%s", h.Stride, h.Mode, h.Size)
}

// Pixels converts a record to centre and size in model input pixels.
func (h Hypothesis) Pixels(p Prediction) (cx, cy, w, hh float32) {
	if h.Mode == ModeRaw {
		return p.CX, p.CY, p.W, p.H
	}

	s := float32(h.Stride)
	switch h.Mode {
	case ModeGridCentered:
		cx, cy = (p.CX+0.5)*s, (p.CY+0.5)*s
	default:
		cx, cy = p.CX*s, p.CY*s
	}
	if h.Size == SizeExponential {
		w, hh = math32.Exp(p.W)*s, math32.Exp(p.H)*s
	} else {
		w, hh = p.W*s, p.H*s
	}

	return cx, cy, w, hh
}

// ModelBox returns the box of p in model input pixels.
//
// Arguments:
//   - p: The prediction record.
//   - h: The decode hypothesis, ignored when normalized is true.
//   - normalized: Whether every field is a fraction of inputSize.
//   - inputSize: Side of the square model input.
//
// Returns:
//   - images.Rect: (cx - w/2, cy - h/2, cx + w/2, cy + h/2).
func ModelBox(p Prediction, h Hypothesis, normalized bool, inputSize int) images.Rect {
	if normalized {
		s := float32(inputSize)
		return images.RectFromCenter(p.CX*s, p.CY*s, p.W*s, p.H*s)
	}
	return images.RectFromCenter(h.Pixels(p))
}
