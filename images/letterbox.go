package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// minScale guards the inverse mapping against a zero scale.
const minScale = 1e-6

// Letterbox describes an aspect-preserving resize of an image into a square
// model input, with the leftover space split evenly on both sides of the
// shorter axis.
//
// Preprocessing and decoding must agree on these numbers, so both sides build
// them with NewLetterbox.
type Letterbox struct {
	// Scale is InputSize / max(OriginalWidth, OriginalHeight).
	Scale float32 `json:"scale"`
	// PadX is the horizontal padding in model input pixels, (InputSize - ResizeWidth) / 2.
	PadX float32 `json:"padX"`
	// PadY is the vertical padding in model input pixels, (InputSize - ResizeHeight) / 2.
	PadY float32 `json:"padY"`
	// InputSize is the side of the square model input.
	InputSize int `json:"inputSize"`
	// OriginalWidth is the width of the source image.
	OriginalWidth int `json:"originalWidth"`
	// OriginalHeight is the height of the source image.
	OriginalHeight int `json:"originalHeight"`
	// ResizeWidth is floor(OriginalWidth * Scale).
	ResizeWidth int `json:"resizeWidth"`
	// ResizeHeight is floor(OriginalHeight * Scale).
	ResizeHeight int `json:"resizeHeight"`
}

// NewLetterbox computes the letterbox parameters for an image.
//
// Arguments:
//   - originalWidth: Width of the source image in pixels.
//   - originalHeight: Height of the source image in pixels.
//   - inputSize: Side of the square model input (640 for the reference model).
//
// Returns:
//   - Letterbox: The scale and padding applied by preprocessing.
//   - error: If any dimension is not positive.
//
// @example
// lb, err := NewLetterbox(1280, 720, 640) // Scale 0.5, resize 640x360, PadY 140
func NewLetterbox(originalWidth, originalHeight, inputSize int) (Letterbox, error) {
	if originalWidth <= 0 || originalHeight <= 0 {
		return Letterbox{}, fmt.Errorf("invalid original dimensions: %dx%d", originalWidth, originalHeight)
	}
	if inputSize <= 0 {
		return Letterbox{}, fmt.Errorf("invalid input size: %d", inputSize)
	}

	scale := float32(inputSize) / float32(max(originalWidth, originalHeight))
	resizeWidth := int(float32(originalWidth) * scale)
	resizeHeight := int(float32(originalHeight) * scale)

	return Letterbox{
		Scale:          scale,
		PadX:           float32(inputSize-resizeWidth) / 2,
		PadY:           float32(inputSize-resizeHeight) / 2,
		InputSize:      inputSize,
		OriginalWidth:  originalWidth,
		OriginalHeight: originalHeight,
		ResizeWidth:    resizeWidth,
		ResizeHeight:   resizeHeight,
	}, nil
}

// PadOrigin returns the integer top-left offset at which preprocessing pastes
// the resized image into the padded canvas.
func (l Letterbox) PadOrigin() (int, int) {
	return (l.InputSize - l.ResizeWidth) / 2, (l.InputSize - l.ResizeHeight) / 2
}

// Forward maps a point from original image space into model input space.
func (l Letterbox) Forward(x, y float32) (float32, float32) {
	return x*l.Scale + l.PadX, y*l.Scale + l.PadY
}

// Inverse maps a point from model input space back into original image space.
func (l Letterbox) Inverse(x, y float32) (float32, float32) {
	s := math32.Max(minScale, l.Scale)
	return (x - l.PadX) / s, (y - l.PadY) / s
}

// ForwardRect maps both corners of r into model input space.
func (l Letterbox) ForwardRect(r Rect) Rect {
	x1, y1 := l.Forward(r.X1, r.Y1)
	x2, y2 := l.Forward(r.X2, r.Y2)
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// InverseRect maps both corners of r back into original image space. The
// result is not clipped.
func (l Letterbox) InverseRect(r Rect) Rect {
	x1, y1 := l.Inverse(r.X1, r.Y1)
	x2, y2 := l.Inverse(r.X2, r.Y2)
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Clip clamps every coordinate of r to [0, dim-1] of the original image.
func (l Letterbox) Clip(r Rect) Rect {
	maxX := float32(l.OriginalWidth - 1)
	maxY := float32(l.OriginalHeight - 1)
	return Rect{
		X1: clamp(r.X1, 0, maxX),
		Y1: clamp(r.Y1, 0, maxY),
		X2: clamp(r.X2, 0, maxX),
		Y2: clamp(r.Y2, 0, maxY),
	}
}

// OriginalArea returns OriginalWidth * OriginalHeight as a float.
func (l Letterbox) OriginalArea() float32 {
	return float32(l.OriginalWidth) * float32(l.OriginalHeight)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
