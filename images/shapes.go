// Package images - Geometry and letterbox utilities shared by preprocessing and decoding.
package images

import "github.com/chewxy/math32"

// iouEpsilon keeps the IoU denominator away from zero for degenerate boxes.
const iouEpsilon = 1e-6

// Rect is a lightweight bounding box in float pixel coordinates.
//
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right corner. A Rect with
// X2 < X1 or Y2 < Y1 is empty.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box, clamped at zero.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent of the box, clamped at zero.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns Width() * Height().
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float32, float32) {
	return (r.X1 + r.X2) * 0.5, (r.Y1 + r.Y2) * 0.5
}

// Finite reports whether every corner is a finite number.
func (r Rect) Finite() bool {
	return IsFinite(r.X1) && IsFinite(r.Y1) && IsFinite(r.X2) && IsFinite(r.Y2)
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// RectFromCenter builds a box from its center and size.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The corner representation (cx-w/2, cy-h/2, cx+w/2, cy+h/2).
func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w*0.5,
		Y1: cy - h*0.5,
		X2: cx + w*0.5,
		Y2: cy + h*0.5,
	}
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU = Area(A ∩ B) / Area(A ∪ B), where the union is computed with the
// inclusion-exclusion principle: Area(A) + Area(B) - Area(A ∩ B). A small
// epsilon is added to the denominator so two zero-area boxes yield 0 rather
// than NaN.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value in [0, 1]. 1 means identical boxes, 0 means no overlap.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(rect1, rect2) // 25 / 175 ≈ 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	interW := math32.Max(0, math32.Min(r.X2, o.X2)-math32.Max(r.X1, o.X1))
	interH := math32.Max(0, math32.Min(r.Y2, o.Y2)-math32.Max(r.Y1, o.Y1))
	inter := interW * interH
	if inter == 0 {
		return 0
	}

	areaR := (r.X2 - r.X1) * (r.Y2 - r.Y1)
	areaO := (o.X2 - o.X1) * (o.Y2 - o.Y1)

	return inter / (areaR + areaO - inter + iouEpsilon)
}
