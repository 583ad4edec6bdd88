package images

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
		},
		{
			name:     "Diagonal overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
		},
		{
			name:     "Fractional coordinates",
			r1:       Rect{0.5, 0.5, 10.5, 10.5},
			r2:       Rect{0.5, 0.5, 10.5, 5.5},
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r1, tt.r2), 0.001)
			assert.InDelta(t, tt.expected, CalculateIoU(tt.r2, tt.r1), 0.001, "IoU must be symmetric")
		})
	}
}

func TestIoU_DegenerateBoxes(t *testing.T) {
	zero := Rect{10, 10, 10, 10}
	assert.Equal(t, float32(0), CalculateIoU(zero, zero))
	assert.Equal(t, float32(0), CalculateIoU(zero, Rect{0, 0, 20, 20}))
}

func TestRectAccessors(t *testing.T) {
	r := RectFromCenter(320, 240, 100, 50)
	assert.Equal(t, Rect{270, 215, 370, 265}, r)
	assert.Equal(t, float32(100), r.Width())
	assert.Equal(t, float32(50), r.Height())
	assert.Equal(t, float32(5000), r.Area())

	cx, cy := r.Center()
	assert.Equal(t, float32(320), cx)
	assert.Equal(t, float32(240), cy)

	inverted := Rect{10, 10, 0, 0}
	assert.Equal(t, float32(0), inverted.Width())
	assert.Equal(t, float32(0), inverted.Area())
}

func TestRectFinite(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"finite", Rect{0, 0, 10, 10}, true},
		{"nan corner", Rect{math32.NaN(), 0, 10, 10}, false},
		{"infinite corner", Rect{0, 0, 10, math32.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Finite())
		})
	}
}
