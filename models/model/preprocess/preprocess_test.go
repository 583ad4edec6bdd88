package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// at reads channel c of the CHW tensor at (x, y).
func at(r *Result, c, x, y int) float32 {
	size := r.Letterbox.InputSize
	return r.Data[c*size*size+y*size+x]
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantScale     float32
		wantPadX      float32
		wantPadY      float32
	}{
		{"landscape", 128, 64, 0.5, 0, 16},
		{"portrait", 32, 128, 0.5, 24, 0},
		{"square", 64, 64, 1, 0, 0},
		{"upscale", 16, 32, 2, 16, 0},
	}

	p, err := NewPreprocessor(DefaultConfig(64), nil)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			red := color.RGBA{R: 255, A: 255}
			r, err := p.Preprocess(solidImage(tt.width, tt.height, red))
			require.NoError(t, err)

			assert.Len(t, r.Data, 3*64*64)
			assert.Equal(t, []int{3, 64, 64}, r.Shape)
			assert.InDelta(t, tt.wantScale, r.Letterbox.Scale, 1e-6)
			assert.InDelta(t, tt.wantPadX, r.Letterbox.PadX, 1e-6)
			assert.InDelta(t, tt.wantPadY, r.Letterbox.PadY, 1e-6)

			// Centre pixel is image content.
			assert.InDelta(t, 1.0, at(r, 0, 32, 32), 0.01)
			assert.InDelta(t, 0.0, at(r, 1, 32, 32), 0.01)
			assert.InDelta(t, 0.0, at(r, 2, 32, 32), 0.01)

			// Padding, when present, is gray.
			if tt.wantPadY > 0 {
				assert.InDelta(t, 114.0/255, at(r, 0, 32, 0), 1e-6)
				assert.InDelta(t, 114.0/255, at(r, 2, 32, 63), 1e-6)
			}
			if tt.wantPadX > 0 {
				assert.InDelta(t, 114.0/255, at(r, 1, 0, 32), 1e-6)
			}
		})
	}
}

func TestPreprocessValueRange(t *testing.T) {
	p, err := NewPreprocessor(DefaultConfig(32), nil)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 6), B: 200, A: 255})
		}
	}

	r, err := p.Preprocess(img)
	require.NoError(t, err)
	for _, v := range r.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestPreprocessErrors(t *testing.T) {
	p, err := NewPreprocessor(DefaultConfig(64), nil)
	require.NoError(t, err)

	_, err = p.Preprocess(nil)
	assert.ErrorIs(t, err, ErrNilImage)

	_, err = p.Preprocess((*image.RGBA)(nil))
	assert.ErrorIs(t, err, ErrNilImage)

	_, err = p.Preprocess((*image.NRGBA)(nil))
	assert.ErrorIs(t, err, ErrNilImage)

	assert.NotPanics(t, func() {
		_, err = p.Preprocess(&nilBackedImage{})
	})
	assert.Error(t, err)

	_, err = p.Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 10)))
	assert.Error(t, err)

	_, err = p.PreprocessBytes(nil)
	assert.ErrorIs(t, err, ErrNilImage)

	_, err = p.PreprocessBytes(&Image{})
	assert.Error(t, err)

	_, err = p.PreprocessBytes(&Image{Data: []byte("not an image")})
	assert.Error(t, err)

	_, err = NewPreprocessor(DefaultConfig(0), nil)
	assert.Error(t, err)
}

// nilBackedImage wraps a nil image and panics on first use.
type nilBackedImage struct {
	image.Image
}

func TestPreprocessBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(40, 20, color.RGBA{G: 255, A: 255})))

	p, err := NewPreprocessor(DefaultConfig(40), nil)
	require.NoError(t, err)

	r, err := p.PreprocessBytes(&Image{Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, 40, r.Letterbox.OriginalWidth)
	assert.Equal(t, 20, r.Letterbox.OriginalHeight)
	assert.InDelta(t, 1.0, at(r, 1, 20, 20), 0.01)
	require.NotNil(t, r.Source)
	assert.Equal(t, image.Pt(40, 20), r.Source.Bounds().Size())

	decoded, err := DecodeImage(&Image{Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, r.Source.Bounds(), decoded.Bounds())

	_, err = DecodeImage(nil)
	assert.ErrorIs(t, err, ErrNilImage)
}

func TestExtremeAspectRatio(t *testing.T) {
	p, err := NewPreprocessor(DefaultConfig(64), nil)
	require.NoError(t, err)

	// Resizes to zero rows, leaving a fully padded canvas.
	r, err := p.Preprocess(solidImage(1000, 1, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Letterbox.ResizeHeight)
	assert.InDelta(t, 114.0/255, at(r, 0, 32, 32), 1e-6)
}

func TestBatchPreprocess(t *testing.T) {
	p, err := NewPreprocessor(DefaultConfig(32), nil)
	require.NoError(t, err)

	imgs := []image.Image{
		solidImage(64, 32, color.RGBA{R: 255, A: 255}),
		solidImage(32, 64, color.RGBA{G: 255, A: 255}),
		solidImage(10, 10, color.RGBA{B: 255, A: 255}),
	}

	results, err := p.BatchPreprocess(imgs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, imgs[i].Bounds().Dx(), r.Letterbox.OriginalWidth)
	}

	_, err = p.BatchPreprocess([]image.Image{imgs[0], nil}, 0)
	assert.ErrorIs(t, err, ErrNilImage)
}

func BenchmarkPreprocess(b *testing.B) {
	p, err := NewPreprocessor(DefaultConfig(640), nil)
	require.NoError(b, err)
	img := solidImage(1280, 720, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Preprocess(img); err != nil {
			b.Fatal(err)
		}
	}
}
