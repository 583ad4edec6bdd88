// Package preprocess - letterbox preprocessing of images into model input tensors.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-facedet/images"
)

// ErrNilImage is returned when there is no image to preprocess.
var ErrNilImage = errors.New("image is nil")

// Image is an encoded input image in any registered format, including WebP.
type Image struct {
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
}

// DefaultPadColor is the gray used by the face model for letterbox padding.
var DefaultPadColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Config defines how an image becomes a model input.
type Config struct {
	// InputSize is the side of the square model input.
	InputSize int
	// PadColor fills the letterbox padding.
	PadColor color.RGBA
	// Interpolation is the resampling kernel used for the resize.
	Interpolation resize.InterpolationFunction
}

// DefaultConfig returns the preprocessing of the face model: gray padding,
// bilinear resize, RGB scaled to [0, 1] in CHW order.
func DefaultConfig(inputSize int) Config {
	return Config{
		InputSize:     inputSize,
		PadColor:      DefaultPadColor,
		Interpolation: resize.Bilinear,
	}
}

// Result contains the preprocessed tensor and the letterbox that produced it.
type Result struct {
	// Data is the [1, 3, S, S] tensor in CHW order, RGB, values in [0, 1].
	Data []float32
	// Letterbox maps model input coordinates back to the source image.
	Letterbox images.Letterbox
	// Shape is the tensor shape [C, H, W].
	Shape []int
	// Source is the image the tensor was built from.
	Source image.Image
}

// Preprocessor handles image preprocessing for the face model.
type Preprocessor struct {
	config Config
	log    *zap.Logger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The preprocessing configuration.
//   - logger: Destination for debug output. Nil discards it.
//
// Returns:
//   - *Preprocessor: A configured Preprocessor instance.
//   - error: If the input size is not positive.
//
// @example
// p, err := NewPreprocessor(DefaultConfig(640), logger)
func NewPreprocessor(config Config, logger *zap.Logger) (*Preprocessor, error) {
	if config.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size: %d", config.InputSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Preprocessor{
		config: config,
		log:    logger,
	}, nil
}

// InputSize returns the side of the square model input.
func (p *Preprocessor) InputSize() int {
	return p.config.InputSize
}

// Preprocess letterboxes a decoded image into a model input tensor.
//
// Arguments:
//   - img: The image to preprocess.
//
// Returns:
//   - *Result: The tensor and its letterbox.
//   - error: ErrNilImage for a nil image, including a typed nil, or an error for an empty one.
//
// @example
// result, err := p.Preprocess(img)
//
//	if err != nil {
//	    return err
//	}
//
// raw, err := engine.Run(result.Data)
func (p *Preprocessor) Preprocess(img image.Image) (result *Result, err error) {
	if isNil(img) {
		return nil, ErrNilImage
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, errors.Errorf("preprocessing %T: %v", img, r)
		}
	}()

	bounds := img.Bounds()
	lb, err := images.NewLetterbox(bounds.Dx(), bounds.Dy(), p.config.InputSize)
	if err != nil {
		return nil, errors.Wrap(err, "letterbox")
	}

	canvas := p.letterbox(img, lb)
	size := p.config.InputSize

	p.log.Debug("preprocessed",
		zap.Int("width", lb.OriginalWidth),
		zap.Int("height", lb.OriginalHeight),
		zap.Float32("scale", lb.Scale),
		zap.Float32("pad_x", lb.PadX),
		zap.Float32("pad_y", lb.PadY),
	)

	return &Result{
		Data:      toCHW(canvas),
		Letterbox: lb,
		Shape:     []int{3, size, size},
		Source:    img,
	}, nil
}

// isNil catches nil interfaces and nil pointers of the standard image types.
func isNil(img image.Image) bool {
	switch v := img.(type) {
	case nil:
		return true
	case *image.RGBA:
		return v == nil
	case *image.NRGBA:
		return v == nil
	case *image.RGBA64:
		return v == nil
	case *image.NRGBA64:
		return v == nil
	case *image.Gray:
		return v == nil
	case *image.Gray16:
		return v == nil
	case *image.Alpha:
		return v == nil
	case *image.YCbCr:
		return v == nil
	case *image.NYCbCrA:
		return v == nil
	case *image.CMYK:
		return v == nil
	case *image.Paletted:
		return v == nil
	case *image.Uniform:
		return v == nil
	}
	return false
}

// PreprocessBytes decodes an encoded image, honouring its EXIF orientation,
// and preprocesses it.
func (p *Preprocessor) PreprocessBytes(img *Image) (*Result, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if len(img.Data) == 0 {
		return nil, errors.New("image data is empty")
	}

	decoded, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}
	return p.Preprocess(decoded)
}

// DecodeImage decodes an encoded image, honouring its EXIF orientation.
func DecodeImage(img *Image) (image.Image, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "image decoding failed")
	}
	return decoded, nil
}

// letterbox resizes img to the letterbox size and pastes it on a padded square canvas.
func (p *Preprocessor) letterbox(img image.Image, lb images.Letterbox) *image.RGBA {
	size := p.config.InputSize
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: p.config.PadColor}, image.Point{}, draw.Src)

	// nfnt/resize treats a zero dimension as "keep aspect ratio".
	if lb.ResizeWidth == 0 || lb.ResizeHeight == 0 {
		return canvas
	}

	resized := resize.Resize(uint(lb.ResizeWidth), uint(lb.ResizeHeight), img, p.config.Interpolation)
	left, top := lb.PadOrigin()
	draw.Draw(canvas, image.Rect(left, top, left+lb.ResizeWidth, top+lb.ResizeHeight),
		resized, resized.Bounds().Min, draw.Src)
	return canvas
}

// toCHW converts an RGBA canvas into planar RGB scaled to [0, 1].
func toCHW(img *image.RGBA) []float32 {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	plane := width * height
	tensor := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			i := y*width + x
			tensor[i] = float32(px[0]) / 255
			tensor[plane+i] = float32(px[1]) / 255
			tensor[2*plane+i] = float32(px[2]) / 255
		}
	}
	return tensor
}

// BatchPreprocess processes multiple images in parallel.
//
// Arguments:
//   - imgs: Slice of images to preprocess.
//   - maxConcurrency: Maximum number of images to process concurrently.
//
// Returns:
//   - []*Result: One result per image, in input order.
//   - error: The first preprocessing error, if any.
func (p *Preprocessor) BatchPreprocess(imgs []image.Image, maxConcurrency int) ([]*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	results := make([]*Result, len(imgs))
	errs := make([]error, len(imgs))

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, img := range imgs {
		wg.Add(1)
		go func(idx int, img image.Image) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := p.Preprocess(img)
			if err != nil {
				errs[idx] = fmt.Errorf("failed to preprocess image %d: %w", idx, err)
			} else {
				results[idx] = result
			}
		}(i, img)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
