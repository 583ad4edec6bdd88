// Package detector - runs the face model end to end: preprocessing, inference and decoding.
package detector

import (
	"errors"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-facedet/inference"
	"github.com/nvr-ai/go-facedet/models/model"
	"github.com/nvr-ai/go-facedet/models/model/preprocess"
	"github.com/nvr-ai/go-facedet/models/postprocess"
)

// Detector owns an engine and serializes calls to it.
// At most one Detect is in flight per Detector; other callers block.
type Detector struct {
	mu     sync.Mutex
	engine inference.Engine
	model  model.Model
	pre    *preprocess.Preprocessor
	log    *zap.Logger
}

// New creates a detector that feeds engine output through m.
//
// Arguments:
//   - engine: The inference engine. The detector closes it on Close.
//   - m: The model that decodes the engine output.
//   - logger: Destination for diagnostics. Nil discards them.
//
// Returns:
//   - *Detector: The detector.
//   - error: If engine or model is missing.
func New(engine inference.Engine, m model.Model, logger *zap.Logger) (*Detector, error) {
	if engine == nil || m == nil {
		return nil, errors.New("detector requires an engine and a model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pre, err := preprocess.NewPreprocessor(preprocess.DefaultConfig(m.Options().InputSize), logger)
	if err != nil {
		return nil, err
	}

	return &Detector{
		engine: engine,
		model:  m,
		pre:    pre,
		log:    logger.Named("detector"),
	}, nil
}

// Detect runs the engine on a preprocessed input and decodes its output for frame.
// Any failure yields no detections; the reason is logged.
func (d *Detector) Detect(input []float32, frame model.Frame) []postprocess.Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.engine.Run(input)
	if err != nil {
		d.log.Warn("inference failed", zap.String("output", d.engine.OutputName()), zap.Error(err))
		return nil
	}
	return d.model.PostProcess(raw, frame)
}

// DetectImage letterboxes img, runs the model and returns faces in img coordinates.
// A nil image, including a typed nil pointer, yields no detections.
func (d *Detector) DetectImage(img image.Image, scoreThreshold float32) []postprocess.Detection {
	result, err := d.pre.Preprocess(img)
	if err != nil {
		d.logPreprocessError(err)
		return nil
	}
	return d.detectResult(result, scoreThreshold)
}

// DetectBytes decodes an encoded image, honouring its EXIF orientation, and detects
// faces in it.
//
// Arguments:
//   - img: The encoded image in any registered format.
//   - scoreThreshold: The minimum confidence of a reported face.
//
// Returns:
//   - image.Image: The decoded image, or nil when it cannot be decoded.
//   - []postprocess.Detection: Faces in the coordinates of the decoded image.
func (d *Detector) DetectBytes(img *preprocess.Image, scoreThreshold float32) (image.Image, []postprocess.Detection) {
	result, err := d.pre.PreprocessBytes(img)
	if err != nil {
		d.logPreprocessError(err)
		return nil, nil
	}
	return result.Source, d.detectResult(result, scoreThreshold)
}

// DetectBatch preprocesses imgs concurrently, then runs the engine on each in turn.
//
// Arguments:
//   - imgs: The images to detect faces in.
//   - scoreThreshold: The minimum confidence of a reported face.
//   - concurrency: The number of images preprocessed at once.
//
// Returns:
//   - [][]postprocess.Detection: One entry per image, in input order. Every entry is
//     nil when any image cannot be preprocessed.
func (d *Detector) DetectBatch(imgs []image.Image, scoreThreshold float32, concurrency int) [][]postprocess.Detection {
	out := make([][]postprocess.Detection, len(imgs))
	results, err := d.pre.BatchPreprocess(imgs, concurrency)
	if err != nil {
		d.logPreprocessError(err)
		return out
	}
	for i, r := range results {
		out[i] = d.detectResult(r, scoreThreshold)
	}
	return out
}

func (d *Detector) detectResult(result *preprocess.Result, scoreThreshold float32) []postprocess.Detection {
	return d.Detect(result.Data, model.Frame{
		OriginalWidth:  result.Letterbox.OriginalWidth,
		OriginalHeight: result.Letterbox.OriginalHeight,
		ScoreThreshold: scoreThreshold,
	})
}

func (d *Detector) logPreprocessError(err error) {
	if errors.Is(err, preprocess.ErrNilImage) {
		d.log.Debug("no image")
		return
	}
	d.log.Warn("preprocessing failed", zap.Error(err))
}

// Close releases the engine.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Close()
}
