// Package facedet - Single-class face detector: turns a raw head tensor into de-duplicated
// face boxes in original image coordinates.
package facedet

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-facedet/images"
	"github.com/nvr-ai/go-facedet/models/decode"
	"github.com/nvr-ai/go-facedet/models/model"
	"github.com/nvr-ai/go-facedet/models/postprocess"
)

// Model is the instance of the face detection model.
type Model struct {
	options model.BaseModel
	config  Config
	log     *zap.Logger
}

// NewModel creates a new face detection model.
//
// Arguments:
//   - args: The model identity and tensor names.
//   - config: The decode tuning.
//   - logger: Destination for diagnostics. Nil discards them.
//
// Returns:
//   - The model.
//   - An error if config is invalid or args disagree with it.
func NewModel(args model.NewModelArgs, config Config, logger *zap.Logger) (*Model, error) {
	if args.InputSize != 0 {
		config.InputSize = args.InputSize
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("NewModel: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	family := args.Family
	if family == "" {
		family = model.ModelFamilyYOLO
	}

	return &Model{
		options: model.BaseModel{
			Name:      model.ModelNameFaceDet,
			Family:    family,
			Path:      args.Path,
			InputSize: config.InputSize,
			Inputs:    args.Inputs,
			Outputs:   args.Outputs,
		},
		config: config,
		log:    logger.Named("facedet"),
	}, nil
}

// Options returns the identity of the model.
func (m *Model) Options() model.BaseModel {
	return m.options
}

// Config returns the decode tuning in use.
func (m *Model) Config() Config {
	return m.config
}

// PostProcess decodes one head output into final detections.
//
// The tensor layout and decode convention are inferred from the data. Boxes are
// mapped back through the letterbox, filtered, merged into clusters and suppressed.
// Every failure is logged and yields no detections.
//
// Arguments:
//   - raw: The head output.
//   - frame: The original image size and the score threshold.
//
// Returns:
//   - []postprocess.Detection: At most MaxDetections boxes by descending score, or nil.
func (m *Model) PostProcess(raw decode.RawTensor, frame model.Frame) []postprocess.Detection {
	lb, err := images.NewLetterbox(frame.OriginalWidth, frame.OriginalHeight, m.config.InputSize)
	if err != nil {
		m.log.Warn("invalid frame", zap.Error(err))
		return nil
	}

	res, err := decode.Decode(raw, lb, m.config.decodeOptions(frame.ScoreThreshold))
	if err != nil {
		m.log.Warn("cannot read output tensor",
			zap.Int("c", raw.C), zap.Int("h", raw.H), zap.Int("w", raw.W), zap.Error(err))
		return nil
	}
	m.logDecode(res)

	boxes := make([]postprocess.Candidate, 0, len(res.Predictions))
	for i, p := range res.Predictions {
		if !images.IsFinite(p.Conf) || p.Conf < frame.ScoreThreshold {
			continue
		}
		box := lb.InverseRect(res.Box(i, lb.InputSize))
		if !box.Finite() {
			continue
		}
		boxes = append(boxes, postprocess.NewCandidate(box, p.Conf))
	}

	cands := postprocess.Filter(boxes, lb, postprocess.FilterConfig{
		ScoreThreshold: frame.ScoreThreshold,
		MinBoxSize:     m.config.MinBoxSize,
		MaxAreaRatio:   m.config.MaxAreaRatio,
	})
	m.logCandidates(cands)

	merged := postprocess.MergeClusters(cands, postprocess.MergeConfig{
		Radius: m.config.ClusterRadius,
		IoU:    m.config.ClusterIoU,
	})
	final := postprocess.ApplyGreedyNMS(merged, postprocess.NMSConfig{
		IoUThreshold:  m.config.IoUThreshold,
		MaxDetections: m.config.MaxDetections,
	})

	m.log.Debug("decoded frame",
		zap.Int("candidates", len(cands)),
		zap.Int("merged", len(merged)),
		zap.Int("detections", len(final)))

	return postprocess.ToDetections(final)
}

func (m *Model) logDecode(res decode.Result) {
	if !m.log.Core().Enabled(zap.DebugLevel) {
		return
	}

	fields := []zap.Field{
		zap.String("layout", string(res.Layout)),
		zap.Object("stats", res.Stats),
		zap.Bool("normalized", res.Normalized),
		zap.Any("sample", decode.Sample(res.Predictions, m.config.RawSampleSize)),
	}
	if !res.Normalized {
		fields = append(fields,
			zap.Int("inferredStride", res.Selection.Inferred),
			zap.Stringer("hypothesis", res.Selection.Hypothesis),
			zap.Int("hypothesisScore", res.Selection.Score),
			zap.Bool("fallback", res.Selection.Fallback))
	}
	m.log.Debug("decode selection", fields...)
}

func (m *Model) logCandidates(cands []postprocess.Candidate) {
	if !m.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	if median, ok := postprocess.NearestNeighborMedian(cands, m.config.NeighborSample); ok {
		m.log.Debug("candidate spacing",
			zap.Float32("nearestNeighborMedian", median),
			zap.Int("sample", min(len(cands), m.config.NeighborSample)))
	}
}
