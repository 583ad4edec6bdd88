package decode

import (
	"github.com/chewxy/math32"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-facedet/images"
)

// DefaultNormalizedLimit is the largest coordinate magnitude still read as normalized [0, 1]
// output. The slack above 1 absorbs boxes that spill slightly past the image edge.
const DefaultNormalizedLimit = 1.01

// Stats summarizes a batch of prediction records.
type Stats struct {
	N        int     `json:"n"`
	MaxCoord float32 `json:"maxCoord"`
	ConfMin  float32 `json:"confMin"`
	ConfMax  float32 `json:"confMax"`
	ConfMean float32 `json:"confMean"`
}

// Summarize computes Stats over preds. MaxCoord is the largest absolute value of
// any cx, cy, w or h field. NaN and infinite fields are skipped, so a single
// corrupt record cannot change how the rest of the frame is read.
func Summarize(preds []Prediction) Stats {
	s := Stats{N: len(preds)}
	if len(preds) == 0 {
		return s
	}

	s.ConfMin = math32.Inf(1)
	s.ConfMax = math32.Inf(-1)
	var sum float64
	var confs int
	for _, p := range preds {
		for _, v := range [...]float32{p.CX, p.CY, p.W, p.H} {
			if images.IsFinite(v) {
				s.MaxCoord = math32.Max(s.MaxCoord, math32.Abs(v))
			}
		}
		if !images.IsFinite(p.Conf) {
			continue
		}
		s.ConfMin = math32.Min(s.ConfMin, p.Conf)
		s.ConfMax = math32.Max(s.ConfMax, p.Conf)
		sum += float64(p.Conf)
		confs++
	}
	if confs == 0 {
		s.ConfMin, s.ConfMax = 0, 0
		return s
	}
	s.ConfMean = float32(sum / float64(confs))

	return s
}

// Normalized reports whether the coordinates look like fractions of the input size.
func (s Stats) Normalized(limit float32) bool {
	return s.MaxCoord <= limit
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("n", s.N)
	enc.AddFloat32("maxCoord", s.MaxCoord)
	enc.AddFloat32("confMin", s.ConfMin)
	enc.AddFloat32("confMax", s.ConfMax)
	enc.AddFloat32("confMean", s.ConfMean)
	return nil
}

// Sample returns at most n records from the head of preds, for debug logging.
func Sample(preds []Prediction, n int) []Prediction {
	if n < 0 {
		n = 0
	}
	if len(preds) < n {
		n = len(preds)
	}
	return preds[:n]
}
