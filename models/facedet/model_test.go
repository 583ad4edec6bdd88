package facedet

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/go-facedet/models/decode"
	"github.com/nvr-ai/go-facedet/models/model"
)

func newTestModel(t testing.TB) *Model {
	t.Helper()
	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameFaceDet}, DefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

// channelFields packs records as a (5, 1, N) tensor.
func channelFields(recs ...decode.Prediction) decode.RawTensor {
	n := len(recs)
	data := make([]float32, decode.FieldsPerRecord*n)
	for i, r := range recs {
		data[i] = r.CX
		data[n+i] = r.CY
		data[2*n+i] = r.W
		data[3*n+i] = r.H
		data[4*n+i] = r.Conf
	}
	return decode.RawTensor{C: decode.FieldsPerRecord, H: 1, W: n, Data: data}
}

func frame640(threshold float32) model.Frame {
	return model.Frame{OriginalWidth: 640, OriginalHeight: 640, ScoreThreshold: threshold}
}

func TestPostProcess_SingleFaceWithNoise(t *testing.T) {
	m := newTestModel(t)
	raw := channelFields(
		decode.Prediction{CX: 10, CY: 10, W: 5, H: 5, Conf: 0.1},
		decode.Prediction{CX: 320, CY: 320, W: 100, H: 100, Conf: 0.9},
		decode.Prediction{CX: 600, CY: 600, W: 5, H: 5, Conf: 0.1},
	)

	dets := m.PostProcess(raw, frame640(0.5))
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, float32(0.9), d.Score)
	assert.InDelta(t, 320, d.X+d.Width/2, 0.5)
	assert.InDelta(t, 320, d.Y+d.Height/2, 0.5)
	assert.InDelta(t, 100, d.Width, 1)
	assert.InDelta(t, 100, d.Height, 1)
}

func TestPostProcess_Degenerate(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		name  string
		raw   decode.RawTensor
		frame model.Frame
	}{
		{"no channels", decode.RawTensor{C: 0, H: 1, W: 5}, frame640(0.5)},
		{"too few elements", decode.RawTensor{C: 1, H: 1, W: 4, Data: []float32{1, 2, 3, 4}}, frame640(0.5)},
		{"not divisible", decode.RawTensor{C: 2, H: 1, W: 3, Data: make([]float32, 6)}, frame640(0.5)},
		{"short buffer", decode.RawTensor{C: 5, H: 1, W: 100, Data: make([]float32, 5)}, frame640(0.5)},
		{"zero frame", channelFields(decode.Prediction{CX: 320, CY: 320, W: 100, H: 100, Conf: 0.9}), model.Frame{ScoreThreshold: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, m.PostProcess(tt.raw, tt.frame))
			})
		})
	}
}

func TestPostProcess_LayoutInvariance(t *testing.T) {
	m := newTestModel(t)
	recs := []decode.Prediction{
		{CX: 320, CY: 320, W: 100, H: 100, Conf: 0.9},
		{CX: 100, CY: 150, W: 60, H: 80, Conf: 0.8},
		{CX: 500, CY: 120, W: 70, H: 70, Conf: 0.3},
	}

	a := channelFields(recs...)
	b := decode.RawTensor{C: 1, H: decode.FieldsPerRecord, W: len(recs), Data: a.Data}
	var boxes []float32
	for _, r := range recs {
		boxes = append(boxes, r.CX, r.CY, r.W, r.H, r.Conf)
	}
	c := decode.RawTensor{C: len(recs), H: 1, W: decode.FieldsPerRecord, Data: boxes}

	want := m.PostProcess(a, frame640(0.5))
	require.Len(t, want, 2)
	assert.Equal(t, want, m.PostProcess(b, frame640(0.5)))
	assert.Equal(t, want, m.PostProcess(c, frame640(0.5)))
}

func TestPostProcess_NormalizedOutput(t *testing.T) {
	m := newTestModel(t)
	raw := channelFields(decode.Prediction{CX: 0.5, CY: 0.5, W: 0.25, H: 0.25, Conf: 0.95})

	dets := m.PostProcess(raw, model.Frame{OriginalWidth: 1280, OriginalHeight: 720, ScoreThreshold: 0.5})
	require.Len(t, dets, 1)

	// 160px in model space at scale 0.5, centred on the image.
	d := dets[0]
	assert.InDelta(t, 320, d.Width, 1)
	assert.InDelta(t, 320, d.Height, 1)
	assert.InDelta(t, 640, d.X+d.Width/2, 1)
	assert.InDelta(t, 360, d.Y+d.Height/2, 1)
}

func TestPostProcess_GridOutputCollapsesToOneFace(t *testing.T) {
	m := newTestModel(t)

	// Neighbouring grid cells all firing on the same face. Unit spacing gives no stride
	// hint, so the smallest seeded stride that yields plausible boxes (4) is chosen.
	var recs []decode.Prediction
	for gy := 38; gy <= 42; gy++ {
		for gx := 38; gx <= 42; gx++ {
			recs = append(recs, decode.Prediction{
				CX:   float32(gx),
				CY:   float32(gy),
				W:    12,
				H:    12,
				Conf: 0.6 + 0.01*float32(gx+gy-76),
			})
		}
	}

	dets := m.PostProcess(channelFields(recs...), frame640(0.5))
	require.Len(t, dets, 1)
	assert.InDelta(t, 0.68, dets[0].Score, 1e-6)
	assert.InDelta(t, 160, dets[0].X+dets[0].Width/2, 8)
	assert.InDelta(t, 48, dets[0].Width, 1e-3)
}

func TestPostProcess_ThresholdAboveEveryRecord(t *testing.T) {
	m := newTestModel(t)
	raw := channelFields(
		decode.Prediction{CX: 320, CY: 320, W: 100, H: 100, Conf: 0.4},
		decode.Prediction{CX: 100, CY: 100, W: 50, H: 50, Conf: 0.3},
	)
	assert.Empty(t, m.PostProcess(raw, frame640(0.5)))
}

func TestPostProcess_NonFiniteRecords(t *testing.T) {
	m := newTestModel(t)
	nan := math32.NaN()
	inf := math32.Inf(1)

	tests := []struct {
		name  string
		face  decode.Prediction
		bad   decode.Prediction
		wantX float32
		wantW float32
	}{
		{
			"normalized with nan centre",
			decode.Prediction{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2, Conf: 0.9},
			decode.Prediction{CX: nan, CY: 0.4, W: 0.1, H: 0.1, Conf: 0.8},
			256, 128,
		},
		{
			"normalized with infinite size",
			decode.Prediction{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2, Conf: 0.9},
			decode.Prediction{CX: 0.3, CY: 0.3, W: inf, H: 0.1, Conf: 0.8},
			256, 128,
		},
		{
			"pixels with nan score",
			decode.Prediction{CX: 320, CY: 320, W: 128, H: 128, Conf: 0.9},
			decode.Prediction{CX: 320, CY: 330, W: 100, H: 100, Conf: nan},
			256, 128,
		},
		{
			"pixels with nan box",
			decode.Prediction{CX: 320, CY: 320, W: 128, H: 128, Conf: 0.9},
			decode.Prediction{CX: nan, CY: 330, W: nan, H: 90, Conf: 0.95},
			256, 128,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean := m.PostProcess(channelFields(tt.face), frame640(0.5))
			require.Len(t, clean, 1)

			dets := m.PostProcess(channelFields(tt.face, tt.bad), frame640(0.5))
			require.Len(t, dets, 1)
			assert.Equal(t, clean, dets)
			assert.InDelta(t, tt.wantX, dets[0].X, 1e-3)
			assert.InDelta(t, tt.wantW, dets[0].Width, 1e-3)
			assert.Equal(t, float32(0.9), dets[0].Score)
		})
	}
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{InputSize: 320, Path: "face.onnx"}, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 320, m.Config().InputSize)
	assert.Equal(t, model.ModelNameFaceDet, m.Options().Name)
	assert.Equal(t, model.ModelFamilyYOLO, m.Options().Family)
	assert.Equal(t, "face.onnx", m.Options().Path)

	bad := DefaultConfig()
	bad.ClusterIoU = 0
	_, err = NewModel(model.NewModelArgs{}, bad, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"input size", func(c *Config) { c.InputSize = 0 }},
		{"score threshold", func(c *Config) { c.ScoreThreshold = 1.5 }},
		{"normalized limit", func(c *Config) { c.NormalizedLimit = 0 }},
		{"no strides", func(c *Config) { c.Strides = nil }},
		{"negative stride", func(c *Config) { c.Strides = []int{8, -1} }},
		{"min box size", func(c *Config) { c.MinBoxSize = 0 }},
		{"area ratio", func(c *Config) { c.MaxAreaRatio = 2 }},
		{"cluster radius", func(c *Config) { c.ClusterRadius = -1 }},
		{"cluster iou", func(c *Config) { c.ClusterIoU = 0 }},
		{"nms iou", func(c *Config) { c.IoUThreshold = 1.1 }},
		{"max detections", func(c *Config) { c.MaxDetections = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func BenchmarkPostProcess(b *testing.B) {
	m, err := NewModel(model.NewModelArgs{}, DefaultConfig(), nil)
	require.NoError(b, err)

	// An 80x80 stride-8 head with a handful of confident cells.
	var recs []decode.Prediction
	for gy := 0; gy < 80; gy++ {
		for gx := 0; gx < 80; gx++ {
			conf := float32(0.01)
			if (gx%20 == 10 || gx%20 == 11) && (gy%20 == 10 || gy%20 == 11) {
				conf = 0.8
			}
			recs = append(recs, decode.Prediction{CX: float32(gx), CY: float32(gy), W: 6, H: 6, Conf: conf})
		}
	}
	raw := channelFields(recs...)
	frame := model.Frame{OriginalWidth: 1920, OriginalHeight: 1080, ScoreThreshold: 0.5}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.PostProcess(raw, frame)
	}
}
