package decode

import (
	"github.com/nvr-ai/go-facedet/images"
)

// Options configures Decode.
type Options struct {
	Search SearchConfig
	// NormalizedLimit is the MaxCoord at or below which records are treated as normalized.
	// Zero means DefaultNormalizedLimit.
	NormalizedLimit float32
	// SwapWH exchanges the w and h fields of every record before decoding.
	SwapWH bool
}

// Result holds the output of the first three decode stages.
type Result struct {
	Predictions []Prediction
	Layout      Layout
	Stats       Stats
	Normalized  bool
	// Selection is the zero value when Normalized is true.
	Selection Selection
}

// Decode normalizes the tensor layout, classifies the coordinate scale and, for
// pixel or grid units, searches for the decode hypothesis.
//
// Arguments:
//   - t: The raw head output.
//   - lb: Letterbox used by preprocessing.
//   - opts: Decode options.
//
// Returns:
//   - Result: The records and how to read them.
//   - error: ErrInvalidShape (wrapped) when the tensor cannot be read.
func Decode(t RawTensor, lb images.Letterbox, opts Options) (Result, error) {
	preds, layout, err := Normalize(t)
	if err != nil {
		return Result{}, err
	}
	if opts.SwapWH {
		preds = SwapWH(preds)
	}

	limit := opts.NormalizedLimit
	if limit <= 0 {
		limit = DefaultNormalizedLimit
	}

	res := Result{
		Predictions: preds,
		Layout:      layout,
		Stats:       Summarize(preds),
	}
	res.Normalized = res.Stats.Normalized(limit)
	if !res.Normalized {
		res.Selection = Search(preds, lb, opts.Search)
	}

	return res, nil
}

// Box returns the model input box of record i.
func (r Result) Box(i int, inputSize int) images.Rect {
	return ModelBox(r.Predictions[i], r.Selection.Hypothesis, r.Normalized, inputSize)
}
