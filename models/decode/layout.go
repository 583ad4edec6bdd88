package decode

import (
	"errors"
	"fmt"
)

// FieldsPerRecord is the number of values per prediction: cx, cy, w, h, conf.
const FieldsPerRecord = 5

var (
	// ErrInvalidShape is returned when a tensor cannot be read as prediction records.
	ErrInvalidShape = errors.New("invalid tensor shape")
	// ErrLayoutMismatch is returned by a layout matcher that does not apply to the tensor.
	ErrLayoutMismatch = errors.New("layout does not match")
)

// Layout identifies how prediction records are laid out in a RawTensor.
type Layout string

const (
	// LayoutChannelFields is (5, 1, N): field i lives in channel i.
	LayoutChannelFields Layout = "channel-fields"
	// LayoutRowFields is (1, 5, N): field i lives in row i.
	LayoutRowFields Layout = "row-fields"
	// LayoutChannelBoxes is (N, 1, 5): one record per channel.
	LayoutChannelBoxes Layout = "channel-boxes"
	// LayoutFlat reinterprets the channel-major flattening as consecutive 5-tuples.
	LayoutFlat Layout = "flat"
)

type matcher struct {
	layout Layout
	match  func(RawTensor) ([]Prediction, error)
}

// matchers are tried in order; the first one that does not return ErrLayoutMismatch wins.
var matchers = []matcher{
	{LayoutChannelFields, matchChannelFields},
	{LayoutRowFields, matchRowFields},
	{LayoutChannelBoxes, matchChannelBoxes},
	{LayoutFlat, matchFlat},
}

// Normalize reads the tensor as a list of prediction records.
//
// A (5, 1, N) tensor is always read field-per-channel even though (N, 1, 5) style
// reading would also be possible for N = 5; the order of the matchers decides.
//
// Arguments:
//   - t: The raw head output.
//
// Returns:
//   - []Prediction: One record per candidate, in tensor order.
//   - Layout: The layout that was recognized.
//   - error: ErrInvalidShape (wrapped) when no layout can read the tensor.
func Normalize(t RawTensor) ([]Prediction, Layout, error) {
	if t.C <= 0 || t.H <= 0 || t.W <= 0 {
		return nil, "", fmt.Errorf("%w: non-positive axis in (%d, %d, %d)", ErrInvalidShape, t.C, t.H, t.W)
	}
	if t.Len() < FieldsPerRecord {
		return nil, "", fmt.Errorf("%w: %d elements, need at least %d", ErrInvalidShape, t.Len(), FieldsPerRecord)
	}
	if len(t.Data) < t.Len() {
		return nil, "", fmt.Errorf("%w: buffer holds %d elements, shape needs %d", ErrInvalidShape, len(t.Data), t.Len())
	}

	for _, m := range matchers {
		preds, err := m.match(t)
		if errors.Is(err, ErrLayoutMismatch) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return preds, m.layout, nil
	}

	return nil, "", fmt.Errorf("%w: no layout matches (%d, %d, %d)", ErrInvalidShape, t.C, t.H, t.W)
}

func matchChannelFields(t RawTensor) ([]Prediction, error) {
	if t.C != FieldsPerRecord || t.H != 1 {
		return nil, ErrLayoutMismatch
	}
	preds := make([]Prediction, t.W)
	for i := range preds {
		preds[i] = Prediction{
			CX:   t.At(0, 0, i),
			CY:   t.At(1, 0, i),
			W:    t.At(2, 0, i),
			H:    t.At(3, 0, i),
			Conf: t.At(4, 0, i),
		}
	}
	return preds, nil
}

func matchRowFields(t RawTensor) ([]Prediction, error) {
	if t.C != 1 || t.H != FieldsPerRecord {
		return nil, ErrLayoutMismatch
	}
	preds := make([]Prediction, t.W)
	for i := range preds {
		preds[i] = Prediction{
			CX:   t.At(0, 0, i),
			CY:   t.At(0, 1, i),
			W:    t.At(0, 2, i),
			H:    t.At(0, 3, i),
			Conf: t.At(0, 4, i),
		}
	}
	return preds, nil
}

func matchChannelBoxes(t RawTensor) ([]Prediction, error) {
	if t.H != 1 || t.W != FieldsPerRecord || t.C <= 1 {
		return nil, ErrLayoutMismatch
	}
	preds := make([]Prediction, t.C)
	for i := range preds {
		preds[i] = Prediction{
			CX:   t.At(i, 0, 0),
			CY:   t.At(i, 0, 1),
			W:    t.At(i, 0, 2),
			H:    t.At(i, 0, 3),
			Conf: t.At(i, 0, 4),
		}
	}
	return preds, nil
}

func matchFlat(t RawTensor) ([]Prediction, error) {
	total := t.Len()
	if total%FieldsPerRecord != 0 {
		return nil, fmt.Errorf("%w: %d elements not divisible by %d", ErrInvalidShape, total, FieldsPerRecord)
	}
	preds := make([]Prediction, total/FieldsPerRecord)
	for i := range preds {
		rec := t.Data[i*FieldsPerRecord : (i+1)*FieldsPerRecord]
		preds[i] = Prediction{CX: rec[0], CY: rec[1], W: rec[2], H: rec[3], Conf: rec[4]}
	}
	return preds, nil
}
