package decode

import (
	"math"
	"slices"

	"github.com/nvr-ai/go-facedet/images"
)

const (
	// FallbackStride is used when no stride can be inferred and no hypothesis scores.
	FallbackStride = 8
	// DefaultMinBoxSize is the side, in original pixels, a box must exceed to count.
	DefaultMinBoxSize = 24
)

// DefaultStrides are the feature-map strides tried by Search, before the inferred one is promoted.
var DefaultStrides = []int{4, 8, 16, 32, 64}

// SearchConfig holds the knobs of the decode-convention search.
type SearchConfig struct {
	// Strides to try. Empty means DefaultStrides.
	Strides []int
	// ScoreThreshold is the confidence a record needs to be counted.
	ScoreThreshold float32
	// MinBoxSize is the width and height a decoded box must exceed. Zero means DefaultMinBoxSize.
	MinBoxSize float32
}

func (c SearchConfig) strides() []int {
	if len(c.Strides) == 0 {
		return DefaultStrides
	}
	return c.Strides
}

func (c SearchConfig) minBoxSize() float32 {
	if c.MinBoxSize <= 0 {
		return DefaultMinBoxSize
	}
	return c.MinBoxSize
}

// Selection is the outcome of Search.
type Selection struct {
	Hypothesis
	// Score is the number of records the hypothesis turned into plausible boxes.
	Score int `json:"score"`
	// Inferred is the stride guessed from the cx spacing, 0 if none.
	Inferred int `json:"inferred"`
	// Fallback is true when no hypothesis scored and the default was used.
	Fallback bool `json:"fallback"`
}

// InferStride guesses the grid stride from the spacing of the rounded cx values.
//
// The distinct rounded centres are sorted and differenced; differences outside
// (0, inputSize) are discarded, as are NaN or infinite centres. The most frequent difference above 1 wins, the
// smallest one on ties. If no difference repeats the gcd of all differences
// above 1 is used instead.
//
// Returns:
//   - int: The inferred stride, or 0 when nothing above 1 can be inferred.
func InferStride(preds []Prediction, inputSize int) int {
	uniq := make([]int, 0, len(preds))
	for _, p := range preds {
		if !images.IsFinite(p.CX) {
			continue
		}
		uniq = append(uniq, int(math.Round(float64(p.CX))))
	}
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	counts := make(map[int]int)
	var diffs []int
	for i := 1; i < len(uniq); i++ {
		d := uniq[i] - uniq[i-1]
		if d > 1 && d < inputSize {
			diffs = append(diffs, d)
			counts[d]++
		}
	}

	best, bestCount := 0, 0
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	if bestCount > 1 {
		return best
	}

	g := 0
	for _, d := range diffs {
		g = gcd(g, d)
	}
	if g > 1 {
		return g
	}
	return 0
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// CandidateStrides returns seed with inferred moved, or inserted, at the front.
// The seed slice is not modified.
func CandidateStrides(seed []int, inferred int) []int {
	if inferred <= 1 {
		return slices.Clone(seed)
	}
	out := make([]int, 0, len(seed)+1)
	out = append(out, inferred)
	for _, s := range seed {
		if s != inferred {
			out = append(out, s)
		}
	}
	return out
}

// Hypotheses enumerates every (stride, mode, size) combination, strides outermost.
func Hypotheses(strides []int) []Hypothesis {
	out := make([]Hypothesis, 0, len(strides)*len(Modes)*len(SizeEncodings))
	for _, s := range strides {
		for _, m := range Modes {
			for _, e := range SizeEncodings {
				out = append(out, Hypothesis{Stride: s, Mode: m, Size: e})
			}
		}
	}
	return out
}

// Score counts the records with conf >= cfg.ScoreThreshold whose box, decoded with h
// and mapped back through lb without clipping, is wider and taller than the minimum size.
func Score(preds []Prediction, h Hypothesis, lb images.Letterbox, cfg SearchConfig) int {
	minSize := cfg.minBoxSize()
	good := 0
	for _, p := range preds {
		if !images.IsFinite(p.Conf) || p.Conf < cfg.ScoreThreshold {
			continue
		}
		box := lb.InverseRect(ModelBox(p, h, false, lb.InputSize))
		if box.X2-box.X1 > minSize && box.Y2-box.Y1 > minSize {
			good++
		}
	}
	return good
}

// Search picks the decode hypothesis that yields the most plausible boxes.
//
// Every hypothesis is scored; the first one with the highest score wins. When all
// scores are zero the result is (inferred or FallbackStride, ModeGridOffset, SizeLinear).
// The result depends only on its inputs.
//
// Arguments:
//   - preds: Prediction records in pixel or grid units (not normalized).
//   - lb: Letterbox used by preprocessing.
//   - cfg: Strides, score threshold and minimum box size.
//
// Returns:
//   - Selection: The chosen hypothesis with its score and the inferred stride.
func Search(preds []Prediction, lb images.Letterbox, cfg SearchConfig) Selection {
	inferred := InferStride(preds, lb.InputSize)
	strides := CandidateStrides(cfg.strides(), inferred)

	sel := Selection{Score: -1, Inferred: inferred}
	for _, h := range Hypotheses(strides) {
		if score := Score(preds, h, lb, cfg); score > sel.Score {
			sel.Hypothesis = h
			sel.Score = score
		}
	}

	if sel.Score <= 0 {
		stride := FallbackStride
		if inferred > 1 {
			stride = inferred
		}
		sel.Hypothesis = Hypothesis{Stride: stride, Mode: ModeGridOffset, Size: SizeLinear}
		sel.Score = 0
		sel.Fallback = true
	}

	return sel
}
