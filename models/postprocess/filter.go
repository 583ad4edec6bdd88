package postprocess

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-facedet/images"
)

const (
	// DefaultMinBoxSize is the side, in original pixels, a box must exceed.
	DefaultMinBoxSize = 24
	// DefaultMaxAreaRatio is the largest fraction of the image a single box may cover.
	DefaultMaxAreaRatio = 0.5
	// DefaultNeighborSample bounds the number of candidates NearestNeighborMedian looks at.
	DefaultNeighborSample = 1000
)

// FilterConfig defines the plausibility rules for decoded boxes.
type FilterConfig struct {
	ScoreThreshold float32 // Minimum confidence, inclusive.
	MinBoxSize     float32 // Width and height must be strictly greater.
	MaxAreaRatio   float32 // Area must not exceed this fraction of the original image.
}

// Filter keeps the plausible boxes.
//
// Each box is dropped if its score or a corner is NaN or infinite, or if its score is
// below the threshold. Survivors are clipped to
// the image, then dropped if either side is at most MinBoxSize or the area exceeds
// MaxAreaRatio of the image.
//
// Arguments:
//   - boxes: Candidates in original image coordinates, not yet clipped.
//   - lb: Letterbox describing the original image.
//   - config: The filter rules.
//
// Returns:
//   - []Candidate: The survivors in input order, with centres recomputed after clipping.
func Filter(boxes []Candidate, lb images.Letterbox, config FilterConfig) []Candidate {
	maxArea := config.MaxAreaRatio * lb.OriginalArea()
	out := make([]Candidate, 0, len(boxes))

	for _, b := range boxes {
		if !images.IsFinite(b.Score) || !b.Box.Finite() || b.Score < config.ScoreThreshold {
			continue
		}
		box := lb.Clip(b.Box)
		w, h := box.X2-box.X1, box.Y2-box.Y1
		if w <= config.MinBoxSize || h <= config.MinBoxSize {
			continue
		}
		if w*h > maxArea {
			continue
		}
		out = append(out, NewCandidate(box, b.Score))
	}

	return out
}

// NearestNeighborMedian returns the median distance from each of the first sample
// candidates to its nearest neighbour among the same sample. It is a tuning aid for
// the cluster radius.
//
// Returns:
//   - float32: The median, or 0 with ok false when fewer than two candidates are given.
func NearestNeighborMedian(cands []Candidate, sample int) (median float32, ok bool) {
	n := min(len(cands), sample)
	if n < 2 {
		return 0, false
	}

	nn := make([]float32, n)
	for i := 0; i < n; i++ {
		best := math32.Inf(1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dx := cands[i].CX - cands[j].CX
			dy := cands[i].CY - cands[j].CY
			best = math32.Min(best, math32.Sqrt(dx*dx+dy*dy))
		}
		nn[i] = best
	}
	slices.Sort(nn)

	return nn[n/2], true
}
