package postprocess

import (
	"cmp"
	"slices"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-facedet/images"
)

const (
	// DefaultClusterRadius is the centre distance, in original pixels, within which boxes are merged.
	DefaultClusterRadius = 60
	// DefaultClusterIoU is the IoU at or above which boxes are merged regardless of distance.
	DefaultClusterIoU = 0.4
)

// MergeConfig defines when two candidates belong to the same cluster.
type MergeConfig struct {
	Radius float32 // Centre distance threshold, inclusive.
	IoU    float32 // Overlap threshold, inclusive.
}

// indexSet tracks which sorted candidates have already been assigned.
type indexSet []bool

func (s indexSet) has(i int) bool { return s[i] }
func (s indexSet) add(i int)      { s[i] = true }

// sortByScore returns a copy of cands sorted by descending score. Equal scores keep
// their input order.
func sortByScore(cands []Candidate) []Candidate {
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return sorted
}

// MergeClusters collapses groups of nearby candidates into one box each.
//
// Candidates are visited by descending score. Each unassigned candidate seeds a
// cluster and absorbs every later unassigned candidate whose centre lies within
// Radius of the seed's centre, or whose IoU with the seed is at least IoU. The
// merged corners are the score-weighted mean of the members; the merged score is
// the seed's.
//
// When IoU is positive a spatial index narrows the pairs that are tested. An IoU
// at or below zero joins every pair, so all later candidates are tested instead.
// Members are considered in sorted order either way, so the clusters match an
// exhaustive pairwise scan.
//
// Arguments:
//   - cands: The filtered candidates, in any order.
//   - config: The cluster thresholds.
//
// Returns:
//   - []Candidate: One candidate per cluster, in seed order.
func MergeClusters(cands []Candidate, config MergeConfig) []Candidate {
	if len(cands) == 0 {
		return nil
	}

	sorted := sortByScore(cands)
	neighbors := func(i int) []int { return after(i, len(sorted)) }
	if config.IoU > 0 {
		index := newBoxIndex(sorted)
		neighbors = func(i int) []int { return index.neighbors(sorted[i], config.Radius) }
	}
	used := make(indexSet, len(sorted))
	radius2 := config.Radius * config.Radius
	merged := make([]Candidate, 0, len(sorted))

	for i, seed := range sorted {
		if used.has(i) {
			continue
		}
		used.add(i)

		sx1 := seed.Box.X1 * seed.Score
		sy1 := seed.Box.Y1 * seed.Score
		sx2 := seed.Box.X2 * seed.Score
		sy2 := seed.Box.Y2 * seed.Score
		sum := seed.Score

		for _, j := range neighbors(i) {
			if j <= i || used.has(j) {
				continue
			}
			c := sorted[j]
			dx := seed.CX - c.CX
			dy := seed.CY - c.CY
			if dx*dx+dy*dy > radius2 && images.CalculateIoU(seed.Box, c.Box) < config.IoU {
				continue
			}
			sx1 += c.Box.X1 * c.Score
			sy1 += c.Box.Y1 * c.Score
			sx2 += c.Box.X2 * c.Score
			sy2 += c.Box.Y2 * c.Score
			sum += c.Score
			used.add(j)
		}

		box := images.Rect{X1: sx1 / sum, Y1: sy1 / sum, X2: sx2 / sum, Y2: sy2 / sum}
		merged = append(merged, NewCandidate(box, seed.Score))
	}

	return merged
}

// after returns i+1 .. n-1.
func after(i, n int) []int {
	out := make([]int, 0, max(n-i-1, 0))
	for j := i + 1; j < n; j++ {
		out = append(out, j)
	}
	return out
}

// boxIndex is a static spatial index over candidate boxes.
type boxIndex struct {
	fb *flatbush.Flatbush[int32]
}

func newBoxIndex(cands []Candidate) boxIndex {
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(cands))
	for _, c := range cands {
		fb.Add(floor32(c.Box.X1), floor32(c.Box.Y1), ceil32(c.Box.X2), ceil32(c.Box.Y2))
	}
	fb.Finish()
	return boxIndex{fb: fb}
}

// neighbors returns, in ascending order, the indices of every candidate that could
// join seed's cluster: boxes touching the seed box or the square of side 2*radius
// around its centre. A box always contains its own centre, so no member within
// radius is missed.
func (b boxIndex) neighbors(seed Candidate, radius float32) []int {
	minX := math32.Min(seed.Box.X1, seed.CX-radius)
	minY := math32.Min(seed.Box.Y1, seed.CY-radius)
	maxX := math32.Max(seed.Box.X2, seed.CX+radius)
	maxY := math32.Max(seed.Box.Y2, seed.CY+radius)

	hits := b.fb.Search(floor32(minX), floor32(minY), ceil32(maxX), ceil32(maxY))
	slices.Sort(hits)
	return hits
}

func floor32(v float32) int32 { return int32(math32.Floor(v)) }
func ceil32(v float32) int32  { return int32(math32.Ceil(v)) }
