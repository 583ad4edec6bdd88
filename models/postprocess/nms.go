package postprocess

import (
	"github.com/nvr-ai/go-facedet/images"
)

const (
	// DefaultIoUThreshold is the overlap above which a lower-scored box is suppressed.
	DefaultIoUThreshold = 0.45
	// DefaultMaxDetections caps the number of boxes returned per frame.
	DefaultMaxDetections = 20
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold  float32 // Overlap threshold for suppression, exclusive.
	MaxDetections int     // Stop after this many accepted boxes. Zero or less means no cap.
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - candidates: Candidates in any order; they are visited by descending score.
//   - config: The IoU threshold and output cap.
//
// Returns:
//   - Filtered slice of candidates, highest score first. If no candidates are provided, returns nil.
func ApplyGreedyNMS(candidates []Candidate, config NMSConfig) []Candidate {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	sorted := sortByScore(candidates)
	filtered := make([]Candidate, 0, n)
	suppressed := make(indexSet, n)

	for i, anchor := range sorted {
		if suppressed.has(i) {
			continue
		}
		filtered = append(filtered, anchor)
		if config.MaxDetections > 0 && len(filtered) >= config.MaxDetections {
			break
		}

		for j := i + 1; j < n; j++ {
			if suppressed.has(j) {
				continue
			}
			// Suppress if IoU exceeds threshold
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				suppressed.add(j)
			}
		}
	}

	return filtered
}
