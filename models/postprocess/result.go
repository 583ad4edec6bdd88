// Package postprocess - Candidate filtering, cluster merging and suppression of decoded boxes.
package postprocess

import "github.com/nvr-ai/go-facedet/images"

// Candidate is a box in original image coordinates that survived filtering or merging.
type Candidate struct {
	// The bounding box of the candidate.
	Box images.Rect
	// The confidence score of the candidate.
	Score float32
	// CX, CY is the centre of Box.
	CX, CY float32
}

// NewCandidate builds a Candidate and fills in its centre.
func NewCandidate(box images.Rect, score float32) Candidate {
	cx, cy := box.Center()
	return Candidate{Box: box, Score: score, CX: cx, CY: cy}
}

// Detection is a final face box, top-left anchored, in original image pixels.
type Detection struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	Score  float32 `json:"score"`
}

// Rect returns the corner form of the detection.
func (d Detection) Rect() images.Rect {
	return images.Rect{X1: d.X, Y1: d.Y, X2: d.X + d.Width, Y2: d.Y + d.Height}
}

// ToDetections converts candidates to detections, preserving order.
func ToDetections(cands []Candidate) []Detection {
	if len(cands) == 0 {
		return nil
	}
	out := make([]Detection, len(cands))
	for i, c := range cands {
		out[i] = Detection{
			X:      c.Box.X1,
			Y:      c.Box.Y1,
			Width:  c.Box.X2 - c.Box.X1,
			Height: c.Box.Y2 - c.Box.Y1,
			Score:  c.Score,
		}
	}
	return out
}
