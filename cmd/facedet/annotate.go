package main

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/nvr-ai/go-facedet/models/postprocess"
)

// annotate draws each detection box and its score on a copy of img.
func annotate(img image.Image, dets []postprocess.Detection) image.Image {
	dc := gg.NewContextForImage(img)
	lineWidth := float64(max(2, min(img.Bounds().Dx(), img.Bounds().Dy())/200))
	dc.SetLineWidth(lineWidth)

	for _, d := range dets {
		x, y := float64(d.X), float64(d.Y)
		dc.SetRGB(0, 1, 0)
		dc.DrawRectangle(x, y, float64(d.Width), float64(d.Height))
		dc.Stroke()

		label := fmt.Sprintf("%.2f", d.Score)
		w, h := dc.MeasureString(label)
		top := max(y-h-4, 0)
		dc.DrawRectangle(x, top, w+4, h+4)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(label, x+2, top+2, 0, 1)
	}
	return dc.Image()
}
