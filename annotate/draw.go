package annotate

import (
	"fmt"
	"image"
	"image/color"

	iface "EdgeTpuDetServer/interface"

	"gocv.io/x/gocv"
)

const (
	textInset  = 10
	fontScale  = 0.5
	lineHeight = 14
	thickness  = 1
)

var red = color.RGBA{R: 255, A: 255}

// Draw outlines every detection on img and writes its label and score,
// one per line, 10 pixels inside the box's top-left corner. Coordinates are
// not clipped.
func Draw(img *gocv.Mat, dets []iface.Detection, labels iface.Labels) {
	for _, det := range dets {
		box := image.Rect(det.BBox.Xmin, det.BBox.Ymin, det.BBox.Xmax, det.BBox.Ymax)
		gocv.Rectangle(img, box, red, thickness)

		lines := []string{labels.Get(det.ID), fmt.Sprintf("%.2f", det.Score)}
		origin := image.Pt(det.BBox.Xmin+textInset, det.BBox.Ymin+textInset)
		for i, line := range lines {
			// PutText anchors at the baseline
			baseline := image.Pt(origin.X, origin.Y+(i+1)*lineHeight)
			gocv.PutText(img, line, baseline, gocv.FontHersheySimplex, fontScale, red, thickness)
		}
	}
}
