package engine

import (
	"fmt"
	"image"
	"math"

	iface "EdgeTpuDetServer/interface"
)

// Resizer returns the source image resized to w x h as packed RGB bytes.
type Resizer func(w, h int) ([]byte, error)

// SetInput fits an image of the given size into the interpreter's input
// tensor, keeping the aspect ratio and padding the rest with zeros. The
// returned scale maps tensor coordinates back to the source image.
func SetInput(interp iface.Interpreter, size image.Point, resize Resizer) (iface.Scale, error) {
	width, height, channels := interp.InputSize()
	if size.X <= 0 || size.Y <= 0 {
		return iface.Scale{}, fmt.Errorf("invalid image size %dx%d", size.X, size.Y)
	}

	scale := math.Min(float64(width)/float64(size.X), float64(height)/float64(size.Y))
	w := min(max(int(float64(size.X)*scale), 1), width)
	h := min(max(int(float64(size.Y)*scale), 1), height)

	pixels, err := resize(w, h)
	if err != nil {
		return iface.Scale{}, err
	}
	if len(pixels) != w*h*channels {
		return iface.Scale{}, fmt.Errorf("resized image has %d bytes, want %d (%dx%dx%d)", len(pixels), w*h*channels, w, h, channels)
	}

	rowIn := w * channels
	rowOut := width * channels
	tensor := make([]byte, height*rowOut)
	for y := 0; y < h; y++ {
		copy(tensor[y*rowOut:y*rowOut+rowIn], pixels[y*rowIn:(y+1)*rowIn])
	}
	if err := interp.SetInput(tensor); err != nil {
		return iface.Scale{}, err
	}
	return iface.Scale{X: scale, Y: scale}, nil
}

// GetOutput reads the SSD postprocess tensors (boxes, class ids, scores,
// count) and returns every detection scoring at least threshold, with boxes
// in source image pixels.
func GetOutput(interp iface.Interpreter, threshold float32, scale iface.Scale) []iface.Detection {
	boxes := interp.Output(0)
	classes := interp.Output(1)
	scores := interp.Output(2)
	counts := interp.Output(3)

	dets := make([]iface.Detection, 0)
	if len(counts) == 0 || scale.X == 0 || scale.Y == 0 {
		return dets
	}
	count := min(int(counts[0]), len(classes), len(scores), len(boxes)/4)

	width, height, _ := interp.InputSize()
	sx := float64(width) / scale.X
	sy := float64(height) / scale.Y
	for i := 0; i < count; i++ {
		if scores[i] < threshold {
			continue
		}
		ymin, xmin, ymax, xmax := boxes[i*4], boxes[i*4+1], boxes[i*4+2], boxes[i*4+3]
		dets = append(dets, iface.Detection{
			ID:    int(classes[i]),
			Score: scores[i],
			BBox: iface.BBox{
				Xmin: int(float64(xmin) * sx),
				Ymin: int(float64(ymin) * sy),
				Xmax: int(float64(xmax) * sx),
				Ymax: int(float64(ymax) * sy),
			},
		})
	}
	return dets
}
