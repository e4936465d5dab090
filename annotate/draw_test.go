package annotate

import (
	"testing"

	iface "EdgeTpuDetServer/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var dets = []iface.Detection{
	{ID: 0, Score: 0.91, BBox: iface.BBox{Xmin: 10, Ymin: 20, Xmax: 120, Ymax: 150}},
	{ID: 42, Score: 0.4, BBox: iface.BBox{Xmin: 100, Ymin: 30, Xmax: 190, Ymax: 90}},
}

func blank(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestDraw_Deterministic(t *testing.T) {
	base := blank(200, 200)
	defer base.Close()

	a := base.Clone()
	defer a.Close()
	b := base.Clone()
	defer b.Close()

	labels := iface.Labels{0: "person"}
	Draw(&a, dets, labels)
	Draw(&b, dets, labels)

	assert.Equal(t, a.ToBytes(), b.ToBytes())
	assert.NotEqual(t, base.ToBytes(), a.ToBytes())
}

func TestDraw_Outline(t *testing.T) {
	img := blank(200, 200)
	defer img.Close()

	Draw(&img, dets[:1], iface.Labels{})

	// BGR red on the top edge, untouched pixels inside and outside the box
	corner := img.GetVecbAt(20, 60)
	assert.Equal(t, []uint8{0, 0, 255}, []uint8{corner[0], corner[1], corner[2]})
	inside := img.GetVecbAt(140, 100)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{inside[0], inside[1], inside[2]})
	outside := img.GetVecbAt(190, 190)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{outside[0], outside[1], outside[2]})
}

func TestDraw_Empty(t *testing.T) {
	img := blank(50, 50)
	defer img.Close()
	before := img.ToBytes()

	Draw(&img, nil, nil)
	require.Equal(t, before, img.ToBytes())
}
