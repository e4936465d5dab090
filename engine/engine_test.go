package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDetector_All(t *testing.T) {
	modelID := "models/test_edgetpu.tflite@usb:0"
	f := newFakeInterpreter()
	d := &Detector{}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 300, 600, gocv.MatTypeCV8UC3)
	defer img.Close()

	t.Run("Test Detect before load", func(t *testing.T) {
		_, err := d.Detect(img, 1)
		assert.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("Test New", func(t *testing.T) {
		assert.True(t, d.New(fakeFactory(f)))
		assert.Equal(t, REGISTERED, d.State)
	})

	t.Run("Test LoadModel", func(t *testing.T) {
		assert.Error(t, d.LoadModel(modelID, 1.5))
		require.NoError(t, d.LoadModel(modelID, DefaultThreshold))
		assert.Equal(t, IDLE, d.State)
		assert.ErrorIs(t, d.LoadModel(modelID, DefaultThreshold), ErrNotReady)
	})

	t.Run("Test CheckConfig", func(t *testing.T) {
		cfg := d.CheckConfig()
		assert.Equal(t, "models/test_edgetpu.tflite", cfg.ModelPath)
		assert.Equal(t, "usb:0", cfg.Device)
		assert.Equal(t, DefaultThreshold, cfg.Threshold)
		assert.Equal(t, 300, cfg.Width)
		assert.Equal(t, 300, cfg.Height)
		assert.Equal(t, 3, cfg.Channels)
	})

	t.Run("Test Detect", func(t *testing.T) {
		res, err := d.Detect(img, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, f.invokes)
		assert.Len(t, res.Timings, 1)
		assert.Len(t, res.Detections, 2)
		assert.InDelta(t, 0.5, res.Scale.X, 1e-9)
		assert.Equal(t, IDLE, d.State)

		// red BGR pixel arrives as RGB
		assert.Equal(t, []byte{255, 0, 0}, f.input[:3])
	})

	t.Run("Test Detect benchmark", func(t *testing.T) {
		f.invokes = 0
		first, err := d.Detect(img, BenchmarkRuns)
		require.NoError(t, err)
		assert.Equal(t, BenchmarkRuns, f.invokes)
		assert.Len(t, first.Timings, BenchmarkRuns)

		second, err := d.Detect(img, BenchmarkRuns)
		require.NoError(t, err)
		assert.Equal(t, first.Detections, second.Detections)
	})

	t.Run("Test Detect busy", func(t *testing.T) {
		d.State = BUSY
		_, err := d.Detect(img, 1)
		assert.ErrorIs(t, err, ErrBusy)
		d.State = IDLE
	})

	t.Run("Test Detect invoke failure", func(t *testing.T) {
		f.failInvoke = true
		_, err := d.Detect(img, 1)
		assert.ErrorIs(t, err, ErrInvoke)
		assert.ErrorIs(t, err, errUnplugged)
		assert.Contains(t, err.Error(), "run 1")
		assert.Equal(t, IDLE, d.State)
		f.failInvoke = false
	})

	t.Run("Test Destroy", func(t *testing.T) {
		d.Destroy()
		assert.True(t, f.closed)
		assert.Equal(t, "", d.ModelID)
		assert.Equal(t, float32(0), d.Threshold)
		assert.Nil(t, d.Instance)
		assert.Equal(t, UNREGISTERED, d.State)
	})
}

func TestMatResizer(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 40, 80, gocv.MatTypeCV8UC3)
	defer img.Close()

	px, err := MatResizer(img)(20, 10)
	require.NoError(t, err)
	require.Len(t, px, 20*10*3)
	assert.Equal(t, []byte{30, 20, 10}, px[:3])
}
