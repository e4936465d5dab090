package engine

import (
	"fmt"
	"image"
	"sync"
	"time"

	iface "EdgeTpuDetServer/interface"
	"EdgeTpuDetServer/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Detector struct {
	ModelID   string
	Threshold float32
	Instance  iface.Interpreter
	State     int

	mu      sync.Mutex
	factory Factory
}

func (d *Detector) New(factory Factory) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factory = factory
	d.State = REGISTERED
	return d.factory != nil
}

// LoadModel builds the interpreter for modelID. Any error is fatal for the
// process: there is no retry.
func (d *Detector) LoadModel(modelID string, threshold float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State != REGISTERED || d.factory == nil {
		return errors.Wrap(ErrNotReady, "LoadModel needs a registered detector")
	}
	if threshold < 0 || threshold > 1 {
		return errors.Errorf("threshold must be between 0.0 and 1.0, got %f", threshold)
	}
	interp, err := d.factory(modelID)
	if err != nil {
		return errors.Wrapf(err, "could not load model %s", modelID)
	}
	d.ModelID = modelID
	d.Threshold = threshold
	d.Instance = interp
	d.State = IDLE
	return nil
}

func (d *Detector) CheckConfig() iface.EngineConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	modelPath, device := ParseModelID(d.ModelID)
	cfg := iface.EngineConfig{
		ModelPath: modelPath,
		Device:    device,
		Threshold: d.Threshold,
	}
	cfg.Delegate, _ = SharedLibName(goos)
	if d.Instance != nil {
		cfg.Width, cfg.Height, cfg.Channels = d.Instance.InputSize()
	}
	return cfg
}

func (d *Detector) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Instance != nil {
		d.Instance.Close()
	}
	d.ModelID = ""
	d.Threshold = 0
	d.Instance = nil
	d.State = UNREGISTERED
}

// Detect fits img into the input tensor, invokes the interpreter runs times
// and collects the detections of the final run.
func (d *Detector) Detect(img gocv.Mat, runs int) (Inference, error) {
	if err := d.acquire(); err != nil {
		return Inference{}, err
	}
	defer d.release()
	if runs < 1 {
		runs = 1
	}

	scale, err := SetInput(d.Instance, image.Pt(img.Cols(), img.Rows()), MatResizer(img))
	if err != nil {
		return Inference{}, errors.Wrap(err, "set input")
	}

	if runs > 1 {
		logger.Log().Info("benchmarking inference; the first run includes loading the model into Edge TPU memory",
			zap.Int("runs", runs))
	}
	timings := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		if err := d.Instance.Invoke(); err != nil {
			return Inference{}, fmt.Errorf("%w: run %d: %w", ErrInvoke, i+1, err)
		}
		elapsed := time.Since(start)
		timings = append(timings, elapsed)
		logger.Log().Info("inference time",
			zap.Int("run", i+1),
			zap.Float64("ms", float64(elapsed.Microseconds())/1000))
	}

	return Inference{
		Detections: GetOutput(d.Instance, d.Threshold, scale),
		Timings:    timings,
		Scale:      scale,
	}, nil
}

func (d *Detector) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.State {
	case IDLE:
		d.State = BUSY
		return nil
	case BUSY:
		return ErrBusy
	case REGISTERED:
		return errors.Wrap(ErrNotReady, "model not loaded")
	default:
		return errors.Wrap(ErrNotReady, "detector not registered")
	}
}

func (d *Detector) release() {
	d.mu.Lock()
	if d.State == BUSY {
		d.State = IDLE
	}
	d.mu.Unlock()
}

// MatResizer resizes a BGR Mat with area interpolation and returns RGB bytes.
func MatResizer(img gocv.Mat) Resizer {
	return func(w, h int) ([]byte, error) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(img, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)
		if rgb.Empty() {
			return nil, errors.New("resize produced an empty image")
		}
		return rgb.ToBytes(), nil
	}
}
