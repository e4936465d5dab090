package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"EdgeTpuDetServer/annotate"
	"EdgeTpuDetServer/engine"
	iface "EdgeTpuDetServer/interface"
	"EdgeTpuDetServer/logger"
	"EdgeTpuDetServer/monitor"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Options struct {
	ImagesDir    string
	OutputPath   string
	OutputDir    string
	UniqueOutput bool
	Benchmark    bool
	Show         bool
	QueueSize    int
}

type Result struct {
	RequestID  string            `json:"requestId"`
	ItemID     string            `json:"itemId"`
	Detections []iface.Detection `json:"detections"`
	TimingsMs  []float64         `json:"timingsMs"`
	OutputPath string            `json:"outputPath"`
}

// ResolveImage maps an item id to a file inside dir. The id must be a plain
// file name.
func ResolveImage(dir, itemID string) (string, error) {
	if itemID == "" || itemID == "." || itemID == ".." ||
		strings.ContainsAny(itemID, `/\`) || filepath.Base(itemID) != itemID {
		return "", fmt.Errorf("%w: %q", ErrInvalidItem, itemID)
	}
	path := filepath.Join(dir, itemID)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return path, nil
}

func (p *Pipeline) outputPath(requestID string) (string, error) {
	if !p.opts.UniqueOutput {
		return p.opts.OutputPath, nil
	}
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(p.opts.OutputDir, requestID+".jpg"), nil
}

// process runs one request end to end. Nothing is written unless every
// detection stage succeeded.
func (p *Pipeline) process(requestID, itemID string) (*Result, error) {
	log := logger.Request(requestID, itemID)

	path, err := ResolveImage(p.opts.ImagesDir, itemID)
	if err != nil {
		return nil, err
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImage, path)
	}

	runs := 1
	if p.opts.Benchmark {
		runs = engine.BenchmarkRuns
	}
	inf, err := p.detector.Detect(img, runs)
	if err != nil {
		return nil, err
	}
	for i := range inf.Detections {
		inf.Detections[i].Label = p.labels.Get(inf.Detections[i].ID)
	}
	if n := len(inf.Timings); n > 0 {
		monitor.ObserveInference(inf.Timings[n-1])
	}
	report(log, inf.Detections)

	annotate.Draw(&img, inf.Detections, p.labels)
	out, err := p.outputPath(requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if !gocv.IMWrite(out, img) {
		return nil, fmt.Errorf("%w: %s", ErrRender, out)
	}
	if p.opts.Show {
		if err := p.viewer(out); err != nil {
			log.Warn("cannot open image viewer", zap.Error(err))
		}
	}

	timings := make([]float64, len(inf.Timings))
	for i, d := range inf.Timings {
		timings[i] = float64(d) / float64(time.Millisecond)
	}
	return &Result{
		RequestID:  requestID,
		ItemID:     itemID,
		Detections: inf.Detections,
		TimingsMs:  timings,
		OutputPath: out,
	}, nil
}

func report(log *zap.Logger, dets []iface.Detection) {
	if len(dets) == 0 {
		log.Info("No objects detected")
		return
	}
	for _, det := range dets {
		log.Info(det.Label,
			zap.Int("id", det.ID),
			zap.Float32("score", det.Score),
			zap.Any("bbox", det.BBox))
	}
}
