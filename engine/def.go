package engine

import (
	"time"

	iface "EdgeTpuDetServer/interface"

	"github.com/pkg/errors"
)

const UNREGISTERED = 0x0001
const REGISTERED = 0x0002
const IDLE = 0x0003
const BUSY = 0x0004

// BenchmarkRuns is the number of back-to-back invokes in benchmark mode.
const BenchmarkRuns = 5

// DefaultThreshold is the minimum score a detection needs to be reported.
const DefaultThreshold float32 = 0.4

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDelegateLoad        = errors.New("edgetpu delegate load failed")
	ErrIO                  = errors.New("label file read failed")
	ErrParse               = errors.New("label file malformed")
	ErrNotReady            = errors.New("detector not ready")
	ErrBusy                = errors.New("detector is busy")
	ErrInvoke              = errors.New("interpreter invoke failed")
)

// Factory builds an allocated interpreter from a "<model>[@<device>]" id.
type Factory func(modelID string) (iface.Interpreter, error)

// Inference is the outcome of one Detect call.
type Inference struct {
	Detections []iface.Detection
	Timings    []time.Duration
	Scale      iface.Scale
}
