package tpu

import (
	"runtime"

	"EdgeTpuDetServer/engine"
	iface "EdgeTpuDetServer/interface"
	"EdgeTpuDetServer/logger"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Interpreter is a TensorFlow Lite interpreter with the Edge TPU delegate
// attached and its tensors allocated.
type Interpreter struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	delegate    delegates.Delegater
	interpreter *tflite.Interpreter
	input       *tflite.Tensor
}

// Version reports the Edge TPU runtime version.
func Version() string {
	v, err := edgetpu.Version()
	if err != nil {
		return "unknown: " + err.Error()
	}
	return v
}

// Devices lists the attached accelerators.
func Devices() ([]engine.Device, error) {
	list, err := edgetpu.DeviceList()
	if err != nil {
		return nil, err
	}
	return convertDevices(list), nil
}

func convertDevices(list []edgetpu.Device) []engine.Device {
	devices := make([]engine.Device, len(list))
	for i, d := range list {
		devices[i] = engine.Device{Path: d.Path}
		switch d.Type {
		case edgetpu.TypeApexUSB:
			devices[i].Type = engine.DeviceUSB
		case edgetpu.TypeApexPCI:
			devices[i].Type = engine.DevicePCI
		}
	}
	return devices
}

// MakeInterpreter loads "<model path>[@<device>]" onto an Edge TPU. It is an
// engine.Factory.
func MakeInterpreter(modelID string) (iface.Interpreter, error) {
	lib, err := engine.SharedLibName(runtime.GOOS)
	if err != nil {
		return nil, err
	}
	modelPath, selector := engine.ParseModelID(modelID)

	list, err := edgetpu.DeviceList()
	if err != nil {
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "%s: list devices: %v", lib, err)
	}
	idx, err := engine.SelectDevice(convertDevices(list), selector)
	if err != nil {
		return nil, err
	}
	device := list[idx]

	delegate := edgetpu.New(device)
	if delegate == nil {
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "%s: cannot open device %s", lib, device.Path)
	}
	ti := &Interpreter{delegate: delegate}

	ti.model = tflite.NewModelFromFile(modelPath)
	if ti.model == nil {
		ti.Close()
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "cannot load model %s", modelPath)
	}

	ti.options = tflite.NewInterpreterOptions()
	ti.options.SetErrorReporter(func(msg string, _ interface{}) {
		logger.Log().Error("tflite", zap.String("message", msg))
	}, nil)
	ti.options.AddDelegate(delegate)

	ti.interpreter = tflite.NewInterpreter(ti.model, ti.options)
	if ti.interpreter == nil {
		ti.Close()
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "cannot create interpreter for %s", modelPath)
	}
	if status := ti.interpreter.AllocateTensors(); status != tflite.OK {
		ti.Close()
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "allocate tensors for %s: status %v", modelPath, status)
	}

	ti.input = ti.interpreter.GetInputTensor(0)
	if ti.input == nil || ti.input.NumDims() != 4 || ti.input.Type() != tflite.UInt8 {
		ti.Close()
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "%s: want a quantized uint8 [1,H,W,C] input", modelPath)
	}
	if n := ti.interpreter.GetOutputTensorCount(); n < 4 {
		ti.Close()
		return nil, errors.Wrapf(engine.ErrDelegateLoad, "%s: want 4 SSD postprocess outputs, got %d", modelPath, n)
	}

	w, h, c := ti.InputSize()
	logger.Log().Info("edgetpu interpreter ready",
		zap.String("model", modelPath),
		zap.String("device", device.Path),
		zap.String("delegate", lib),
		zap.Int("width", w), zap.Int("height", h), zap.Int("channels", c))
	return ti, nil
}

func (ti *Interpreter) InputSize() (width, height, channels int) {
	return ti.input.Dim(2), ti.input.Dim(1), ti.input.Dim(3)
}

func (ti *Interpreter) SetInput(pixels []byte) error {
	if status := ti.input.CopyFromBuffer(pixels); status != tflite.OK {
		return errors.Errorf("copy %d bytes into input tensor: status %v", len(pixels), status)
	}
	return nil
}

func (ti *Interpreter) Invoke() error {
	if status := ti.interpreter.Invoke(); status != tflite.OK {
		return errors.Wrapf(engine.ErrInvoke, "status %v", status)
	}
	return nil
}

func (ti *Interpreter) Output(index int) []float32 {
	t := ti.interpreter.GetOutputTensor(index)
	if t == nil {
		return nil
	}
	return append([]float32(nil), t.Float32s()...)
}

func (ti *Interpreter) Close() {
	if ti.interpreter != nil {
		ti.interpreter.Delete()
		ti.interpreter = nil
	}
	if ti.options != nil {
		ti.options.Delete()
		ti.options = nil
	}
	if ti.model != nil {
		ti.model.Delete()
		ti.model = nil
	}
	if ti.delegate != nil {
		ti.delegate.Delete()
		ti.delegate = nil
	}
}
