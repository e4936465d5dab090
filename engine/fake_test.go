package engine

import (
	"errors"

	iface "EdgeTpuDetServer/interface"
)

var errUnplugged = errors.New("device unplugged")

// fakeInterpreter is an SSD-shaped interpreter with canned outputs.
type fakeInterpreter struct {
	width, height, channels int
	outputs                 [][]float32
	input                   []byte
	invokes                 int
	failInvoke              bool
	closed                  bool
}

func newFakeInterpreter() *fakeInterpreter {
	return &fakeInterpreter{
		width: 300, height: 300, channels: 3,
		outputs: [][]float32{
			{
				0.1, 0.2, 0.5, 0.6,
				0.0, 0.0, 1.0, 1.0,
				0.3, 0.3, 0.4, 0.4,
			},
			{0, 17, 2},
			{0.9, 0.4, 0.39},
			{3},
		},
	}
}

func (f *fakeInterpreter) InputSize() (int, int, int) { return f.width, f.height, f.channels }

func (f *fakeInterpreter) SetInput(pixels []byte) error {
	f.input = append([]byte(nil), pixels...)
	return nil
}

func (f *fakeInterpreter) Invoke() error {
	if f.failInvoke {
		return errUnplugged
	}
	f.invokes++
	return nil
}

func (f *fakeInterpreter) Output(index int) []float32 {
	if index >= len(f.outputs) {
		return nil
	}
	return f.outputs[index]
}

func (f *fakeInterpreter) Close() { f.closed = true }

func fakeFactory(f *fakeInterpreter) Factory {
	return func(string) (iface.Interpreter, error) { return f, nil }
}
