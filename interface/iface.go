package iface

import "strconv"

// Labels maps a class index to its display name.
type Labels map[int]string

// Get returns the label for id, or the id itself when it is not in the table.
func (l Labels) Get(id int) string {
	if name, ok := l[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

type BBox struct {
	Xmin int `json:"xmin"`
	Ymin int `json:"ymin"`
	Xmax int `json:"xmax"`
	Ymax int `json:"ymax"`
}

type Detection struct {
	ID    int     `json:"id"`
	Label string  `json:"label,omitempty"`
	Score float32 `json:"score"`
	BBox  BBox    `json:"bbox"`
}

// Scale is the factor applied to the source image when it was fitted into
// the input tensor.
type Scale struct {
	X, Y float64
}

type EngineConfig struct {
	ModelPath string  `json:"modelPath"`
	Device    string  `json:"device"`
	Delegate  string  `json:"delegate"`
	Threshold float32 `json:"threshold"`
	Width     int     `json:"inputWidth"`
	Height    int     `json:"inputHeight"`
	Channels  int     `json:"inputChannels"`
	Labels    int     `json:"labels"`
}

// Interpreter is an allocated model bound to an accelerator.
type Interpreter interface {
	InputSize() (width, height, channels int)
	SetInput(pixels []byte) error
	Invoke() error
	Output(index int) []float32
	Close()
}
