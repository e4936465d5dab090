package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedLibName(t *testing.T) {
	for goos, want := range map[string]string{
		"linux":   "libedgetpu.so.1",
		"darwin":  "libedgetpu.1.dylib",
		"windows": "edgetpu.dll",
	} {
		lib, err := SharedLibName(goos)
		require.NoError(t, err)
		assert.Equal(t, want, lib)
	}

	_, err := SharedLibName("plan9")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestParseModelID(t *testing.T) {
	path, device := ParseModelID("models/ssd_edgetpu.tflite")
	assert.Equal(t, "models/ssd_edgetpu.tflite", path)
	assert.Equal(t, "", device)

	path, device = ParseModelID("models/ssd_edgetpu.tflite@usb:1")
	assert.Equal(t, "models/ssd_edgetpu.tflite", path)
	assert.Equal(t, "usb:1", device)
}

func TestSelectDevice(t *testing.T) {
	devices := []Device{
		{Type: DevicePCI, Path: "/dev/apex_0"},
		{Type: DeviceUSB, Path: "/sys/bus/usb/devices/2-1"},
		{Type: DeviceUSB, Path: "/sys/bus/usb/devices/2-2"},
	}
	cases := map[string]int{
		"":                         0,
		":2":                       2,
		"usb":                      1,
		"usb:1":                    2,
		"pci":                      0,
		"pci:0":                    0,
		"/sys/bus/usb/devices/2-2": 2,
	}
	for selector, want := range cases {
		got, err := SelectDevice(devices, selector)
		require.NoError(t, err, selector)
		assert.Equal(t, want, got, selector)
	}

	for _, selector := range []string{"pci:1", "usb:x", ":", ":-1", ":9", "/dev/apex_9"} {
		_, err := SelectDevice(devices, selector)
		assert.ErrorIs(t, err, ErrDelegateLoad, selector)
	}

	_, err := SelectDevice(nil, "")
	assert.ErrorIs(t, err, ErrDelegateLoad)
}
