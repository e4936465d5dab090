package engine

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var goos = runtime.GOOS

var sharedLibs = map[string]string{
	"linux":   "libedgetpu.so.1",
	"darwin":  "libedgetpu.1.dylib",
	"windows": "edgetpu.dll",
}

// SharedLibName returns the Edge TPU runtime library for the given GOOS.
func SharedLibName(goos string) (string, error) {
	lib, ok := sharedLibs[goos]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedPlatform, "operating system %s", goos)
	}
	return lib, nil
}

// ParseModelID splits "<model path>@<device>" into its parts. The device is
// empty when no selector is given.
func ParseModelID(id string) (modelPath, device string) {
	modelPath, device, _ = strings.Cut(id, "@")
	return modelPath, device
}

type DeviceType int

const (
	DeviceUSB DeviceType = iota + 1
	DevicePCI
)

type Device struct {
	Type DeviceType
	Path string
}

// SelectDevice picks a device index for selector. Accepted forms are "" (first
// device), ":N" (N-th device), "usb", "usb:N", "pci", "pci:N", or an exact
// device path.
func SelectDevice(devices []Device, selector string) (int, error) {
	if len(devices) == 0 {
		return -1, errors.Wrap(ErrDelegateLoad, "no edgetpu device attached")
	}
	if selector == "" {
		return 0, nil
	}

	kind, num, hasNum := strings.Cut(selector, ":")
	var want DeviceType
	switch kind {
	case "":
	case "usb":
		want = DeviceUSB
	case "pci":
		want = DevicePCI
	default:
		for i, d := range devices {
			if d.Path == selector {
				return i, nil
			}
		}
		return -1, errors.Wrapf(ErrDelegateLoad, "no edgetpu device at %q", selector)
	}

	n := 0
	if hasNum {
		var err error
		n, err = strconv.Atoi(num)
		if err != nil || n < 0 {
			return -1, errors.Wrapf(ErrDelegateLoad, "invalid device selector %q", selector)
		}
	} else if kind == "" {
		return -1, errors.Wrapf(ErrDelegateLoad, "invalid device selector %q", selector)
	}

	seen := 0
	for i, d := range devices {
		if want != 0 && d.Type != want {
			continue
		}
		if seen == n {
			return i, nil
		}
		seen++
	}
	return -1, errors.Wrapf(ErrDelegateLoad, "edgetpu device %q not found among %d device(s)", selector, len(devices))
}
