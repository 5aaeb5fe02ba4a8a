package nnet

import (
	"fmt"
	"strings"
	"sync"
)

// Device names where tensors and parameters live.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

var (
	deviceOnce     sync.Once
	selectedDevice Device
	selectErr      error
)

// SelectDevice resolves the compute device for the process. The first call
// decides; later calls return the same answer regardless of pref.
func SelectDevice(pref string) (Device, error) {
	deviceOnce.Do(func() {
		selectedDevice, selectErr = resolveDevice(pref)
	})
	return selectedDevice, selectErr
}

// CurrentDevice returns the selected device, selecting CPU when nothing has
// been chosen yet.
func CurrentDevice() Device {
	d, err := SelectDevice(string(DeviceAuto))
	if err != nil {
		return DeviceCPU
	}
	return d
}

func resolveDevice(pref string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(pref))) {
	case "", DeviceAuto, DeviceCPU:
		return DeviceCPU, nil
	case DeviceCUDA:
		return "", fmt.Errorf("device %q is not available in this build", pref)
	default:
		return "", fmt.Errorf("unknown device %q", pref)
	}
}
