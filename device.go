package quad

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
)

// Device is a GPU device opened by OpenDevice. It owns its HAL instance
// and must be closed after every renderer using it.
type Device struct {
	dev *gpucore.Device
}

// OpenDevice opens the first usable adapter among the registered HAL
// backends, trying them in the given order. With no arguments Vulkan,
// Metal, DX12, GL and then the software or noop backend are tried.
//
// Backends register themselves when imported:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
func OpenDevice(backends ...gputypes.Backend) (*Device, error) {
	d, err := gpucore.Open(backends...)
	if err != nil {
		return nil, err
	}
	return &Device{dev: d}, nil
}

// Device returns the HAL device.
func (d *Device) Device() hal.Device { return d.dev.Device }

// Queue returns the HAL queue.
func (d *Device) Queue() hal.Queue { return d.dev.Queue }

// HalDevice returns the HAL device as any, for gogpu-style providers.
func (d *Device) HalDevice() any { return d.dev.Device }

// HalQueue returns the HAL queue as any.
func (d *Device) HalQueue() any { return d.dev.Queue }

// Info describes the selected adapter.
func (d *Device) Info() gputypes.AdapterInfo { return d.dev.Info }

// Instance returns the HAL instance, for creating window surfaces.
func (d *Device) Instance() hal.Instance { return d.dev.Instance() }

// Close destroys the device and its instance.
func (d *Device) Close() { d.dev.Close() }
