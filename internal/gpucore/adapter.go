package gpucore

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoAdapter is returned when no registered backend yields an adapter.
var ErrNoAdapter = errors.New("gpucore: no GPU adapter available")

// DefaultBackends is the order Open tries registered backends in.
// BackendEmpty covers both the software rasterizer and the noop backend,
// whichever was linked in.
var DefaultBackends = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// Device is a device opened by this package. Unlike a Shared obtained
// from a host, it owns its instance and must be closed.
type Device struct {
	*Shared
	Info gputypes.AdapterInfo

	instance hal.Instance
}

// Open opens the first usable adapter of the first registered backend in
// order. A nil or empty order means DefaultBackends. Discrete and integrated
// GPUs are preferred over other adapter types of the same backend.
func Open(order ...gputypes.Backend) (*Device, error) {
	if len(order) == 0 {
		order = DefaultBackends
	}
	var errs []error
	for _, variant := range order {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		dev, err := openBackend(backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			continue
		}
		Logger().Info("gpucore: adapter selected",
			"backend", variant.String(),
			"name", dev.Info.Name,
			"type", dev.Info.DeviceType.String())
		return dev, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoAdapter
	}
	return nil, errors.Join(append([]error{ErrNoAdapter}, errs...)...)
}

func openBackend(backend hal.Backend) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := pickAdapter(adapters)
	limits := gputypes.DefaultLimits()
	opened, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &Device{
		Shared: &Shared{
			Device: opened.Device,
			Queue:  opened.Queue,
			Limits: limits,
			Name:   selected.Info.Name,
		},
		Info:     selected.Info,
		instance: instance,
	}, nil
}

func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// Instance returns the HAL instance, for surface creation.
func (d *Device) Instance() hal.Instance { return d.instance }

// Close waits for the device to go idle and destroys the device and its
// instance.
func (d *Device) Close() {
	if d == nil || d.Shared == nil {
		return
	}
	if d.Device != nil {
		if err := d.Device.WaitIdle(); err != nil {
			Logger().Warn("gpucore: wait idle on close", "err", err)
		}
		d.Device.Destroy()
		d.Device = nil
	}
	d.Queue = nil
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}
