// Package gpucore holds the device handles shared by every renderer
// component and the helpers that produce them.
//
// A Shared value is created once, passed by pointer to the batcher, frame
// ring, swapchain, pipeline builder and uniform manager, and never copied
// into globals. Destroying the device is the caller's decision: components
// only release what they created.
package gpucore

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoDevice is returned when a Shared value lacks a device or queue.
var ErrNoDevice = errors.New("gpucore: device or queue is nil")

// Shared carries the logical device and its queue.
type Shared struct {
	Device hal.Device
	Queue  hal.Queue

	// Limits are the limits the device was opened with.
	Limits gputypes.Limits

	// Name is the adapter name, used in log records only.
	Name string
}

// NewShared wraps an externally opened device.
func NewShared(device hal.Device, queue hal.Queue) (*Shared, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	return &Shared{Device: device, Queue: queue, Limits: gputypes.DefaultLimits()}, nil
}

// Validate reports ErrNoDevice when s cannot be used.
func (s *Shared) Validate() error {
	if s == nil || s.Device == nil || s.Queue == nil {
		return ErrNoDevice
	}
	return nil
}

// halProvider is implemented by windowing hosts that expose HAL handles
// directly (gogpu does this for its shared device).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider extracts HAL handles from a host-supplied device provider.
// The provider must expose HalDevice() and HalQueue() returning hal.Device
// and hal.Queue; the opaque gpucontext.DeviceProvider accessors are tried
// as a fallback.
func FromProvider(provider any) (*Shared, error) {
	var dev, queue any
	switch p := provider.(type) {
	case halProvider:
		dev, queue = p.HalDevice(), p.HalQueue()
	case gpucontext.DeviceProvider:
		dev, queue = p.Device(), p.Queue()
	default:
		return nil, fmt.Errorf("gpucore: provider %T does not expose HAL types", provider)
	}
	device, ok := dev.(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpucore: provider device %T is not hal.Device", dev)
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return nil, fmt.Errorf("gpucore: provider queue %T is not hal.Queue", queue)
	}
	return NewShared(device, q)
}
