// Package gputest opens devices on the noop HAL backend and provides HAL
// fakes for exercising frame pacing without a GPU.
package gputest

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/quad/internal/gpucore"
)

// NewShared opens a noop device. The device is destroyed when the test ends.
func NewShared(tb testing.TB) *gpucore.Shared {
	tb.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		tb.Fatalf("create noop instance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		tb.Fatal("noop backend exposes no adapters")
	}
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		tb.Fatalf("open noop device: %v", err)
	}
	tb.Cleanup(func() {
		opened.Device.Destroy()
		instance.Destroy()
	})
	return &gpucore.Shared{
		Device: opened.Device,
		Queue:  opened.Queue,
		Limits: gputypes.DefaultLimits(),
		Name:   adapters[0].Info.Name,
	}
}

// NewSurface returns a noop surface.
func NewSurface(tb testing.TB) hal.Surface {
	tb.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		tb.Fatalf("create noop instance: %v", err)
	}
	s, err := instance.CreateSurface(0, 0)
	if err != nil {
		tb.Fatalf("create noop surface: %v", err)
	}
	return s
}
