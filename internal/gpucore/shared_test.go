package gpucore_test

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpucore/gputest"
)

type fakeHalProvider struct {
	dev   any
	queue any
}

func (p fakeHalProvider) HalDevice() any { return p.dev }
func (p fakeHalProvider) HalQueue() any  { return p.queue }

func TestNewSharedRejectsNil(t *testing.T) {
	if _, err := gpucore.NewShared(nil, nil); !errors.Is(err, gpucore.ErrNoDevice) {
		t.Fatalf("NewShared(nil, nil) error = %v, want ErrNoDevice", err)
	}
	var s *gpucore.Shared
	if err := s.Validate(); !errors.Is(err, gpucore.ErrNoDevice) {
		t.Fatalf("nil Validate = %v", err)
	}
}

func TestFromProvider(t *testing.T) {
	base := gputest.NewShared(t)

	got, err := gpucore.FromProvider(fakeHalProvider{dev: base.Device, queue: base.Queue})
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if got.Device != base.Device || got.Queue != base.Queue {
		t.Error("FromProvider returned different handles")
	}

	if _, err := gpucore.FromProvider(fakeHalProvider{dev: "not a device", queue: base.Queue}); err == nil {
		t.Error("FromProvider accepted a non-HAL device")
	}
	if _, err := gpucore.FromProvider(struct{}{}); err == nil {
		t.Error("FromProvider accepted a value without accessors")
	}
}

func TestOpenNoopBackend(t *testing.T) {
	dev, err := gpucore.Open(gputypes.BackendEmpty)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	if err := dev.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if dev.Instance() == nil {
		t.Error("Instance() = nil")
	}
	var _ hal.Device = dev.Device
}

func TestOpenUnregisteredBackend(t *testing.T) {
	_, err := gpucore.Open(gputypes.BackendBrowserWebGPU)
	if !errors.Is(err, gpucore.ErrNoAdapter) {
		t.Fatalf("Open error = %v, want ErrNoAdapter", err)
	}
}
