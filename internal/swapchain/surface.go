package swapchain

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/frame"
	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

// Surface presents to a window surface.
type Surface struct {
	status

	device  hal.Device
	queue   hal.Queue
	surface hal.Surface

	mu          sync.Mutex // guards the fields below against Size/Format readers
	width       uint32
	height      uint32
	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	configured  bool
}

// NewSurface wraps surface. It starts Invalid; call Rebuild before the first
// acquire. A zero presentMode means FIFO.
func NewSurface(shared *gpucore.Shared, surface hal.Surface, presentMode gputypes.PresentMode) *Surface {
	if presentMode == gputypes.PresentModeUndefined {
		presentMode = gputypes.PresentModeFifo
	}
	return &Surface{
		device:      shared.Device,
		queue:       shared.Queue,
		surface:     surface,
		presentMode: presentMode,
	}
}

// Rebuild reconfigures the surface. A zero-area size leaves the surface
// Invalid and returns ErrMinimized.
func (s *Surface) Rebuild(width, height uint32, format gputypes.TextureFormat) error {
	if width == 0 || height == 0 {
		s.Invalidate()
		return fmt.Errorf("%w: %dx%d", gpuerr.ErrMinimized, width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured {
		s.surface.Unconfigure(s.device)
		s.configured = false
	}
	err := s.surface.Configure(s.device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		PresentMode: s.presentMode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		s.Invalidate()
		return fmt.Errorf("swapchain: configure %dx%d: %w", width, height, gpuerr.Classify(err))
	}
	s.width, s.height, s.format = width, height, format
	s.configured = true
	s.validate()
	gpucore.Logger().Info("swapchain: configured",
		"width", width, "height", height,
		"format", format.String(), "present_mode", s.presentMode.String())
	return nil
}

// Size returns the configured extent.
func (s *Surface) Size() (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Format returns the configured format.
func (s *Surface) Format() gputypes.TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// Acquire takes the next swapchain image. It is refused while Invalid. If
// the surface is invalidated while the image is being acquired, the image
// is handed back and ErrSwapchainOutOfDate returned.
func (s *Surface) Acquire(fence hal.Fence) (*frame.Image, error) {
	if s.State() == Invalid {
		return nil, gpuerr.ErrSwapchainOutOfDate
	}
	acquired, err := s.surface.AcquireTexture(fence)
	if err != nil {
		err = gpuerr.Classify(err)
		if gpuerr.NeedsRebuild(err) {
			s.Invalidate()
		}
		return nil, fmt.Errorf("swapchain: acquire: %w", err)
	}
	if s.State() == Invalid {
		s.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("swapchain: invalidated during acquire: %w", gpuerr.ErrSwapchainOutOfDate)
	}
	if acquired.Suboptimal {
		s.Invalidate()
	}

	width, height := s.Size()
	format := s.Format()
	view, err := s.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           "swapchain_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		s.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("swapchain: create view: %w", gpuerr.Classify(err))
	}
	return &frame.Image{
		Texture:    acquired.Texture,
		Surface:    acquired.Texture,
		View:       view,
		Width:      width,
		Height:     height,
		Format:     format,
		Suboptimal: acquired.Suboptimal,
	}, nil
}

// Present queues img for display. A suboptimal image is presented and then
// reported with ErrSwapchainSuboptimal.
func (s *Surface) Present(img *frame.Image) error {
	if err := s.queue.Present(s.surface, img.Surface, nil); err != nil {
		err = gpuerr.Classify(err)
		if gpuerr.NeedsRebuild(err) {
			s.Invalidate()
		}
		return fmt.Errorf("swapchain: present: %w", err)
	}
	if img.Suboptimal {
		return gpuerr.ErrSwapchainSuboptimal
	}
	return nil
}

// Discard hands an unsubmitted image back to the surface.
func (s *Surface) Discard(img *frame.Image) {
	if img == nil {
		return
	}
	s.surface.DiscardTexture(img.Surface)
	s.Release(img)
}

// Release destroys the per-frame view.
func (s *Surface) Release(img *frame.Image) {
	if img != nil && img.View != nil {
		s.device.DestroyTextureView(img.View)
		img.View = nil
	}
}

// Close unconfigures the surface. The surface itself belongs to the caller.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured {
		s.surface.Unconfigure(s.device)
		s.configured = false
	}
	s.Invalidate()
}
