package quad

import (
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/frame"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := quad.NewHeadless(device, queue, 800, 600,
//	    quad.WithFramesInFlight(3),
//	    quad.WithClearColor(quad.Hex("#202020")),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	framesInFlight  int
	quadCapacity    int
	overlayCapacity uint64
	clearColor      Color
	presentMode     gputypes.PresentMode
	fenceTimeout    time.Duration
	quadBlend       *gputypes.BlendState
	surfaceFormat   gputypes.TextureFormat
	window          gpucontext.WindowProvider
	events          gpucontext.EventSource
	refWorkers      int
	now             func() time.Time
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		framesInFlight: frame.DefaultSlots,
		quadCapacity:   batch.DefaultCapacity,
		clearColor:     Black,
		presentMode:    gputypes.PresentModeFifo,
		fenceTimeout:   frame.DefaultFenceTimeout,
		refWorkers:     1,
	}
}

// WithFramesInFlight sets how many frames the CPU may record ahead of the
// GPU. Allowed values are 1 through 4; the default is 2.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		o.framesInFlight = n
	}
}

// WithQuadCapacity sets the maximum number of quads per frame. AddQuad
// fails with ErrResourceExhausted beyond it.
func WithQuadCapacity(n int) Option {
	return func(o *options) {
		o.quadCapacity = n
	}
}

// WithOverlayCapacity sets the initial overlay buffer size in bytes per
// frame slot. Overlay buffers grow on demand.
func WithOverlayCapacity(bytes uint64) Option {
	return func(o *options) {
		o.overlayCapacity = bytes
	}
}

// WithClearColor sets the color the target is cleared to each frame.
func WithClearColor(c Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithPresentMode sets the surface present mode. Ignored by headless
// renderers.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithFenceTimeout bounds how long a frame waits for its slot's previous
// submission. Expiry is reported as ErrDeviceLost.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fenceTimeout = d
	}
}

// WithQuadBlend sets the blend state of the quad layer. The default
// replaces the target color.
//
// Example:
//
//	alpha := gputypes.BlendStateAlpha()
//	r, err := quad.NewHeadless(device, queue, w, h, quad.WithQuadBlend(alpha))
func WithQuadBlend(b gputypes.BlendState) Option {
	return func(o *options) {
		o.quadBlend = &b
	}
}

// WithSurfaceFormat sets the target texture format. The default is
// BGRA8Unorm for window surfaces and RGBA8Unorm for headless targets.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.surfaceFormat = f
	}
}

// WithWindow supplies the window whose framebuffer size the swapchain
// follows. Required by NewWindowed.
func WithWindow(w gpucontext.WindowProvider) Option {
	return func(o *options) {
		o.window = w
	}
}

// WithEvents subscribes the renderer to resize events. A resize marks the
// swapchain stale; it is rebuilt at the start of the next frame.
func WithEvents(e gpucontext.EventSource) Option {
	return func(o *options) {
		o.events = e
	}
}

// WithReferenceWorkers sets how many goroutines ReferenceImage rasterizes
// with. Zero or negative means GOMAXPROCS; the default is 1.
func WithReferenceWorkers(n int) Option {
	return func(o *options) {
		o.refWorkers = n
	}
}

// withClock replaces the frame timer's clock. Tests only.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Config is a serializable form of the renderer options.
type Config struct {
	FramesInFlight  int           `toml:"frames_in_flight"`
	QuadCapacity    int           `toml:"quad_capacity"`
	OverlayCapacity uint64        `toml:"overlay_capacity"`
	ClearColor      string        `toml:"clear_color"`
	PresentMode     string        `toml:"present_mode"`
	FenceTimeout    time.Duration `toml:"fence_timeout"`
	QuadBlend       string        `toml:"quad_blend"`

	// ReferenceWorkers of -1 means GOMAXPROCS.
	ReferenceWorkers int `toml:"reference_workers"`
}

// Options converts c to renderer options. Zero fields keep defaults.
func (c Config) Options() ([]Option, error) {
	var opts []Option
	if c.FramesInFlight != 0 {
		if c.FramesInFlight < 1 || c.FramesInFlight > frame.MaxSlots {
			return nil, fmt.Errorf("quad: frames_in_flight %d out of range [1, %d]", c.FramesInFlight, frame.MaxSlots)
		}
		opts = append(opts, WithFramesInFlight(c.FramesInFlight))
	}
	if c.QuadCapacity < 0 {
		return nil, fmt.Errorf("quad: negative quad_capacity %d", c.QuadCapacity)
	}
	if c.QuadCapacity > 0 {
		opts = append(opts, WithQuadCapacity(c.QuadCapacity))
	}
	if c.OverlayCapacity > 0 {
		opts = append(opts, WithOverlayCapacity(c.OverlayCapacity))
	}
	if c.ClearColor != "" {
		opts = append(opts, WithClearColor(Hex(c.ClearColor)))
	}
	if c.PresentMode != "" {
		m, err := ParsePresentMode(c.PresentMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPresentMode(m))
	}
	if c.FenceTimeout < 0 {
		return nil, fmt.Errorf("quad: negative fence_timeout %v", c.FenceTimeout)
	}
	if c.FenceTimeout > 0 {
		opts = append(opts, WithFenceTimeout(c.FenceTimeout))
	}
	if c.QuadBlend != "" {
		b, err := ParseBlend(c.QuadBlend)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithQuadBlend(b))
	}
	if c.ReferenceWorkers != 0 {
		opts = append(opts, WithReferenceWorkers(max(c.ReferenceWorkers, 0)))
	}
	return opts, nil
}

// ParsePresentMode parses "fifo", "fifo_relaxed", "immediate" or "mailbox".
func ParsePresentMode(s string) (gputypes.PresentMode, error) {
	switch strings.ToLower(s) {
	case "fifo", "vsync":
		return gputypes.PresentModeFifo, nil
	case "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	}
	return gputypes.PresentModeUndefined, fmt.Errorf("quad: unknown present mode %q", s)
}

// ParseBlend parses "replace", "alpha" or "premultiplied".
func ParseBlend(s string) (gputypes.BlendState, error) {
	switch strings.ToLower(s) {
	case "replace", "opaque":
		return gputypes.BlendStateReplace(), nil
	case "alpha":
		return gputypes.BlendStateAlpha(), nil
	case "premultiplied":
		return gputypes.BlendStatePremultiplied(), nil
	}
	return gputypes.BlendState{}, fmt.Errorf("quad: unknown blend mode %q", s)
}
