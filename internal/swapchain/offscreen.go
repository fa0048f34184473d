package swapchain

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/frame"
	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

// copyPitchAlignment is the row alignment texture-to-buffer copies require.
const copyPitchAlignment = 256

// AlignedBytesPerRow rounds a tightly packed RGBA row up to the copy pitch.
func AlignedBytesPerRow(width uint32) uint32 {
	return (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// Offscreen renders into a texture owned by the target. Every acquire
// yields the same texture; Readback records a copy into a host-visible
// buffer that Pixels reads once the frame has completed.
type Offscreen struct {
	status

	device hal.Device

	mu       sync.Mutex
	width    uint32
	height   uint32
	format   gputypes.TextureFormat
	texture  hal.Texture
	view     hal.TextureView
	readback hal.Buffer
	presents uint64
}

// NewOffscreen creates a width×height target.
func NewOffscreen(shared *gpucore.Shared, width, height uint32, format gputypes.TextureFormat) (*Offscreen, error) {
	o := &Offscreen{device: shared.Device}
	if err := o.Rebuild(width, height, format); err != nil {
		return nil, err
	}
	return o, nil
}

// Rebuild recreates the texture when the size or format changed.
func (o *Offscreen) Rebuild(width, height uint32, format gputypes.TextureFormat) error {
	if width == 0 || height == 0 {
		o.Invalidate()
		return fmt.Errorf("%w: %dx%d", gpuerr.ErrMinimized, width, height)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.texture != nil && o.width == width && o.height == height && o.format == format {
		o.validate()
		return nil
	}
	o.destroyLocked()

	tex, err := o.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("swapchain: create offscreen texture: %w", gpuerr.Classify(err))
	}
	view, err := o.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "offscreen_view",
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		o.device.DestroyTexture(tex)
		return fmt.Errorf("swapchain: create offscreen view: %w", gpuerr.Classify(err))
	}
	buf, err := o.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "offscreen_readback",
		Size:  uint64(AlignedBytesPerRow(width)) * uint64(height),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		o.device.DestroyTextureView(view)
		o.device.DestroyTexture(tex)
		return fmt.Errorf("swapchain: create readback buffer: %w", gpuerr.Classify(err))
	}
	o.texture, o.view, o.readback = tex, view, buf
	o.width, o.height, o.format = width, height, format
	o.validate()
	gpucore.Logger().Debug("swapchain: offscreen target",
		"width", width, "height", height, "format", format.String())
	return nil
}

// Size returns the target extent.
func (o *Offscreen) Size() (uint32, uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.width, o.height
}

// Format returns the target format.
func (o *Offscreen) Format() gputypes.TextureFormat {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.format
}

// Presents returns how many frames were presented.
func (o *Offscreen) Presents() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presents
}

// Acquire returns the target texture. It is refused while Invalid.
func (o *Offscreen) Acquire(hal.Fence) (*frame.Image, error) {
	if o.State() == Invalid {
		return nil, gpuerr.ErrSwapchainOutOfDate
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return &frame.Image{
		Texture: o.texture,
		View:    o.view,
		Width:   o.width,
		Height:  o.height,
		Format:  o.format,
	}, nil
}

// Present counts the frame; there is no display.
func (o *Offscreen) Present(*frame.Image) error {
	o.mu.Lock()
	o.presents++
	o.mu.Unlock()
	return nil
}

// Discard is a no-op: the texture persists across frames.
func (o *Offscreen) Discard(*frame.Image) {}

// Release is a no-op: the view is owned by the target.
func (o *Offscreen) Release(*frame.Image) {}

// Readback records a copy of the target texture into the readback buffer.
// Call it after the render pass has ended, before submitting.
func (o *Offscreen) Readback(encoder hal.CommandEncoder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: o.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(o.texture, o.readback, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: AlignedBytesPerRow(o.width), RowsPerImage: o.height},
		TextureBase:  hal.ImageCopyTexture{Texture: o.texture, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: o.width, Height: o.height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: o.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
}

// Pixels maps the readback buffer and returns tightly packed RGBA rows.
// The caller must have waited for the frame that recorded Readback.
func (o *Offscreen) Pixels() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pitch := AlignedBytesPerRow(o.width)
	size := uint64(pitch) * uint64(o.height)
	mapping, err := o.device.MapBuffer(o.readback, 0, size)
	if err != nil {
		return nil, fmt.Errorf("swapchain: map readback: %w", gpuerr.Classify(err))
	}
	defer func() {
		if err := o.device.UnmapBuffer(o.readback); err != nil {
			gpucore.Logger().Warn("swapchain: unmap readback", "err", err)
		}
	}()
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	return packRows(src, o.width, o.height, pitch, isBGRA(o.format)), nil
}

func packRows(src []byte, width, height, pitch uint32, bgra bool) []byte {
	row := width * 4
	out := make([]byte, row*height)
	for y := range height {
		copy(out[y*row:(y+1)*row], src[y*pitch:y*pitch+row])
	}
	if bgra {
		for i := 0; i < len(out); i += 4 {
			out[i], out[i+2] = out[i+2], out[i]
		}
	}
	return out
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// Close destroys the texture, view and readback buffer.
func (o *Offscreen) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyLocked()
	o.Invalidate()
}

func (o *Offscreen) destroyLocked() {
	if o.readback != nil {
		o.device.DestroyBuffer(o.readback)
		o.readback = nil
	}
	if o.view != nil {
		o.device.DestroyTextureView(o.view)
		o.view = nil
	}
	if o.texture != nil {
		o.device.DestroyTexture(o.texture)
		o.texture = nil
	}
}
