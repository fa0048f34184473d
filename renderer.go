package quad

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/color"
	"github.com/gogpu/quad/internal/composite"
	"github.com/gogpu/quad/internal/frame"
	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
	"github.com/gogpu/quad/internal/parallel"
	"github.com/gogpu/quad/internal/pipeline"
	"github.com/gogpu/quad/internal/render"
	"github.com/gogpu/quad/internal/swapchain"
	"github.com/gogpu/quad/internal/timing"
	"github.com/gogpu/quad/internal/uniform"
	"github.com/gogpu/quad/overlay"
)

// Renderer draws a camera-projected quad layer followed by a screen-space
// overlay into one render target per frame.
//
// A Renderer is not safe for concurrent use, except that resize events
// delivered through WithEvents may arrive on any goroutine.
type Renderer struct {
	opts   options
	shared *gpucore.Shared
	format gputypes.TextureFormat

	builder   *pipeline.Builder
	uniforms  *uniform.Manager
	pipelines *render.Pipelines
	batcher   *batch.Batcher
	overlays  *render.OverlayPass
	ring      *frame.Ring
	target    swapchain.Swapchain
	offscreen *swapchain.Offscreen
	meter     *timing.Meter
	refPool   *parallel.WorkerPool

	width, height uint32 // headless target size

	inFrame  bool
	closed   bool
	viewProj Mat4
	lists    []overlay.DrawList
	textures composite.Textures
	last     lastFrame
	stats    Stats
}

// lastFrame keeps copies of everything uploaded for the most recent
// presented frame.
type lastFrame struct {
	valid         bool
	width, height uint32
	format        gputypes.TextureFormat
	viewProj      Mat4
	quadBytes     []byte
	segments      []batch.Segment
	overlay       render.OverlayDraw
}

// NewHeadless creates a renderer drawing into a width×height offscreen
// texture whose contents can be read with ReadPixels.
func NewHeadless(device hal.Device, queue hal.Queue, width, height uint32, opts ...Option) (*Renderer, error) {
	shared, err := gpucore.NewShared(device, queue)
	if err != nil {
		return nil, err
	}
	r, err := newRenderer(shared, gputypes.TextureFormatRGBA8Unorm, opts)
	if err != nil {
		return nil, err
	}
	off, err := swapchain.NewOffscreen(shared, width, height, r.format)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.target, r.offscreen = off, off
	r.width, r.height = width, height
	r.subscribe()
	gpucore.Logger().Info("quad: headless renderer created",
		"width", width, "height", height, "format", r.format.String(), "frames_in_flight", r.ring.Slots())
	return r, nil
}

// NewWindowed creates a renderer presenting to surface. WithWindow is
// required; the surface is configured on the first frame at the window's
// framebuffer size.
func NewWindowed(device hal.Device, queue hal.Queue, surface hal.Surface, opts ...Option) (*Renderer, error) {
	shared, err := gpucore.NewShared(device, queue)
	if err != nil {
		return nil, err
	}
	if surface == nil {
		return nil, errors.New("quad: nil surface")
	}
	r, err := newRenderer(shared, gputypes.TextureFormatBGRA8Unorm, opts)
	if err != nil {
		return nil, err
	}
	if r.opts.window == nil {
		r.Close()
		return nil, errors.New("quad: NewWindowed requires WithWindow")
	}
	r.target = swapchain.NewSurface(shared, surface, r.opts.presentMode)
	r.subscribe()
	gpucore.Logger().Info("quad: windowed renderer created",
		"format", r.format.String(), "present_mode", r.opts.presentMode.String(), "frames_in_flight", r.ring.Slots())
	return r, nil
}

func newRenderer(shared *gpucore.Shared, format gputypes.TextureFormat, opts []Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.surfaceFormat != gputypes.TextureFormatUndefined {
		format = o.surfaceFormat
	}
	r := &Renderer{
		opts:     o,
		shared:   shared,
		format:   format,
		viewProj: Identity(),
		textures: make(composite.Textures),
		meter:    timing.New(o.now),
	}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	r.ring, err = frame.New(r.shared, frame.Config{
		Slots:        r.opts.framesInFlight,
		FenceTimeout: r.opts.fenceTimeout,
	})
	if err != nil {
		return err
	}
	slots := r.ring.Slots()
	r.builder = pipeline.NewBuilder(r.shared)
	if r.uniforms, err = uniform.New(r.shared, r.builder, slots); err != nil {
		return err
	}
	if r.batcher, err = batch.New(r.shared, slots, r.opts.quadCapacity); err != nil {
		return err
	}
	if r.overlays, err = render.NewOverlayPass(r.shared, slots, r.opts.overlayCapacity); err != nil {
		return err
	}
	if r.opts.refWorkers != 1 {
		r.refPool = parallel.NewWorkerPool(r.opts.refWorkers)
	}
	r.pipelines = render.NewPipelines(r.builder, r.uniforms, r.opts.quadBlend)
	return r.pipelines.Build(r.format)
}

func (r *Renderer) subscribe() {
	if r.opts.events == nil {
		return
	}
	target := r.target
	r.opts.events.OnResize(func(width, height int) {
		target.Invalidate()
		gpucore.Logger().Debug("quad: resize", "width", width, "height", height)
	})
}

// Format returns the render target format.
func (r *Renderer) Format() gputypes.TextureFormat { return r.format }

// FramesInFlight returns the number of frame slots.
func (r *Renderer) FramesInFlight() int { return r.ring.Slots() }

// QuadCapacity returns the maximum number of quads per frame.
func (r *Renderer) QuadCapacity() int { return r.batcher.Capacity() }

// Begin starts a frame. The quad batch and overlay lists are cleared; the
// view-projection matrix carries over from the previous frame.
func (r *Renderer) Begin() error {
	if r.closed {
		return ErrClosed
	}
	if r.inFrame {
		return ErrFrameActive
	}
	r.inFrame = true
	r.batcher.Begin()
	clear(r.lists)
	r.lists = r.lists[:0]
	return nil
}

// AddQuad appends q to the frame's quad layer. When the batch is full it
// returns an error wrapping ErrResourceExhausted and the batch is
// unchanged.
func (r *Renderer) AddQuad(q Quad) error {
	if !r.inFrame {
		return ErrNoFrame
	}
	return r.batcher.AddQuad(q.toBatch())
}

// AddOverlay appends draw lists to the frame's overlay, drawn after the
// quad layer in order. The lists' slices are read at End and must not be
// modified before then.
func (r *Renderer) AddOverlay(lists ...overlay.DrawList) error {
	if !r.inFrame {
		return ErrNoFrame
	}
	for i := range lists {
		if err := lists[i].Validate(); err != nil {
			return fmt.Errorf("quad: overlay list %d: %w", i, err)
		}
	}
	r.lists = append(r.lists, lists...)
	return nil
}

// SetViewProjection sets the matrix applied to quad positions.
func (r *Renderer) SetViewProjection(m Mat4) {
	r.viewProj = m
}

// End records, submits and presents the frame.
//
// Recoverable conditions (swapchain out of date or suboptimal, no image
// ready, zero-area framebuffer) skip the frame, count it in Stats and
// return nil. A fatal error closes the renderer and is returned; every
// later call returns ErrClosed. ErrResourceExhausted drops the frame and is
// returned.
func (r *Renderer) End() error {
	if r.closed {
		return ErrClosed
	}
	if !r.inFrame {
		return ErrNoFrame
	}
	r.inFrame = false

	err := r.frame()
	switch {
	case err == nil:
		return nil
	case IsFatal(err):
		gpucore.Logger().Error("quad: fatal frame error", "err", err)
		r.Close()
		return err
	case IsRecoverable(err):
		r.stats.Skipped++
		gpucore.Logger().Warn("quad: frame skipped", "err", err, "skipped", r.stats.Skipped)
		return nil
	default:
		r.stats.Dropped++
		return err
	}
}

func (r *Renderer) frame() error {
	if err := r.ensureValid(); err != nil {
		return err
	}
	f, err := r.ring.Acquire(r.target)
	if err != nil {
		return err
	}
	if err := r.record(f); err != nil {
		if derr := r.ring.Discard(f); derr != nil {
			gpucore.Logger().Warn("quad: discard frame", "err", derr)
		}
		return err
	}
	submitted := r.ring.Submitted()
	if err := r.ring.Submit(f); err != nil {
		// Once the queue has the frame only presentation failed.
		if r.ring.Submitted() == submitted || !IsRecoverable(err) {
			return err
		}
		if gpuerr.NeedsRebuild(err) {
			r.target.Invalidate()
		}
		gpucore.Logger().Debug("quad: present", "err", err)
	}
	r.last.valid = true
	r.stats.Presented++
	t := r.meter.Tick()
	r.stats.Delta, r.stats.AvgFrame, r.stats.FPS = t.Delta, t.AvgFrame, t.FPS
	return nil
}

// ensureValid rebuilds a stale swapchain and both pipelines.
func (r *Renderer) ensureValid() error {
	if r.target.State() == swapchain.Valid {
		return nil
	}
	width, height := r.FramebufferSize()
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrMinimized, width, height)
	}
	if err := r.ring.WaitIdle(); err != nil {
		return err
	}
	if err := r.target.Rebuild(width, height, r.format); err != nil {
		return err
	}
	if err := r.pipelines.Build(r.format); err != nil {
		return err
	}
	r.stats.Rebuilds++
	gpucore.Logger().Info("quad: swapchain rebuilt", "width", width, "height", height, "rebuilds", r.stats.Rebuilds)
	return nil
}

// FramebufferSize returns the size the swapchain is built at: the window
// size times its scale factor, or the headless size.
func (r *Renderer) FramebufferSize() (width, height uint32) {
	if r.opts.window == nil {
		return r.width, r.height
	}
	w, h := r.opts.window.Size()
	scale := r.opts.window.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	return physical(w, scale), physical(h, scale)
}

func physical(v int, scale float64) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(math.Round(float64(v) * scale))
}

// record uploads the frame's data and encodes both passes.
func (r *Renderer) record(f *frame.Frame) error {
	slot, img := f.Slot, f.Image
	quads, err := r.batcher.End(slot)
	if err != nil {
		return err
	}
	if err := r.uniforms.WriteViewProjection(slot, r.viewProj); err != nil {
		return err
	}
	if _, err := r.uniforms.UpdateOrtho(slot, img.Width, img.Height); err != nil {
		return err
	}
	lists, err := r.overlays.Upload(slot, r.lists)
	if err != nil {
		return err
	}

	c := r.opts.clearColor
	pass := f.Encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_frame",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       img.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)},
		}},
	})
	pass.SetViewport(0, 0, float32(img.Width), float32(img.Height), 0, 1)
	pass.SetScissorRect(0, 0, img.Width, img.Height)
	quadDraws, err := render.RecordQuads(pass, r.pipelines, r.uniforms, slot, quads)
	if err != nil {
		pass.End()
		return err
	}
	overlayDraws, err := render.RecordOverlay(pass, r.pipelines, r.uniforms, slot, lists, img.Width, img.Height)
	pass.End()
	if err != nil {
		return err
	}
	if r.offscreen != nil {
		r.offscreen.Readback(f.Encoder)
	}

	r.stats.Quads = r.batcher.QuadCount()
	r.stats.Segments = len(quads.Segments)
	r.stats.QuadDraws = quadDraws
	r.stats.OverlayDraws = overlayDraws
	r.snapshot(img, quads)
	r.last.overlay = copyOverlay(lists)
	gpucore.Logger().Debug("quad: frame recorded",
		"slot", slot, "quads", r.stats.Quads, "segments", r.stats.Segments, "overlay_draws", overlayDraws)
	return nil
}

func (r *Renderer) snapshot(img *frame.Image, quads batch.Draw) {
	r.last.valid = false
	r.last.width, r.last.height, r.last.format = img.Width, img.Height, img.Format
	r.last.viewProj = r.viewProj
	r.last.quadBytes = append(r.last.quadBytes[:0], r.batcher.Uploaded()...)
	r.last.segments = append(r.last.segments[:0], quads.Segments...)
}

func copyOverlay(d render.OverlayDraw) render.OverlayDraw {
	return render.OverlayDraw{
		Lists:       slices.Clone(d.Lists),
		VertexBytes: slices.Clone(d.VertexBytes),
		IndexBytes:  slices.Clone(d.IndexBytes),
	}
}

// CreateTexture uploads img as a texture usable by quads and overlay
// lists.
func (r *Renderer) CreateTexture(label string, img *image.RGBA) (TextureID, error) {
	if r.closed {
		return 0, ErrClosed
	}
	id, err := r.uniforms.CreateTexture(label, img)
	if err != nil {
		return 0, err
	}
	cp := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	copy(cp.Pix, uniform.PackRGBA(img))
	r.textures[uint32(id)] = cp
	return TextureID(id), nil
}

// DestroyTexture releases a texture once every frame that may use it has
// completed on the GPU.
func (r *Renderer) DestroyTexture(id TextureID) error {
	if r.closed {
		return ErrClosed
	}
	release, err := r.uniforms.DestroyTexture(uniform.TextureID(id))
	if err != nil {
		return err
	}
	delete(r.textures, uint32(id))
	r.ring.Retire(release)
	return nil
}

// Resize changes the size of a headless target. The target is rebuilt at
// the start of the next frame.
func (r *Renderer) Resize(width, height uint32) error {
	if r.closed {
		return ErrClosed
	}
	if r.offscreen == nil {
		return errors.New("quad: Resize on a windowed renderer; the window size is used")
	}
	r.width, r.height = width, height
	r.target.Invalidate()
	return nil
}

// ReadPixels waits for the GPU and returns the last frame's pixels from a
// headless target as an RGBA image.
func (r *Renderer) ReadPixels() (*image.RGBA, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.offscreen == nil {
		return nil, errors.New("quad: ReadPixels requires a headless renderer")
	}
	if err := r.ring.WaitIdle(); err != nil {
		return nil, err
	}
	pix, err := r.offscreen.Pixels()
	if err != nil {
		return nil, err
	}
	w, h := r.offscreen.Size()
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	copy(img.Pix, pix)
	return img, nil
}

// ReferenceImage rasterizes the last presented frame on the CPU from the
// exact bytes uploaded to the GPU, with the same vertex math, blending and
// color conversion as the shaders.
func (r *Renderer) ReferenceImage() (*image.RGBA, error) {
	if !r.last.valid {
		return nil, errors.New("quad: no frame has been presented")
	}
	space := color.SpaceLinear
	if r.last.format.IsSrgb() {
		space = color.SpaceSRGB
	}
	canvas := composite.New(int(r.last.width), int(r.last.height), space, r.opts.clearColor.f32())
	canvas.SetPool(r.refPool)
	if err := canvas.DrawQuads(r.last.viewProj, r.last.quadBytes, r.last.segments, r.textures, r.pipelines.QuadBlend()); err != nil {
		return nil, err
	}
	ortho := uniform.OverlayProjection(float32(r.last.width), float32(r.last.height))
	if err := canvas.DrawOverlay(ortho, r.last.overlay, r.textures); err != nil {
		return nil, err
	}
	return canvas.Image(), nil
}

// Stats returns frame counters and timing.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Close waits for the GPU and releases every resource the renderer
// created. The device, queue and surface belong to the caller. Close is
// idempotent.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.inFrame = false
	if r.ring != nil {
		r.ring.Close()
	}
	if r.pipelines != nil {
		r.pipelines.Destroy()
	}
	if r.overlays != nil {
		r.overlays.Close()
	}
	if r.batcher != nil {
		r.batcher.Close()
	}
	if r.uniforms != nil {
		r.uniforms.Close()
	}
	if r.builder != nil {
		r.builder.Close()
	}
	if r.target != nil {
		r.target.Close()
	}
	if r.refPool != nil {
		r.refPool.Close()
	}
	gpucore.Logger().Info("quad: renderer closed", "presented", r.stats.Presented, "skipped", r.stats.Skipped)
}

// DeviceFromProvider extracts HAL handles from a host device provider,
// such as a gogpu application's shared device. The provider must expose
// HalDevice and HalQueue, or implement gpucontext.DeviceProvider with
// HAL values behind it.
func DeviceFromProvider(provider any) (hal.Device, hal.Queue, error) {
	s, err := gpucore.FromProvider(provider)
	if err != nil {
		return nil, nil, err
	}
	return s.Device, s.Queue, nil
}
