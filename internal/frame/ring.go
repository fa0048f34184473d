// Package frame paces CPU recording against GPU execution with a ring of
// N frame slots.
//
// Each slot owns a command encoder, an image-available fence handed to the
// target's acquire, and the submission index of the last work recorded on
// it. A slot is reused only after the queue reports that submission as
// complete, so everything the slot owns may be rewritten safely once
// Acquire returns.
//
// The HAL binds the swapchain's acquire and present semaphores inside
// Queue.Submit and Queue.Present, so the render-finished gate before
// presentation is the ordering of Submit then Present on one queue.
package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

const (
	// DefaultSlots is the number of frames in flight when Config.Slots is 0.
	DefaultSlots = 2
	// MaxSlots bounds Config.Slots.
	MaxSlots = 4
	// DefaultFenceTimeout bounds the wait for a slot's previous submission.
	DefaultFenceTimeout = 2 * time.Second
	// DefaultPollInterval is how often a blocked Acquire polls the queue.
	DefaultPollInterval = 250 * time.Microsecond
)

// ErrStaleFrame is returned when Submit or Discard receives a frame that is
// not the ring's open frame.
var ErrStaleFrame = errors.New("frame: frame is not the open frame")

// Config configures a Ring. Zero fields take defaults.
type Config struct {
	Slots        int
	FenceTimeout time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() (Config, error) {
	if c.Slots == 0 {
		c.Slots = DefaultSlots
	}
	if c.Slots < 1 || c.Slots > MaxSlots {
		return c, fmt.Errorf("frame: %d slots out of range [1, %d]", c.Slots, MaxSlots)
	}
	if c.FenceTimeout <= 0 {
		c.FenceTimeout = DefaultFenceTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c, nil
}

// Image is an acquired render target image.
type Image struct {
	Texture hal.Texture
	View    hal.TextureView
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat

	// Suboptimal is set when the image is usable but the swapchain should
	// be rebuilt after presenting it.
	Suboptimal bool

	// Surface is the presentable texture when the target is a window
	// surface; nil for offscreen targets.
	Surface hal.SurfaceTexture
}

// Target supplies images to render into. Errors returned by a Target are
// already classified into the gpuerr taxonomy.
type Target interface {
	// Acquire returns the next image, signalling fence when it is ready.
	Acquire(fence hal.Fence) (*Image, error)
	// Present hands a submitted image to the display.
	Present(img *Image) error
	// Discard returns an image that will not be submitted.
	Discard(img *Image)
	// Release destroys per-frame objects of a presented image. The ring
	// calls it once the GPU work that used the image is complete.
	Release(img *Image)
}

// Frame is the open frame returned by Acquire.
type Frame struct {
	Slot    int
	Image   *Image
	Encoder hal.CommandEncoder

	target Target
}

type slot struct {
	encoder        hal.CommandEncoder
	imageAvailable hal.Fence
	submission     uint64
	cmd            hal.CommandBuffer
}

type retired struct {
	after   uint64
	release func()
}

// Ring is the frame resource ring. It is not safe for concurrent use;
// recording and submission happen on one goroutine.
type Ring struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config

	slots     []*slot
	next      int
	active    *Frame
	submitted uint64 // index of the newest submission
	frames    uint64
	garbage   []retired
	lost      bool
	closed    bool
}

// New creates a ring with one encoder and fence per slot.
func New(shared *gpucore.Shared, cfg Config) (*Ring, error) {
	if err := shared.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	r := &Ring{device: shared.Device, queue: shared.Queue, cfg: cfg}
	for i := range cfg.Slots {
		enc, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: fmt.Sprintf("frame_slot_%d", i),
		})
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("frame: create encoder %d: %w", i, gpuerr.Classify(err))
		}
		fence, err := r.device.CreateFence()
		if err != nil {
			enc.Destroy()
			r.Close()
			return nil, fmt.Errorf("frame: create fence %d: %w", i, gpuerr.Classify(err))
		}
		r.slots = append(r.slots, &slot{encoder: enc, imageAvailable: fence})
	}
	return r, nil
}

// Slots returns the number of frames in flight.
func (r *Ring) Slots() int { return len(r.slots) }

// Next returns the slot the next Acquire will use.
func (r *Ring) Next() int { return r.next }

// Submitted returns how many frames have been submitted.
func (r *Ring) Submitted() uint64 { return r.frames }

// Pending returns the number of retired releases still waiting on the GPU.
func (r *Ring) Pending() int { return len(r.garbage) }

// Lost reports whether a wait has timed out. A lost ring refuses to wait
// again.
func (r *Ring) Lost() bool { return r.lost }

// Active reports whether a frame is open.
func (r *Ring) Active() bool { return r.active != nil }

// Acquire waits for the next slot to become free, acquires an image from
// target and begins encoding. On error the ring does not advance.
func (r *Ring) Acquire(target Target) (*Frame, error) {
	if r.closed {
		return nil, gpuerr.ErrClosed
	}
	if r.active != nil {
		return nil, gpuerr.ErrFrameActive
	}
	s := r.slots[r.next]
	if err := r.wait(r.next, s.submission); err != nil {
		return nil, err
	}
	if s.cmd != nil {
		r.device.FreeCommandBuffer(s.cmd)
		s.cmd = nil
	}
	r.collect()

	if err := r.device.ResetFence(s.imageAvailable); err != nil {
		return nil, fmt.Errorf("frame: reset fence: %w", gpuerr.Classify(err))
	}
	img, err := target.Acquire(s.imageAvailable)
	if err != nil {
		return nil, err
	}
	if err := s.encoder.BeginEncoding(fmt.Sprintf("frame_%d", r.frames)); err != nil {
		target.Discard(img)
		return nil, fmt.Errorf("frame: begin encoding: %w", gpuerr.Classify(err))
	}
	f := &Frame{Slot: r.next, Image: img, Encoder: s.encoder, target: target}
	r.active = f
	return f, nil
}

// Submit ends encoding, submits the frame's commands, presents the image and
// advances the ring. A presentation error is returned after the frame has
// been submitted; the slot is still consumed.
func (r *Ring) Submit(f *Frame) error {
	if f == nil || f != r.active {
		return ErrStaleFrame
	}
	r.active = nil
	s := r.slots[f.Slot]

	cmd, err := f.Encoder.EndEncoding()
	if err != nil {
		f.Encoder.DiscardEncoding()
		f.target.Discard(f.Image)
		return fmt.Errorf("frame: end encoding: %w", gpuerr.Classify(err))
	}
	idx, err := r.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		r.device.FreeCommandBuffer(cmd)
		f.target.Discard(f.Image)
		return fmt.Errorf("frame: submit: %w", gpuerr.Classify(err))
	}
	s.submission = idx
	s.cmd = cmd
	r.submitted = idx
	r.frames++
	r.next = (r.next + 1) % len(r.slots)

	img, target := f.Image, f.target
	r.Retire(func() { target.Release(img) })
	return target.Present(img)
}

// Discard abandons the open frame. Nothing is submitted and the ring does
// not advance.
func (r *Ring) Discard(f *Frame) error {
	if f == nil || f != r.active {
		return ErrStaleFrame
	}
	r.active = nil
	f.Encoder.DiscardEncoding()
	f.target.Discard(f.Image)
	return nil
}

// Retire defers release until all work submitted so far is complete.
func (r *Ring) Retire(release func()) {
	if release == nil {
		return
	}
	r.garbage = append(r.garbage, retired{after: r.submitted, release: release})
}

// WaitIdle blocks until every slot's last submission is complete, then runs
// pending releases.
func (r *Ring) WaitIdle() error {
	for i, s := range r.slots {
		if err := r.wait(i, s.submission); err != nil {
			return err
		}
		if s.cmd != nil {
			r.device.FreeCommandBuffer(s.cmd)
			s.cmd = nil
		}
	}
	r.collect()
	return nil
}

// Close waits for the GPU, runs every pending release and destroys the
// slots' encoders and fences.
func (r *Ring) Close() {
	if r.closed {
		return
	}
	if r.active != nil {
		_ = r.Discard(r.active)
	}
	if r.lost {
		gpucore.Logger().Debug("frame: device lost, closing without waiting")
	} else if err := r.WaitIdle(); err != nil {
		gpucore.Logger().Warn("frame: wait idle on close", "err", err)
	}
	for _, g := range r.garbage {
		g.release()
	}
	r.garbage = nil
	for _, s := range r.slots {
		if s.cmd != nil {
			r.device.FreeCommandBuffer(s.cmd)
		}
		s.encoder.Destroy()
		r.device.DestroyFence(s.imageAvailable)
	}
	r.slots = nil
	r.closed = true
}

func (r *Ring) wait(slotIndex int, submission uint64) error {
	if submission == 0 || r.queue.PollCompleted() >= submission {
		return nil
	}
	if r.lost {
		return fmt.Errorf("%w: slot %d submission %d", gpuerr.ErrDeviceLost, slotIndex, submission)
	}
	deadline := time.Now().Add(r.cfg.FenceTimeout)
	for {
		time.Sleep(r.cfg.PollInterval)
		if r.queue.PollCompleted() >= submission {
			return nil
		}
		if time.Now().After(deadline) {
			r.lost = true
			return fmt.Errorf("%w: slot %d submission %d incomplete after %v",
				gpuerr.ErrDeviceLost, slotIndex, submission, r.cfg.FenceTimeout)
		}
	}
}

func (r *Ring) collect() {
	if len(r.garbage) == 0 {
		return
	}
	completed := r.queue.PollCompleted()
	kept := r.garbage[:0]
	for _, g := range r.garbage {
		if g.after <= completed {
			g.release()
			continue
		}
		kept = append(kept, g)
	}
	clear(r.garbage[len(kept):])
	r.garbage = kept
}
