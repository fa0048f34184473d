// Package swapchain tracks whether the presentation target matches the
// window and provides the two frame targets: a window surface and an
// offscreen texture with CPU readback.
package swapchain

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/frame"
)

// State is the swapchain validity.
type State int32

const (
	// Invalid means the target must be rebuilt before the next acquire.
	Invalid State = iota
	// Valid means images may be acquired.
	Valid
)

func (s State) String() string {
	if s == Valid {
		return "valid"
	}
	return "invalid"
}

// Swapchain is a frame target whose configuration can go stale.
type Swapchain interface {
	frame.Target

	State() State
	// Invalidate marks the target stale. Safe from any goroutine.
	Invalidate()
	// Rebuild configures the target for the given framebuffer size.
	Rebuild(width, height uint32, format gputypes.TextureFormat) error
	Size() (width, height uint32)
	Format() gputypes.TextureFormat
	Close()
}

// status is the atomic state shared by both targets.
type status struct {
	v atomic.Int32
}

func (s *status) State() State { return State(s.v.Load()) }
func (s *status) Invalidate()  { s.v.Store(int32(Invalid)) }
func (s *status) validate()    { s.v.Store(int32(Valid)) }

var (
	_ Swapchain = (*Surface)(nil)
	_ Swapchain = (*Offscreen)(nil)
)
