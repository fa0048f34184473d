package quad

import (
	"errors"

	"github.com/gogpu/quad/internal/gpuerr"
)

// Errors returned by the renderer. Classify with errors.Is.
var (
	// ErrDeviceLost is fatal: the renderer closes itself.
	ErrDeviceLost = gpuerr.ErrDeviceLost
	// ErrSwapchainOutOfDate means the surface must be reconfigured.
	ErrSwapchainOutOfDate = gpuerr.ErrSwapchainOutOfDate
	// ErrSwapchainSuboptimal means the frame was shown but the surface
	// should be reconfigured.
	ErrSwapchainSuboptimal = gpuerr.ErrSwapchainSuboptimal
	// ErrResourceExhausted reports a full quad batch or GPU memory
	// exhaustion.
	ErrResourceExhausted = gpuerr.ErrResourceExhausted
	// ErrShaderCompilation and ErrLayoutMismatch are init-time failures.
	ErrShaderCompilation = gpuerr.ErrShaderCompilation
	ErrLayoutMismatch    = gpuerr.ErrLayoutMismatch
	// ErrFrameNotReady means no image was available in time.
	ErrFrameNotReady = gpuerr.ErrFrameNotReady
	// ErrMinimized means the framebuffer has zero area.
	ErrMinimized = gpuerr.ErrMinimized
	// ErrFrameActive is returned by Begin while a frame is open.
	ErrFrameActive = gpuerr.ErrFrameActive
	// ErrClosed is returned after Close or a fatal error.
	ErrClosed = gpuerr.ErrClosed
)

// ErrNoFrame is returned when a frame operation runs outside Begin/End.
var ErrNoFrame = errors.New("quad: no frame in progress")

// IsFatal reports whether err ends the renderer's life.
func IsFatal(err error) bool { return gpuerr.IsFatal(err) }

// IsRecoverable reports whether err only costs the current frame.
func IsRecoverable(err error) bool { return gpuerr.IsRecoverable(err) }
