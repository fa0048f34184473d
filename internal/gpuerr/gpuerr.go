// Package gpuerr defines the renderer's error taxonomy and maps HAL errors
// onto it.
//
// Fatal: ErrDeviceLost, ErrShaderCompilation, ErrLayoutMismatch.
// Recoverable (the frame is skipped, the swapchain rebuilt if needed):
// ErrSwapchainOutOfDate, ErrSwapchainSuboptimal, ErrFrameNotReady,
// ErrMinimized. ErrResourceExhausted is surfaced to the caller; the frame
// may be dropped but the renderer stays usable.
package gpuerr

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

var (
	// ErrDeviceLost means the GPU device or surface is gone, or a frame fence
	// did not signal within the configured timeout.
	ErrDeviceLost = errors.New("quad: device lost")

	// ErrSwapchainOutOfDate means the swapchain no longer matches the surface.
	ErrSwapchainOutOfDate = errors.New("quad: swapchain out of date")

	// ErrSwapchainSuboptimal means presentation still works but the swapchain
	// should be rebuilt.
	ErrSwapchainSuboptimal = errors.New("quad: swapchain suboptimal")

	// ErrResourceExhausted means a batch or GPU allocation ran out of room.
	ErrResourceExhausted = errors.New("quad: resource exhausted")

	// ErrShaderCompilation means a shader failed to parse, validate or lower.
	ErrShaderCompilation = errors.New("quad: shader compilation failed")

	// ErrLayoutMismatch means a vertex layout disagrees with shader inputs.
	ErrLayoutMismatch = errors.New("quad: vertex layout mismatch")

	// ErrFrameNotReady means no presentable image was available in time.
	ErrFrameNotReady = errors.New("quad: frame not ready")

	// ErrMinimized means the framebuffer has zero area.
	ErrMinimized = errors.New("quad: framebuffer has zero area")

	// ErrFrameActive means a frame was acquired while another is open.
	ErrFrameActive = errors.New("quad: frame already in progress")

	// ErrClosed means the renderer was closed or failed fatally.
	ErrClosed = errors.New("quad: renderer closed")
)

// Classify wraps a HAL error with the matching taxonomy sentinel.
// Errors that already carry a sentinel and unknown errors are returned as is.
func Classify(err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	switch {
	case errors.Is(err, hal.ErrDeviceLost), errors.Is(err, hal.ErrSurfaceLost):
		return fmt.Errorf("%w: %w", ErrDeviceLost, err)
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return fmt.Errorf("%w: %w", ErrSwapchainOutOfDate, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		return fmt.Errorf("%w: %w", ErrFrameNotReady, err)
	case errors.Is(err, hal.ErrZeroArea):
		return fmt.Errorf("%w: %w", ErrMinimized, err)
	}
	return err
}

var taxonomy = []error{
	ErrDeviceLost,
	ErrSwapchainOutOfDate,
	ErrSwapchainSuboptimal,
	ErrResourceExhausted,
	ErrShaderCompilation,
	ErrLayoutMismatch,
	ErrFrameNotReady,
	ErrMinimized,
	ErrFrameActive,
	ErrClosed,
}

func isClassified(err error) bool {
	for _, s := range taxonomy {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err ends the renderer's life.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost) ||
		errors.Is(err, ErrShaderCompilation) ||
		errors.Is(err, ErrLayoutMismatch) ||
		errors.Is(err, ErrClosed)
}

// IsRecoverable reports whether err only costs the current frame.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSwapchainOutOfDate) ||
		errors.Is(err, ErrSwapchainSuboptimal) ||
		errors.Is(err, ErrFrameNotReady) ||
		errors.Is(err, ErrMinimized)
}

// NeedsRebuild reports whether err invalidates the swapchain.
func NeedsRebuild(err error) bool {
	return errors.Is(err, ErrSwapchainOutOfDate) || errors.Is(err, ErrSwapchainSuboptimal)
}
