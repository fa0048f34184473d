// Package quad is a real-time 2D rendering core for the gogpu/wgpu HAL.
//
// # Overview
//
// Each frame draws two layers into one render target inside one render
// pass: a quad layer projected by a camera matrix, then a screen-space
// GUI overlay. Quads are batched into one buffer upload and one indexed
// draw per run of quads sharing a texture. Overlay draw lists carry their
// own atlas texture and clip rectangle; their vertex colors are sRGB and
// are converted to linear light before blending.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/quad"
//		_ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	dev, _ := quad.OpenDevice()
//	defer dev.Close()
//
//	r, _ := quad.NewHeadless(dev.Device(), dev.Queue(), 640, 480)
//	defer r.Close()
//
//	r.Begin()
//	r.SetViewProjection(quad.NewOrthoCamera(640.0 / 480).ViewProjection())
//	r.AddQuad(quad.Quad{Size: [2]float32{0.5, 0.5}, Color: quad.RGB(1, 0, 0)})
//	r.End()
//
//	img, _ := r.ReadPixels()
//
// # Frames in flight
//
// The CPU records up to N frames ahead of the GPU (WithFramesInFlight,
// default 2). Every per-frame buffer is owned by one frame slot and is
// rewritten only after the GPU has finished the slot's previous frame. A
// slot that does not complete within the fence timeout is reported as
// ErrDeviceLost.
//
// # Swapchain
//
// The swapchain is either valid or invalid. Resize events, an out of date
// or suboptimal image and zero-area framebuffers make it invalid; the next
// End waits for the GPU, reconfigures the surface at the window's
// framebuffer size and rebuilds both pipelines. Frames that cannot be
// presented for such reasons are skipped and counted in Stats.
//
// # Logging
//
// quad logs through log/slog and is silent by default. See SetLogger.
package quad
