// Package render records the quad pass and the GUI overlay pass into a
// frame's render pass.
package render

import (
	_ "embed"
)

// Embedded WGSL shader sources.

//go:embed shaders/quad.wgsl
var QuadShaderSource string

//go:embed shaders/overlay.wgsl
var OverlayShaderSource string

// Entry points shared by both shaders.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
