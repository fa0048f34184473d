package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/pipeline"
	"github.com/gogpu/quad/internal/uniform"
)

// Pipelines holds the quad and overlay pipelines for one target format.
// Both are rebuilt together when the format changes.
type Pipelines struct {
	builder   *pipeline.Builder
	uniforms  *uniform.Manager
	quadBlend gputypes.BlendState

	Quad    *pipeline.Pipeline
	Overlay *pipeline.Pipeline
	format  gputypes.TextureFormat
	builds  int
}

// NewPipelines returns an unbuilt pair. quadBlend nil means replace.
func NewPipelines(builder *pipeline.Builder, uniforms *uniform.Manager, quadBlend *gputypes.BlendState) *Pipelines {
	blend := gputypes.BlendStateReplace()
	if quadBlend != nil {
		blend = *quadBlend
	}
	return &Pipelines{builder: builder, uniforms: uniforms, quadBlend: blend}
}

// Build destroys any previous pipelines and builds both for format.
func (p *Pipelines) Build(format gputypes.TextureFormat) error {
	p.Destroy()
	quadBlend := p.quadBlend
	q, err := p.builder.Build(pipeline.Desc{
		Label:         "quad",
		Source:        QuadShaderSource,
		VertexEntry:   VertexEntry,
		FragmentEntry: FragmentEntry,
		Buffers:       batch.VertexBuffers(),
		Groups:        p.uniforms.QuadLayouts(),
		Format:        format,
		Blend:         &quadBlend,
	})
	if err != nil {
		return err
	}
	overlayBlend := gputypes.BlendStateAlpha()
	o, err := p.builder.Build(pipeline.Desc{
		Label:         "overlay",
		Source:        OverlayShaderSource,
		VertexEntry:   VertexEntry,
		FragmentEntry: FragmentEntry,
		Buffers:       OverlayVertexBuffers(),
		Groups:        p.uniforms.OverlayLayouts(),
		Format:        format,
		Blend:         &overlayBlend,
	})
	if err != nil {
		q.Destroy()
		return err
	}
	p.Quad, p.Overlay, p.format = q, o, format
	p.builds++
	gpucore.Logger().Debug("render: pipelines built", "format", format.String(), "builds", p.builds)
	return nil
}

// Format returns the format the pipelines were built for.
func (p *Pipelines) Format() gputypes.TextureFormat { return p.format }

// Built reports whether both pipelines exist.
func (p *Pipelines) Built() bool { return p.Quad != nil && p.Overlay != nil }

// Builds returns how many times Build succeeded.
func (p *Pipelines) Builds() int { return p.builds }

// QuadBlend returns the quad layer blend state.
func (p *Pipelines) QuadBlend() gputypes.BlendState { return p.quadBlend }

// Destroy releases both pipelines. Layouts stay with the builder.
func (p *Pipelines) Destroy() {
	if p.Quad != nil {
		p.Quad.Destroy()
		p.Quad = nil
	}
	if p.Overlay != nil {
		p.Overlay.Destroy()
		p.Overlay = nil
	}
}
