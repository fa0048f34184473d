// Package pipeline builds render pipelines from WGSL after checking the
// vertex buffer layout against the shader's reflected inputs.
package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

// Desc describes one render pipeline.
type Desc struct {
	Label         string
	Source        string // WGSL
	VertexEntry   string
	FragmentEntry string
	Buffers       []gputypes.VertexBufferLayout
	Groups        []hal.BindGroupLayout
	Format        gputypes.TextureFormat

	// Blend is the color target blend state; nil means replace.
	Blend *gputypes.BlendState
}

// Pipeline is an immutable shader module, pipeline layout and render
// pipeline triple.
type Pipeline struct {
	Label  string
	Format gputypes.TextureFormat
	Inputs []Input

	Handle hal.RenderPipeline
	layout hal.PipelineLayout
	shader hal.ShaderModule
	device hal.Device
}

// Destroy releases the pipeline's GPU objects. Safe to call twice.
func (p *Pipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.Handle != nil {
		p.device.DestroyRenderPipeline(p.Handle)
		p.Handle = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// Builder creates pipelines and owns the bind group layouts they share.
// Layouts survive pipeline rebuilds so bind groups created against them
// stay valid.
type Builder struct {
	device  hal.Device
	layouts map[string]hal.BindGroupLayout
	order   []string
}

// NewBuilder returns a builder for the shared device.
func NewBuilder(shared *gpucore.Shared) *Builder {
	return &Builder{
		device:  shared.Device,
		layouts: make(map[string]hal.BindGroupLayout),
	}
}

// Layout returns the bind group layout registered under name, creating it
// from entries on first use.
func (b *Builder) Layout(name string, entries []gputypes.BindGroupLayoutEntry) (hal.BindGroupLayout, error) {
	if l, ok := b.layouts[name]; ok {
		return l, nil
	}
	l, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %s: %w", name, gpuerr.Classify(err))
	}
	b.layouts[name] = l
	b.order = append(b.order, name)
	return l, nil
}

// Build compiles, validates and creates a pipeline.
func (b *Builder) Build(d Desc) (*Pipeline, error) {
	compiled, err := Compile(d.Label, d.Source)
	if err != nil {
		return nil, err
	}
	if _, err := compiled.entryPoint(d.FragmentEntry, ir.StageFragment); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Label, err)
	}
	inputs, err := compiled.VertexInputs(d.VertexEntry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Label, err)
	}
	if err := CheckLayout(inputs, d.Buffers); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Label, err)
	}

	p := &Pipeline{Label: d.Label, Format: d.Format, Inputs: inputs, device: b.device}

	// Backends that translate from WGSL (Metal, DX12) read Source.WGSL;
	// SPIR-V consumers take the words compiled above.
	p.shader, err = b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.Label + "_shader",
		Source: hal.ShaderSource{WGSL: compiled.Source, SPIRV: compiled.SPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create shader module: %w", gpuerr.ErrShaderCompilation, d.Label, err)
	}

	p.layout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.Label + "_layout",
		BindGroupLayouts: d.Groups,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%s: create pipeline layout: %w", d.Label, gpuerr.Classify(err))
	}

	blend := gputypes.BlendStateReplace()
	if d.Blend != nil {
		blend = *d.Blend
	}
	p.Handle, err = b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  d.Label,
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: d.VertexEntry,
			Buffers:    d.Buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: d.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.Format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("%s: create render pipeline: %w", d.Label, gpuerr.Classify(err))
	}

	gpucore.Logger().Debug("pipeline: built",
		"label", d.Label,
		"format", d.Format.String(),
		"inputs", len(inputs),
		"spirv_words", len(compiled.SPIRV))
	return p, nil
}

// Close destroys the cached bind group layouts. Pipelines are destroyed by
// their owners.
func (b *Builder) Close() {
	for i := len(b.order) - 1; i >= 0; i-- {
		name := b.order[i]
		b.device.DestroyBindGroupLayout(b.layouts[name])
		delete(b.layouts, name)
	}
	b.order = nil
}
