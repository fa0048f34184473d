// Package uniform owns per-slot uniform buffers, sampled textures and the
// bind groups that tie them to the quad and overlay pipelines.
//
// Quad pipeline:
//
//	group 0: binding 0 view-projection mat4x4<f32> (vertex)
//	group 1: binding 0 texture_2d<f32>, binding 1 sampler (fragment)
//
// Overlay pipeline:
//
//	group 0: binding 0 ortho mat4x4<f32> (vertex),
//	         binding 1 texture_2d<f32>, binding 2 sampler (fragment)
package uniform

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
	"github.com/gogpu/quad/internal/pipeline"
)

// MatrixSize is the size of a mat4x4<f32> uniform.
const MatrixSize = 64

// Layout names registered with the pipeline builder.
const (
	LayoutQuadCamera  = "quad_camera"
	LayoutQuadTexture = "quad_texture"
	LayoutOverlay     = "overlay"
)

type slotState struct {
	vp      hal.Buffer
	vpGroup hal.BindGroup

	ortho         hal.Buffer
	orthoW        uint32
	orthoH        uint32
	orthoWritten  bool
	overlayGroups map[TextureID]hal.BindGroup
}

// Manager owns uniforms, textures and bind groups.
type Manager struct {
	device hal.Device
	queue  hal.Queue

	quadCamera  hal.BindGroupLayout
	quadTexture hal.BindGroupLayout
	overlay     hal.BindGroupLayout
	sampler     hal.Sampler

	slots      []slotState
	textures   map[TextureID]*texture
	quadGroups map[TextureID]hal.BindGroup
	next       TextureID
	white      TextureID
}

// New registers the bind group layouts with builder and allocates the
// per-slot uniform buffers, the shared sampler and the white texture.
func New(shared *gpucore.Shared, builder *pipeline.Builder, slots int) (*Manager, error) {
	if err := shared.Validate(); err != nil {
		return nil, err
	}
	if slots < 1 {
		return nil, fmt.Errorf("uniform: invalid slot count %d", slots)
	}
	m := &Manager{
		device:     shared.Device,
		queue:      shared.Queue,
		textures:   make(map[TextureID]*texture),
		quadGroups: make(map[TextureID]hal.BindGroup),
	}
	if err := m.init(builder, slots); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) init(builder *pipeline.Builder, slots int) error {
	var err error
	if m.quadCamera, err = builder.Layout(LayoutQuadCamera, []gputypes.BindGroupLayoutEntry{
		uniformEntry(0),
	}); err != nil {
		return err
	}
	if m.quadTexture, err = builder.Layout(LayoutQuadTexture, []gputypes.BindGroupLayoutEntry{
		textureEntry(0), samplerEntry(1),
	}); err != nil {
		return err
	}
	if m.overlay, err = builder.Layout(LayoutOverlay, []gputypes.BindGroupLayoutEntry{
		uniformEntry(0), textureEntry(1), samplerEntry(2),
	}); err != nil {
		return err
	}

	m.sampler, err = m.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "quad_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("uniform: create sampler: %w", gpuerr.Classify(err))
	}

	for i := range slots {
		s, err := m.newSlot(i)
		if err != nil {
			return err
		}
		m.slots = append(m.slots, s)
	}

	m.white, err = m.createTexture("white", 1, 1, []byte{255, 255, 255, 255})
	return err
}

func (m *Manager) newSlot(i int) (slotState, error) {
	s := slotState{overlayGroups: make(map[TextureID]hal.BindGroup)}
	var err error
	if s.vp, err = m.uniformBuffer(fmt.Sprintf("quad_vp_%d", i)); err != nil {
		return s, err
	}
	if s.ortho, err = m.uniformBuffer(fmt.Sprintf("overlay_ortho_%d", i)); err != nil {
		m.device.DestroyBuffer(s.vp)
		return s, err
	}
	s.vpGroup, err = m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("quad_camera_%d", i),
		Layout: m.quadCamera,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: s.vp.NativeHandle(), Size: MatrixSize}},
		},
	})
	if err != nil {
		m.device.DestroyBuffer(s.ortho)
		m.device.DestroyBuffer(s.vp)
		return s, fmt.Errorf("uniform: create camera group: %w", gpuerr.Classify(err))
	}
	return s, nil
}

func (m *Manager) uniformBuffer(label string) (hal.Buffer, error) {
	buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  MatrixSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("uniform: create %s: %w", label, gpuerr.Classify(err))
	}
	return buf, nil
}

func uniformEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageVertex,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func textureEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageFragment,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		},
	}
}

func samplerEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageFragment,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	}
}

// QuadLayouts returns the quad pipeline's bind group layouts in group order.
func (m *Manager) QuadLayouts() []hal.BindGroupLayout {
	return []hal.BindGroupLayout{m.quadCamera, m.quadTexture}
}

// OverlayLayouts returns the overlay pipeline's bind group layouts.
func (m *Manager) OverlayLayouts() []hal.BindGroupLayout {
	return []hal.BindGroupLayout{m.overlay}
}

// Slots returns the number of frame slots served.
func (m *Manager) Slots() int { return len(m.slots) }

func (m *Manager) slot(i int) (*slotState, error) {
	if i < 0 || i >= len(m.slots) {
		return nil, fmt.Errorf("uniform: slot %d out of range [0, %d)", i, len(m.slots))
	}
	return &m.slots[i], nil
}

// WriteViewProjection uploads a column-major matrix into slot's camera
// buffer.
func (m *Manager) WriteViewProjection(slot int, mat [16]float32) error {
	s, err := m.slot(slot)
	if err != nil {
		return err
	}
	if err := m.queue.WriteBuffer(s.vp, 0, EncodeMatrix(mat)); err != nil {
		return fmt.Errorf("uniform: write view-projection: %w", gpuerr.Classify(err))
	}
	return nil
}

// UpdateOrtho rewrites slot's overlay projection when the framebuffer
// size it last saw differs. It reports whether a write happened.
func (m *Manager) UpdateOrtho(slot int, width, height uint32) (bool, error) {
	s, err := m.slot(slot)
	if err != nil {
		return false, err
	}
	if s.orthoWritten && s.orthoW == width && s.orthoH == height {
		return false, nil
	}
	mat := OverlayProjection(float32(width), float32(height))
	if err := m.queue.WriteBuffer(s.ortho, 0, EncodeMatrix(mat)); err != nil {
		return false, fmt.Errorf("uniform: write overlay projection: %w", gpuerr.Classify(err))
	}
	s.orthoW, s.orthoH, s.orthoWritten = width, height, true
	return true, nil
}

// CameraGroup returns slot's group 0 for the quad pipeline.
func (m *Manager) CameraGroup(slot int) (hal.BindGroup, error) {
	s, err := m.slot(slot)
	if err != nil {
		return nil, err
	}
	return s.vpGroup, nil
}

// TextureGroup returns the quad pipeline's group 1 for id. Zero selects
// the white texture.
func (m *Manager) TextureGroup(id TextureID) (hal.BindGroup, error) {
	if id == 0 {
		id = m.white
	}
	if g, ok := m.quadGroups[id]; ok {
		return g, nil
	}
	tex, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	g, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("quad_texture_%d", id),
		Layout: m.quadTexture,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: m.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uniform: create texture group: %w", gpuerr.Classify(err))
	}
	m.quadGroups[id] = g
	gpucore.Logger().Debug("uniform: texture group created", "texture", uint32(id))
	return g, nil
}

// OverlayGroup returns the overlay pipeline's group 0 for slot and atlas
// texture id. Zero selects the white texture.
func (m *Manager) OverlayGroup(slot int, id TextureID) (hal.BindGroup, error) {
	s, err := m.slot(slot)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		id = m.white
	}
	if g, ok := s.overlayGroups[id]; ok {
		return g, nil
	}
	tex, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	g, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("overlay_%d_%d", slot, id),
		Layout: m.overlay,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: s.ortho.NativeHandle(), Size: MatrixSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: m.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uniform: create overlay group: %w", gpuerr.Classify(err))
	}
	s.overlayGroups[id] = g
	return g, nil
}

// Close destroys every object the manager created. Layouts belong to the
// pipeline builder.
func (m *Manager) Close() {
	for id := range m.textures {
		m.releaseGroups(id)()
		m.textures[id].destroy(m.device)
	}
	clear(m.textures)
	for _, s := range m.slots {
		if s.vpGroup != nil {
			m.device.DestroyBindGroup(s.vpGroup)
		}
		m.device.DestroyBuffer(s.vp)
		m.device.DestroyBuffer(s.ortho)
	}
	m.slots = nil
	if m.sampler != nil {
		m.device.DestroySampler(m.sampler)
		m.sampler = nil
	}
}

// EncodeMatrix returns the little-endian bytes of a column-major matrix.
func EncodeMatrix(mat [16]float32) []byte {
	buf := make([]byte, MatrixSize)
	for i, v := range mat {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// OverlayProjection maps framebuffer pixels, origin top-left, to clip
// space. Depth passes through unchanged.
func OverlayProjection(width, height float32) [16]float32 {
	if width == 0 || height == 0 {
		return [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	}
	return [16]float32{
		2 / width, 0, 0, 0,
		0, -2 / height, 0, 0,
		0, 0, 1, 0,
		-1, 1, 0, 1,
	}
}
