package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
	"github.com/gogpu/quad/internal/uniform"
	"github.com/gogpu/quad/overlay"
)

// minOverlayBuffer is the smallest overlay buffer allocation.
const minOverlayBuffer = 16 << 10

// OverlayVertexBuffers returns the overlay vertex layout: pos @0, uv @1,
// color @2 in one interleaved stream.
func OverlayVertexBuffers() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: overlay.VertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
		},
	}}
}

// ListDraw locates one draw list inside the uploaded overlay buffers.
type ListDraw struct {
	FirstIndex uint32
	IndexCount uint32
	BaseVertex int32
	Texture    overlay.TextureID
	Clip       overlay.Rect
}

// OverlayDraw is the result of an upload.
type OverlayDraw struct {
	Vertices hal.Buffer
	Indices  hal.Buffer
	Lists    []ListDraw

	// Bytes exactly as written to the GPU.
	VertexBytes []byte
	IndexBytes  []byte
}

type overlaySlot struct {
	vertices    hal.Buffer
	vertexCap   uint64
	indices     hal.Buffer
	indexCap    uint64
	vertexBytes []byte
	indexBytes  []byte
	lists       []ListDraw
}

// OverlayPass owns per-slot overlay buffers that grow on demand.
type OverlayPass struct {
	device hal.Device
	queue  hal.Queue
	slots  []overlaySlot
}

// NewOverlayPass allocates initial bytes of vertex and index storage per
// slot.
func NewOverlayPass(shared *gpucore.Shared, slots int, initial uint64) (*OverlayPass, error) {
	if err := shared.Validate(); err != nil {
		return nil, err
	}
	if slots < 1 {
		return nil, fmt.Errorf("render: invalid slot count %d", slots)
	}
	o := &OverlayPass{device: shared.Device, queue: shared.Queue, slots: make([]overlaySlot, slots)}
	initial = max(initial, minOverlayBuffer)
	for i := range o.slots {
		s := &o.slots[i]
		if err := o.ensure(i, &s.vertices, &s.vertexCap, initial, gputypes.BufferUsageVertex); err != nil {
			o.Close()
			return nil, err
		}
		if err := o.ensure(i, &s.indices, &s.indexCap, initial, gputypes.BufferUsageIndex); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

// ensure grows *buf to hold need bytes. The slot's previous work is
// complete whenever this runs, so the old buffer is destroyed at once.
func (o *OverlayPass) ensure(slot int, buf *hal.Buffer, capacity *uint64, need uint64, usage gputypes.BufferUsage) error {
	if *buf != nil && need <= *capacity {
		return nil
	}
	size := max(*capacity, minOverlayBuffer)
	for size < need {
		size *= 2
	}
	nb, err := o.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("overlay_%d", slot),
		Size:  size,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("render: grow overlay buffer: %w", gpuerr.Classify(err))
	}
	if *buf != nil {
		o.device.DestroyBuffer(*buf)
		gpucore.Logger().Debug("render: overlay buffer grown", "slot", slot, "from", *capacity, "to", size)
	}
	*buf, *capacity = nb, size
	return nil
}

// Upload packs lists into slot's buffers. Invalid lists are rejected
// before anything is written.
func (o *OverlayPass) Upload(slot int, lists []overlay.DrawList) (OverlayDraw, error) {
	if slot < 0 || slot >= len(o.slots) {
		return OverlayDraw{}, fmt.Errorf("render: slot %d out of range [0, %d)", slot, len(o.slots))
	}
	s := &o.slots[slot]
	s.lists = s.lists[:0]
	s.vertexBytes = s.vertexBytes[:0]
	s.indexBytes = s.indexBytes[:0]

	var vertexCount, indexCount int
	for i := range lists {
		if err := lists[i].Validate(); err != nil {
			return OverlayDraw{}, fmt.Errorf("render: draw list %d: %w", i, err)
		}
		if len(lists[i].Indices) == 0 {
			continue
		}
		s.lists = append(s.lists, ListDraw{
			FirstIndex: uint32(indexCount),
			IndexCount: uint32(len(lists[i].Indices)),
			BaseVertex: int32(vertexCount),
			Texture:    lists[i].Texture,
			Clip:       lists[i].Clip,
		})
		vertexCount += len(lists[i].Vertices)
		indexCount += len(lists[i].Indices)
	}
	if len(s.lists) == 0 {
		return OverlayDraw{}, nil
	}

	for i := range lists {
		if len(lists[i].Indices) == 0 {
			continue
		}
		for _, v := range lists[i].Vertices {
			s.vertexBytes = appendFloats(s.vertexBytes, v.Pos[:]...)
			s.vertexBytes = appendFloats(s.vertexBytes, v.UV[:]...)
			s.vertexBytes = appendFloats(s.vertexBytes, v.Color[:]...)
		}
		for _, idx := range lists[i].Indices {
			s.indexBytes = binary.LittleEndian.AppendUint16(s.indexBytes, idx)
		}
	}
	// Buffer writes must be a multiple of 4 bytes.
	if len(s.indexBytes)%4 != 0 {
		s.indexBytes = append(s.indexBytes, 0, 0)
	}

	if err := o.ensure(slot, &s.vertices, &s.vertexCap, uint64(len(s.vertexBytes)), gputypes.BufferUsageVertex); err != nil {
		return OverlayDraw{}, err
	}
	if err := o.ensure(slot, &s.indices, &s.indexCap, uint64(len(s.indexBytes)), gputypes.BufferUsageIndex); err != nil {
		return OverlayDraw{}, err
	}
	if err := o.queue.WriteBuffer(s.vertices, 0, s.vertexBytes); err != nil {
		return OverlayDraw{}, fmt.Errorf("render: upload overlay vertices: %w", gpuerr.Classify(err))
	}
	if err := o.queue.WriteBuffer(s.indices, 0, s.indexBytes); err != nil {
		return OverlayDraw{}, fmt.Errorf("render: upload overlay indices: %w", gpuerr.Classify(err))
	}
	return OverlayDraw{
		Vertices:    s.vertices,
		Indices:     s.indices,
		Lists:       s.lists,
		VertexBytes: s.vertexBytes,
		IndexBytes:  s.indexBytes,
	}, nil
}

func appendFloats(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// RecordOverlay draws every list of d with its atlas and scissor. Lists
// whose clip falls outside the framebuffer are skipped. It returns the
// number of draws issued.
func RecordOverlay(pass hal.RenderPassEncoder, p *Pipelines, u *uniform.Manager, slot int, d OverlayDraw, width, height uint32) (int, error) {
	if len(d.Lists) == 0 {
		return 0, nil
	}
	if p.Overlay == nil {
		return 0, fmt.Errorf("render: overlay pipeline not built")
	}
	pass.SetPipeline(p.Overlay.Handle)
	pass.SetVertexBuffer(0, d.Vertices, 0)
	pass.SetIndexBuffer(d.Indices, gputypes.IndexFormatUint16, 0)

	draws := 0
	for _, l := range d.Lists {
		x, y, w, h, ok := l.Clip.Scissor(width, height)
		if !ok {
			continue
		}
		group, err := u.OverlayGroup(slot, uniform.TextureID(l.Texture))
		if err != nil {
			return draws, err
		}
		pass.SetBindGroup(0, group, nil)
		pass.SetScissorRect(x, y, w, h)
		pass.DrawIndexed(l.IndexCount, 1, l.FirstIndex, l.BaseVertex, 0)
		draws++
	}
	pass.SetScissorRect(0, 0, width, height)
	return draws, nil
}

// Close destroys every slot buffer.
func (o *OverlayPass) Close() {
	for i := range o.slots {
		s := &o.slots[i]
		if s.vertices != nil {
			o.device.DestroyBuffer(s.vertices)
		}
		if s.indices != nil {
			o.device.DestroyBuffer(s.indices)
		}
		*s = overlaySlot{}
	}
}

// DecodeOverlayVertices unpacks vertex bytes produced by Upload.
func DecodeOverlayVertices(data []byte) []overlay.Vertex {
	out := make([]overlay.Vertex, len(data)/overlay.VertexStride)
	for i := range out {
		off := i * overlay.VertexStride
		f := func(k int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(data[off+4*k:]))
		}
		out[i] = overlay.Vertex{
			Pos:   [2]float32{f(0), f(1)},
			UV:    [2]float32{f(2), f(3)},
			Color: [4]float32{f(4), f(5), f(6), f(7)},
		}
	}
	return out
}

// DecodeOverlayIndices unpacks index bytes produced by Upload, including
// any padding index.
func DecodeOverlayIndices(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return out
}
