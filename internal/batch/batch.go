// Package batch accumulates quads into one packed host buffer per frame and
// uploads it to the frame slot's GPU buffer with a single write.
//
// Slot buffer layout, for n quads:
//
//	[0, 128n)            4n vertices: pos vec4<f32>, color vec4<f32>
//	[128n, 160n)         4n uvs: vec2<f32>
//	[160n, 184n)         6n uint32 indices
package batch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

const (
	// VertexStride is the size of one vertex in the position/color stream.
	VertexStride = 32
	// UVStride is the size of one vertex in the uv stream.
	UVStride = 8
	// IndexSize is the size of one index.
	IndexSize = 4
	// QuadBytes is the upload size of one quad.
	QuadBytes = 4*VertexStride + 4*UVStride + 6*IndexSize

	// DefaultCapacity is the quad capacity used when New gets 0.
	DefaultCapacity = 2000
)

// Vertex is one entry of the position/color stream.
type Vertex struct {
	Pos   [4]float32
	Color [4]float32
}

// UVRect is a texture sub-rectangle in normalized coordinates.
type UVRect struct {
	U0, V0, U1, V1 float32
}

// FullUV covers the whole texture.
var FullUV = UVRect{0, 0, 1, 1}

// Quad is one axis-aligned rectangle. Size holds half extents.
type Quad struct {
	Position [3]float32
	Size     [2]float32
	Color    [4]float32
	UV       *UVRect
	Texture  uint32 // 0 means untextured
}

// Segment is a run of indices drawn with one texture.
type Segment struct {
	Texture    uint32
	FirstIndex uint32
	IndexCount uint32
}

// Draw describes an uploaded batch.
type Draw struct {
	Buffer      hal.Buffer
	UVOffset    uint64
	IndexOffset uint64
	IndexCount  uint32
	Segments    []Segment
}

// Empty reports whether there is nothing to draw.
func (d Draw) Empty() bool { return d.IndexCount == 0 }

// unit corners in counter-clockwise order, and the uv corner each takes.
var corners = [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

// Batcher collects quads for one frame at a time.
type Batcher struct {
	device hal.Device
	queue  hal.Queue

	capacity int
	buffers  []hal.Buffer

	vertices []Vertex
	uvs      [][2]float32
	indices  []uint32
	segments []Segment

	staging  []byte
	uploaded []byte
}

// New allocates host storage for capacity quads and one GPU buffer per
// slot. A capacity of 0 means DefaultCapacity.
func New(shared *gpucore.Shared, slots, capacity int) (*Batcher, error) {
	if err := shared.Validate(); err != nil {
		return nil, err
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 0 || slots < 1 {
		return nil, fmt.Errorf("batch: invalid capacity %d or slots %d", capacity, slots)
	}
	b := &Batcher{
		device:   shared.Device,
		queue:    shared.Queue,
		capacity: capacity,
		vertices: make([]Vertex, 0, 4*capacity),
		uvs:      make([][2]float32, 0, 4*capacity),
		indices:  make([]uint32, 0, 6*capacity),
		staging:  make([]byte, QuadBytes*capacity),
	}
	for i := range slots {
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("quad_batch_%d", i),
			Size:  uint64(QuadBytes * capacity),
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("batch: create slot buffer %d: %w", i, gpuerr.Classify(err))
		}
		b.buffers = append(b.buffers, buf)
	}
	gpucore.Logger().Debug("batch: allocated",
		"slots", slots, "capacity", capacity, "bytes_per_slot", QuadBytes*capacity)
	return b, nil
}

// Begin clears the batch. Storage is retained.
func (b *Batcher) Begin() {
	b.vertices = b.vertices[:0]
	b.uvs = b.uvs[:0]
	b.indices = b.indices[:0]
	b.segments = b.segments[:0]
	b.uploaded = nil
}

// AddQuad appends q. When the batch is full it returns an error wrapping
// gpuerr.ErrResourceExhausted and leaves the batch unchanged.
func (b *Batcher) AddQuad(q Quad) error {
	if b.QuadCount() >= b.capacity {
		return fmt.Errorf("%w: quad batch holds %d quads", gpuerr.ErrResourceExhausted, b.capacity)
	}
	uv := FullUV
	if q.UV != nil {
		uv = *q.UV
	}
	texCorners := [4][2]float32{{uv.U0, uv.V1}, {uv.U1, uv.V1}, {uv.U1, uv.V0}, {uv.U0, uv.V0}}

	base := uint32(len(b.vertices))
	for i, c := range corners {
		b.vertices = append(b.vertices, Vertex{
			Pos: [4]float32{
				q.Position[0] + c[0]*q.Size[0],
				q.Position[1] + c[1]*q.Size[1],
				q.Position[2],
				1,
			},
			Color: q.Color,
		})
		b.uvs = append(b.uvs, texCorners[i])
	}

	first := uint32(len(b.indices))
	b.indices = append(b.indices, base, base+1, base+2, base+2, base+3, base)

	if n := len(b.segments); n > 0 && b.segments[n-1].Texture == q.Texture {
		b.segments[n-1].IndexCount += 6
	} else {
		b.segments = append(b.segments, Segment{Texture: q.Texture, FirstIndex: first, IndexCount: 6})
	}
	return nil
}

// End packs the batch and uploads it into slot's buffer with one write.
// An empty batch uploads nothing and returns a zero Draw. The returned
// segments stay valid until the next Begin.
func (b *Batcher) End(slot int) (Draw, error) {
	if slot < 0 || slot >= len(b.buffers) {
		return Draw{}, fmt.Errorf("batch: slot %d out of range [0, %d)", slot, len(b.buffers))
	}
	n := b.QuadCount()
	if n == 0 {
		return Draw{}, nil
	}
	data := b.pack()
	if err := b.queue.WriteBuffer(b.buffers[slot], 0, data); err != nil {
		return Draw{}, fmt.Errorf("batch: upload: %w", gpuerr.Classify(err))
	}
	b.uploaded = data
	return Draw{
		Buffer:      b.buffers[slot],
		UVOffset:    uint64(n * 4 * VertexStride),
		IndexOffset: uint64(n * 4 * (VertexStride + UVStride)),
		IndexCount:  uint32(len(b.indices)),
		Segments:    b.segments,
	}, nil
}

func (b *Batcher) pack() []byte {
	n := b.QuadCount()
	data := b.staging[:n*QuadBytes]
	off := 0
	for _, v := range b.vertices {
		off = putFloats(data, off, v.Pos[:])
		off = putFloats(data, off, v.Color[:])
	}
	for _, uv := range b.uvs {
		off = putFloats(data, off, uv[:])
	}
	for _, idx := range b.indices {
		binary.LittleEndian.PutUint32(data[off:], idx)
		off += IndexSize
	}
	return data
}

func putFloats(dst []byte, off int, vs []float32) int {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
		off += 4
	}
	return off
}

// QuadCount returns the number of quads in the batch.
func (b *Batcher) QuadCount() int { return len(b.vertices) / 4 }

// Capacity returns the maximum number of quads per frame.
func (b *Batcher) Capacity() int { return b.capacity }

// Vertices returns the position/color stream.
func (b *Batcher) Vertices() []Vertex { return b.vertices }

// UVs returns the uv stream.
func (b *Batcher) UVs() [][2]float32 { return b.uvs }

// Indices returns the index stream.
func (b *Batcher) Indices() []uint32 { return b.indices }

// Segments returns the texture segments.
func (b *Batcher) Segments() []Segment { return b.segments }

// Uploaded returns the bytes written by the last End, or nil.
func (b *Batcher) Uploaded() []byte { return b.uploaded }

// Close destroys the slot buffers.
func (b *Batcher) Close() {
	for _, buf := range b.buffers {
		b.device.DestroyBuffer(buf)
	}
	b.buffers = nil
}

// VertexBuffers returns the vertex buffer layouts matching the upload:
// binding 0 carries position and color, binding 1 carries uv.
func VertexBuffers() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
			},
		},
		{
			ArrayStride: UVStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 2},
			},
		},
	}
}
