package render

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpucore/gputest"
	"github.com/gogpu/quad/internal/pipeline"
	"github.com/gogpu/quad/internal/uniform"
	"github.com/gogpu/quad/overlay"
)

type drawCall struct {
	indexCount, firstIndex uint32
	baseVertex             int32
}

// recordingPass captures the calls the passes make.
type recordingPass struct {
	hal.RenderPassEncoder
	pipelines   int
	groups      map[uint32]int
	vertexSlots map[uint32]uint64
	indexFormat gputypes.IndexFormat
	indexOffset uint64
	scissors    [][4]uint32
	draws       []drawCall
}

func newRecordingPass() *recordingPass {
	return &recordingPass{groups: map[uint32]int{}, vertexSlots: map[uint32]uint64{}}
}

func (r *recordingPass) SetPipeline(hal.RenderPipeline) { r.pipelines++ }

func (r *recordingPass) SetBindGroup(i uint32, _ hal.BindGroup, _ []uint32) { r.groups[i]++ }

func (r *recordingPass) SetVertexBuffer(slot uint32, _ hal.Buffer, off uint64) {
	r.vertexSlots[slot] = off
}

func (r *recordingPass) SetIndexBuffer(_ hal.Buffer, f gputypes.IndexFormat, off uint64) {
	r.indexFormat, r.indexOffset = f, off
}

func (r *recordingPass) SetScissorRect(x, y, w, h uint32) {
	r.scissors = append(r.scissors, [4]uint32{x, y, w, h})
}

func (r *recordingPass) DrawIndexed(count, _, first uint32, base int32, _ uint32) {
	r.draws = append(r.draws, drawCall{count, first, base})
}

type fixture struct {
	shared    *gpucore.Shared
	uniforms  *uniform.Manager
	pipelines *Pipelines
}

func newFixture(t *testing.T, slots int) *fixture {
	t.Helper()
	shared := gputest.NewShared(t)
	builder := pipeline.NewBuilder(shared)
	u, err := uniform.New(shared, builder, slots)
	if err != nil {
		t.Fatalf("uniform.New: %v", err)
	}
	p := NewPipelines(builder, u, nil)
	if err := p.Build(gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() {
		p.Destroy()
		u.Close()
		builder.Close()
	})
	return &fixture{shared: shared, uniforms: u, pipelines: p}
}

func TestPipelinesBuild(t *testing.T) {
	f := newFixture(t, 2)
	if !f.pipelines.Built() || f.pipelines.Builds() != 1 {
		t.Fatalf("Built = %v, Builds = %d", f.pipelines.Built(), f.pipelines.Builds())
	}
	if got := len(f.pipelines.Quad.Inputs); got != 3 {
		t.Errorf("quad inputs = %d, want 3", got)
	}
	if got := len(f.pipelines.Overlay.Inputs); got != 3 {
		t.Errorf("overlay inputs = %d, want 3", got)
	}
	if f.pipelines.QuadBlend() != gputypes.BlendStateReplace() {
		t.Error("default quad blend is not replace")
	}

	if err := f.pipelines.Build(gputypes.TextureFormatBGRA8Unorm); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if f.pipelines.Format() != gputypes.TextureFormatBGRA8Unorm || f.pipelines.Builds() != 2 {
		t.Errorf("rebuild: format %v builds %d", f.pipelines.Format(), f.pipelines.Builds())
	}
}

func TestRecordQuads(t *testing.T) {
	f := newFixture(t, 2)
	b, err := batch.New(f.shared, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	tex, err := f.uniforms.CreateTexture("t", newImage(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	b.Begin()
	for _, id := range []uint32{0, 0, uint32(tex), 0} {
		if err := b.AddQuad(batch.Quad{Size: [2]float32{1, 1}, Color: [4]float32{1, 1, 1, 1}, Texture: id}); err != nil {
			t.Fatal(err)
		}
	}
	d, err := b.End(1)
	if err != nil {
		t.Fatal(err)
	}

	pass := newRecordingPass()
	n, err := RecordQuads(pass, f.pipelines, f.uniforms, 1, d)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(pass.draws) != 3 {
		t.Fatalf("draws = %d, recorded %d, want 3", n, len(pass.draws))
	}
	want := []drawCall{{12, 0, 0}, {6, 12, 0}, {6, 18, 0}}
	for i, w := range want {
		if pass.draws[i] != w {
			t.Errorf("draw %d = %+v, want %+v", i, pass.draws[i], w)
		}
	}
	if pass.groups[0] != 1 || pass.groups[1] != 3 {
		t.Errorf("bind groups = %v", pass.groups)
	}
	if pass.vertexSlots[1] != d.UVOffset || pass.indexOffset != d.IndexOffset {
		t.Errorf("offsets: uv %d index %d", pass.vertexSlots[1], pass.indexOffset)
	}
	if pass.indexFormat != gputypes.IndexFormatUint32 {
		t.Errorf("index format = %v", pass.indexFormat)
	}

	empty := newRecordingPass()
	if n, err := RecordQuads(empty, f.pipelines, f.uniforms, 0, batch.Draw{}); n != 0 || err != nil || empty.pipelines != 0 {
		t.Errorf("empty draw recorded %d draws, err %v", n, err)
	}
}

func triangleList(clip overlay.Rect, verts int) overlay.DrawList {
	d := overlay.DrawList{Clip: clip}
	for i := 0; i+4 <= verts; i += 4 {
		_ = d.AddRect([2]float32{0, 0}, [2]float32{10, 10}, [2]float32{0, 0}, [2]float32{1, 1}, [4]float32{1, 1, 1, 1})
	}
	return d
}

func TestOverlayUploadAndRecord(t *testing.T) {
	f := newFixture(t, 2)
	op, err := NewOverlayPass(f.shared, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer op.Close()

	lists := []overlay.DrawList{
		triangleList(overlay.Unclipped, 4),
		{Clip: overlay.Unclipped}, // no geometry
		triangleList(overlay.Rect{MinX: 500, MinY: 500, MaxX: 600, MaxY: 600}, 8),
		triangleList(overlay.Rect{MinX: 5, MinY: 5, MaxX: 20, MaxY: 15}, 4),
	}
	d, err := op.Upload(0, lists)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Lists) != 3 {
		t.Fatalf("lists = %d, want 3", len(d.Lists))
	}
	if d.Lists[2].BaseVertex != 12 || d.Lists[2].FirstIndex != 18 {
		t.Errorf("third list = %+v", d.Lists[2])
	}
	if len(d.VertexBytes) != 16*overlay.VertexStride {
		t.Errorf("vertex bytes = %d", len(d.VertexBytes))
	}
	if len(d.IndexBytes)%4 != 0 {
		t.Errorf("index bytes %d not 4-aligned", len(d.IndexBytes))
	}
	verts := DecodeOverlayVertices(d.VertexBytes)
	if verts[2].Pos != [2]float32{10, 10} || verts[2].Color != [4]float32{1, 1, 1, 1} {
		t.Errorf("decoded vertex = %+v", verts[2])
	}
	if idx := DecodeOverlayIndices(d.IndexBytes); idx[6] != 0 || idx[7] != 1 {
		t.Errorf("second list indices not relative to base vertex: %v", idx[6:12])
	}

	pass := newRecordingPass()
	n, err := RecordOverlay(pass, f.pipelines, f.uniforms, 0, d, 100, 50)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("draws = %d, want 2 (offscreen clip skipped)", n)
	}
	if pass.draws[1] != (drawCall{6, 18, 12}) {
		t.Errorf("clipped draw = %+v", pass.draws[1])
	}
	if pass.scissors[1] != [4]uint32{5, 5, 15, 10} {
		t.Errorf("scissor = %v", pass.scissors[1])
	}
	if pass.indexFormat != gputypes.IndexFormatUint16 {
		t.Errorf("index format = %v", pass.indexFormat)
	}
}

func TestOverlayGrow(t *testing.T) {
	f := newFixture(t, 1)
	op, err := NewOverlayPass(f.shared, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer op.Close()
	before := op.slots[0].vertexCap

	big := triangleList(overlay.Unclipped, 4*1024) // 128 KiB of vertices
	if _, err := op.Upload(0, []overlay.DrawList{big}); err != nil {
		t.Fatal(err)
	}
	if op.slots[0].vertexCap <= before || op.slots[0].vertexCap < uint64(len(big.Vertices)*overlay.VertexStride) {
		t.Errorf("vertex capacity %d after upload of %d bytes", op.slots[0].vertexCap, len(big.Vertices)*overlay.VertexStride)
	}
}

func TestOverlayRejectsInvalidList(t *testing.T) {
	f := newFixture(t, 1)
	op, err := NewOverlayPass(f.shared, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer op.Close()
	bad := overlay.DrawList{Vertices: make([]overlay.Vertex, 2), Indices: []uint16{0, 1, 2}}
	if _, err := op.Upload(0, []overlay.DrawList{bad}); err == nil {
		t.Error("invalid list accepted")
	}
	if _, err := op.Upload(4, nil); err == nil {
		t.Error("bad slot accepted")
	}
}
