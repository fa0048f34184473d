package uniform

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpucore/gputest"
	"github.com/gogpu/quad/internal/pipeline"
)

type countingDevice struct {
	hal.Device
	bindGroups int
	destroyed  int
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.bindGroups++
	return d.Device.CreateBindGroup(desc)
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.destroyed++
	d.Device.DestroyBindGroup(g)
}

type countingQueue struct {
	hal.Queue
	writes   int
	textures int
}

func (q *countingQueue) WriteBuffer(buf hal.Buffer, off uint64, data []byte) error {
	q.writes++
	return q.Queue.WriteBuffer(buf, off, data)
}

func (q *countingQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.textures++
	return q.Queue.WriteTexture(dst, data, layout, size)
}

func newManager(t *testing.T, slots int) (*Manager, *countingDevice, *countingQueue) {
	t.Helper()
	base := gputest.NewShared(t)
	dev := &countingDevice{Device: base.Device}
	q := &countingQueue{Queue: base.Queue}
	shared := &gpucore.Shared{Device: dev, Queue: q}
	builder := pipeline.NewBuilder(shared)
	m, err := New(shared, builder, slots)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		m.Close()
		builder.Close()
	})
	return m, dev, q
}

func readMatrix(t *testing.T, device hal.Device, buf hal.Buffer) [16]float32 {
	t.Helper()
	mapping, err := device.MapBuffer(buf, 0, MatrixSize)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), MatrixSize)
	var mat [16]float32
	for i := range mat {
		mat[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return mat
}

func apply(m [16]float32, x, y float32) (float32, float32) {
	return m[0]*x + m[4]*y + m[12], m[1]*x + m[5]*y + m[13]
}

func TestOverlayProjection(t *testing.T) {
	m := OverlayProjection(800, 600)
	tests := []struct {
		x, y, wantX, wantY float32
	}{
		{0, 0, -1, 1},
		{800, 600, 1, -1},
		{400, 300, 0, 0},
		{800, 0, 1, 1},
	}
	for _, tt := range tests {
		gx, gy := apply(m, tt.x, tt.y)
		if math.Abs(float64(gx-tt.wantX)) > 1e-6 || math.Abs(float64(gy-tt.wantY)) > 1e-6 {
			t.Errorf("(%v,%v) -> (%v,%v), want (%v,%v)", tt.x, tt.y, gx, gy, tt.wantX, tt.wantY)
		}
	}
}

func TestWriteViewProjection(t *testing.T) {
	m, dev, _ := newManager(t, 2)
	mat := [16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if err := m.WriteViewProjection(1, mat); err != nil {
		t.Fatal(err)
	}
	if got := readMatrix(t, dev, m.slots[1].vp); got != mat {
		t.Errorf("slot 1 matrix = %v, want %v", got, mat)
	}
	if got := readMatrix(t, dev, m.slots[0].vp); got != ([16]float32{}) {
		t.Errorf("slot 0 touched: %v", got)
	}
	if err := m.WriteViewProjection(2, mat); err == nil {
		t.Error("out of range slot accepted")
	}
}

func TestUpdateOrthoOnlyOnResize(t *testing.T) {
	m, dev, q := newManager(t, 2)
	before := q.writes

	steps := []struct {
		slot  int
		w, h  uint32
		wrote bool
	}{
		{0, 640, 480, true},
		{0, 640, 480, false},
		{1, 640, 480, true},
		{0, 800, 480, true},
		{1, 640, 480, false},
	}
	for i, s := range steps {
		wrote, err := m.UpdateOrtho(s.slot, s.w, s.h)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if wrote != s.wrote {
			t.Errorf("step %d: wrote = %v, want %v", i, wrote, s.wrote)
		}
	}
	if got := q.writes - before; got != 3 {
		t.Errorf("buffer writes = %d, want 3", got)
	}
	if got := readMatrix(t, dev, m.slots[0].ortho); got != OverlayProjection(800, 480) {
		t.Errorf("slot 0 ortho = %v", got)
	}
}

func TestTextureGroupsCached(t *testing.T) {
	m, dev, q := newManager(t, 2)
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	id, err := m.CreateTexture("atlas", img)
	if err != nil {
		t.Fatal(err)
	}
	if q.textures != 2 { // white + atlas
		t.Errorf("texture uploads = %d, want 2", q.textures)
	}
	w, h, err := m.TextureSize(id)
	if err != nil || w != 4 || h != 2 {
		t.Errorf("TextureSize = %d, %d, %v", w, h, err)
	}

	before := dev.bindGroups
	for range 3 {
		if _, err := m.TextureGroup(id); err != nil {
			t.Fatal(err)
		}
		if _, err := m.TextureGroup(0); err != nil {
			t.Fatal(err)
		}
		for slot := range 2 {
			if _, err := m.OverlayGroup(slot, id); err != nil {
				t.Fatal(err)
			}
		}
	}
	// quad: atlas + white; overlay: one per slot.
	if got := dev.bindGroups - before; got != 4 {
		t.Errorf("bind groups created = %d, want 4", got)
	}

	release, err := m.DestroyTexture(id)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.TextureGroup(id); err == nil {
		t.Error("destroyed texture still resolves")
	}
	destroyedBefore := dev.destroyed
	release()
	if got := dev.destroyed - destroyedBefore; got != 3 {
		t.Errorf("bind groups destroyed = %d, want 3", got)
	}
}

func TestDestroyTextureErrors(t *testing.T) {
	m, _, _ := newManager(t, 1)
	if _, err := m.DestroyTexture(0); err == nil {
		t.Error("destroying id 0 succeeded")
	}
	if _, err := m.DestroyTexture(m.White()); err == nil {
		t.Error("destroying the white texture succeeded")
	}
	if _, err := m.DestroyTexture(99); err == nil {
		t.Error("destroying an unknown texture succeeded")
	}
	if _, err := m.CreateTexture("empty", image.NewRGBA(image.Rectangle{})); err == nil {
		t.Error("empty image accepted")
	}
}

func TestPackRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	sub := img.SubImage(image.Rect(1, 2, 3, 4)).(*image.RGBA)
	got := PackRGBA(sub)
	want := []byte{
		1, 2, 0, 255, 2, 2, 0, 255,
		1, 3, 0, 255, 2, 3, 0, 255,
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
	if full := PackRGBA(img); len(full) != 64 {
		t.Errorf("full image packed to %d bytes", len(full))
	}
}

func TestLayouts(t *testing.T) {
	m, _, _ := newManager(t, 1)
	if len(m.QuadLayouts()) != 2 || len(m.OverlayLayouts()) != 1 {
		t.Errorf("layouts: quad %d overlay %d", len(m.QuadLayouts()), len(m.OverlayLayouts()))
	}
	if m.Slots() != 1 {
		t.Errorf("Slots = %d", m.Slots())
	}
}
