package swapchain

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/gpucore/gputest"
	"github.com/gogpu/quad/internal/gpuerr"
)

func TestAlignedBytesPerRow(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{64, 256},
		{65, 512},
		{800, 3328},
	}
	for _, tt := range tests {
		if got := AlignedBytesPerRow(tt.width); got != tt.want {
			t.Errorf("AlignedBytesPerRow(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestPackRows(t *testing.T) {
	const pitch = 8
	src := []byte{
		1, 2, 3, 4, 0xEE, 0xEE, 0xEE, 0xEE,
		5, 6, 7, 8, 0xEE, 0xEE, 0xEE, 0xEE,
	}
	got := packRows(src, 1, 2, pitch, false)
	if want := []byte{1, 2, 3, 4, 5, 6, 7, 8}; !bytes.Equal(got, want) {
		t.Errorf("packRows = %v, want %v", got, want)
	}
	got = packRows(src, 1, 2, pitch, true)
	if want := []byte{3, 2, 1, 4, 7, 6, 5, 8}; !bytes.Equal(got, want) {
		t.Errorf("packRows BGRA = %v, want %v", got, want)
	}
}

func TestOffscreenPixels(t *testing.T) {
	shared := gputest.NewShared(t)
	o, err := NewOffscreen(shared, 3, 2, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("NewOffscreen: %v", err)
	}
	defer o.Close()

	pitch := AlignedBytesPerRow(3)
	raw := make([]byte, pitch*2)
	for y := range uint32(2) {
		for x := range uint32(3) {
			i := y*pitch + x*4
			raw[i], raw[i+1], raw[i+2], raw[i+3] = byte(10*x), byte(y), 200, 255 // B G R A
		}
	}
	if err := shared.Queue.WriteBuffer(o.readback, 0, raw); err != nil {
		t.Fatal(err)
	}

	px, err := o.Pixels()
	if err != nil {
		t.Fatalf("Pixels: %v", err)
	}
	if len(px) != 3*2*4 {
		t.Fatalf("len = %d, want 24", len(px))
	}
	// Second row, third pixel, swizzled to RGBA.
	i := (1*3 + 2) * 4
	if want := []byte{200, 1, 20, 255}; !bytes.Equal(px[i:i+4], want) {
		t.Errorf("pixel (2,1) = %v, want %v", px[i:i+4], want)
	}
}

func TestOffscreenLifecycle(t *testing.T) {
	shared := gputest.NewShared(t)
	o, err := NewOffscreen(shared, 16, 16, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()

	img, err := o.Acquire(nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if img.View == nil || img.Width != 16 || img.Surface != nil {
		t.Errorf("image = %+v", img)
	}
	if err := o.Present(img); err != nil || o.Presents() != 1 {
		t.Errorf("Present = %v, presents = %d", err, o.Presents())
	}

	o.Invalidate()
	if _, err := o.Acquire(nil); !errors.Is(err, gpuerr.ErrSwapchainOutOfDate) {
		t.Errorf("Acquire while invalid = %v", err)
	}
	if err := o.Rebuild(0, 16, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, gpuerr.ErrMinimized) {
		t.Errorf("Rebuild(0, 16) = %v", err)
	}
	if err := o.Rebuild(32, 8, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if w, h := o.Size(); w != 32 || h != 8 || o.State() != Valid {
		t.Errorf("after rebuild: %dx%d %v", w, h, o.State())
	}
}
