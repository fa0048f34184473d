package quad

import (
	stdcolor "image/color"
	"math"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#ff0000", Color{1, 0, 0, 1}},
		{"00ff0080", Color{0, 1, 0, 128.0 / 255}},
		{"#fff", Color{1, 1, 1, 1}},
		{"0008", Color{0, 0, 0, 136.0 / 255}},
		{"#12345", Black},
		{"zzzzzz", Black},
		{"", Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Hex(tt.in); got != tt.want {
				t.Errorf("Hex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorConversions(t *testing.T) {
	c := RGBA(0.5, 0.25, 1, 0.5)
	lin := c.Linear()
	if math.Abs(float64(lin.R)-0.2140411) > 1e-5 || lin.A != 0.5 {
		t.Errorf("Linear = %+v", lin)
	}
	back := lin.SRGB()
	if math.Abs(float64(back.R-c.R)) > 1e-5 || math.Abs(float64(back.G-c.G)) > 1e-5 {
		t.Errorf("round trip = %+v, want %+v", back, c)
	}
	if got := RGB(1, 0, 0).Color(); got != (stdcolor.NRGBA{255, 0, 0, 255}) {
		t.Errorf("Color() = %v", got)
	}
	if got := FromColor(stdcolor.RGBA{128, 0, 0, 128}); math.Abs(float64(got.R)-1) > 1e-6 || math.Abs(float64(got.A)-128.0/255) > 1e-6 {
		t.Errorf("FromColor = %+v", got)
	}
}
