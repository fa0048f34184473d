package quad

import (
	stdcolor "image/color"

	"github.com/gogpu/quad/internal/color"
)

// Color is an RGBA color with float32 channels in [0, 1], not
// premultiplied. Quad colors are written to the target as given; overlay
// colors are treated as sRGB-encoded.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
	Transparent = Color{}
)

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// RGBA creates a color from RGBA components.
func RGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// FromColor converts a standard color.Color, un-premultiplying it.
func FromColor(c stdcolor.Color) Color {
	n := stdcolor.NRGBAModel.Convert(c).(stdcolor.NRGBA)
	return Color{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

// Hex creates a color from a hex string.
// Supports formats: "RGB", "RGBA", "RRGGBB", "RRGGBBAA", with an optional
// leading '#'. Malformed input yields opaque black.
func Hex(hex string) Color {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint32
	a = 255
	ok := true
	switch len(hex) {
	case 3, 4:
		ok = parseHex(hex[0:1], &r) && parseHex(hex[1:2], &g) && parseHex(hex[2:3], &b)
		if len(hex) == 4 {
			ok = ok && parseHex(hex[3:4], &a)
			a *= 17
		}
		r, g, b = r*17, g*17, b*17
	case 6, 8:
		ok = parseHex(hex[0:2], &r) && parseHex(hex[2:4], &g) && parseHex(hex[4:6], &b)
		if len(hex) == 8 {
			ok = ok && parseHex(hex[6:8], &a)
		}
	default:
		ok = false
	}
	if !ok {
		return Black
	}
	return Color{
		R: float32(r) / 255,
		G: float32(g) / 255,
		B: float32(b) / 255,
		A: float32(a) / 255,
	}
}

func parseHex(s string, val *uint32) bool {
	*val = 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		*val *= 16
		switch {
		case '0' <= c && c <= '9':
			*val += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			*val += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			*val += uint32(c - 'A' + 10)
		default:
			return false
		}
	}
	return true
}

// Linear decodes sRGB-encoded RGB to linear light. Alpha is unchanged.
func (c Color) Linear() Color {
	return fromF32(color.ToLinear(c.f32()))
}

// SRGB encodes linear RGB to sRGB. Alpha is unchanged.
func (c Color) SRGB() Color {
	return fromF32(color.FromLinear(c.f32()))
}

// Color converts to the standard library's non-premultiplied 8-bit color.
func (c Color) Color() stdcolor.NRGBA {
	u := color.F32ToU8(c.f32())
	return stdcolor.NRGBA{R: u.R, G: u.G, B: u.B, A: u.A}
}

func (c Color) f32() color.ColorF32 { return color.ColorF32{R: c.R, G: c.G, B: c.B, A: c.A} }

func (c Color) array() [4]float32 { return [4]float32{c.R, c.G, c.B, c.A} }

func fromF32(c color.ColorF32) Color { return Color{R: c.R, G: c.G, B: c.B, A: c.A} }
