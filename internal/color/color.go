// Package color holds the color-space math shared by the overlay shader
// contract and the CPU reference compositor.
//
// Colors handed to the quad layer are assumed to already be in the target's
// color space. Overlay vertex colors arrive sRGB-encoded and are decoded to
// linear exactly once before blending.
package color

// Space identifies how the RGB channels of a color are encoded.
type Space uint8

const (
	// SpaceSRGB is gamma-compressed sRGB.
	SpaceSRGB Space = iota
	// SpaceLinear is linear light.
	SpaceLinear
)

// String returns the space name.
func (s Space) String() string {
	switch s {
	case SpaceSRGB:
		return "sRGB"
	case SpaceLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// ColorF32 is a color with float32 channels, nominally in [0,1].
// Alpha is always linear.
type ColorF32 struct {
	R, G, B, A float32
}

// ColorU8 is an 8-bit per channel color. Alpha is always linear.
type ColorU8 struct {
	R, G, B, A uint8
}

// Mul returns the channel-wise product of c and o.
func (c ColorF32) Mul(o ColorF32) ColorF32 {
	return ColorF32{R: c.R * o.R, G: c.G * o.G, B: c.B * o.B, A: c.A * o.A}
}

// Lerp returns a + (b-a)*t per channel.
func Lerp(a, b ColorF32, t float32) ColorF32 {
	return ColorF32{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

// Clamp clamps every channel to [0,1].
func (c ColorF32) Clamp() ColorF32 {
	return ColorF32{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
