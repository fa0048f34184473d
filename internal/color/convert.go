package color

import "math"

const (
	// decodeThreshold is the encoded value below which sRGB is linear.
	decodeThreshold = 0.04045
	// encodeThreshold is the linear value at or below which encoding is linear.
	encodeThreshold = 0.0031308
)

// SRGBToLinear decodes one sRGB channel.
//
//	c < 0.04045: c/12.92
//	otherwise:   ((c+0.055)/1.055)^2.4
func SRGBToLinear(c float32) float32 {
	if c < decodeThreshold {
		return c / 12.92
	}
	return float32(math.Pow(float64((c+0.055)/1.055), 2.4))
}

// LinearToSRGB encodes one linear channel. It is the inverse of SRGBToLinear.
//
//	c <= 0.0031308: 12.92*c
//	otherwise:      1.055*c^(1/2.4) - 0.055
func LinearToSRGB(c float32) float32 {
	if c <= encodeThreshold {
		return c * 12.92
	}
	return float32(1.055*math.Pow(float64(c), 1.0/2.4) - 0.055)
}

// ToLinear decodes the RGB channels of c. Alpha is unchanged.
func ToLinear(c ColorF32) ColorF32 {
	return ColorF32{
		R: SRGBToLinear(c.R),
		G: SRGBToLinear(c.G),
		B: SRGBToLinear(c.B),
		A: c.A,
	}
}

// FromLinear encodes the RGB channels of c. Alpha is unchanged.
func FromLinear(c ColorF32) ColorF32 {
	return ColorF32{
		R: LinearToSRGB(c.R),
		G: LinearToSRGB(c.G),
		B: LinearToSRGB(c.B),
		A: c.A,
	}
}

// U8ToF32 maps [0,255] channels to [0,1].
func U8ToF32(c ColorU8) ColorF32 {
	return ColorF32{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
		A: float32(c.A) / 255,
	}
}

// F32ToU8 clamps to [0,1] and rounds to the nearest 8-bit value,
// the same quantization a UNORM render target applies on store.
func F32ToU8(c ColorF32) ColorU8 {
	return ColorU8{
		R: Quantize(c.R),
		G: Quantize(c.G),
		B: Quantize(c.B),
		A: Quantize(c.A),
	}
}

// Quantize converts a [0,1] channel to 8 bits with round-to-nearest.
func Quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
