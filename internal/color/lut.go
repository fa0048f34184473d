package color

import "math"

// decodeLUT maps an sRGB byte to its linear value.
var decodeLUT [256]float32

func init() {
	for i := range decodeLUT {
		decodeLUT[i] = decode64(float64(i) / 255)
	}
}

func decode64(s float64) float32 {
	if s < decodeThreshold {
		return float32(s / 12.92)
	}
	return float32(math.Pow((s+0.055)/1.055, 2.4))
}

// DecodeU8 returns the linear value of an sRGB-encoded byte.
func DecodeU8(s uint8) float32 {
	return decodeLUT[s]
}

// EncodeU8 returns the sRGB byte for a linear value, clamping to [0,1].
// The result equals Quantize(LinearToSRGB(l)) for every input.
func EncodeU8(l float32) uint8 {
	if l <= 0 {
		return 0
	}
	if l >= 1 {
		return 255
	}
	return Quantize(LinearToSRGB(l))
}

// Store quantizes a linear color the way a render target of the given
// encoding does: sRGB targets encode RGB on store, linear targets do not.
func Store(c ColorF32, target Space) ColorU8 {
	if target == SpaceSRGB {
		return ColorU8{
			R: EncodeU8(c.R),
			G: EncodeU8(c.G),
			B: EncodeU8(c.B),
			A: Quantize(c.A),
		}
	}
	return F32ToU8(c)
}

// Load is the inverse of Store for sampled textures.
func Load(c ColorU8, source Space) ColorF32 {
	if source == SpaceSRGB {
		return ColorF32{
			R: DecodeU8(c.R),
			G: DecodeU8(c.G),
			B: DecodeU8(c.B),
			A: float32(c.A) / 255,
		}
	}
	return U8ToF32(c)
}
