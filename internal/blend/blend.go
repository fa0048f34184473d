// Package blend evaluates fixed-function blend states on float colors,
// matching what a render target does on store.
package blend

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/color"
)

// Apply blends src over dst with state. Colors are in the target's
// blending space and not premultiplied.
func Apply(state gputypes.BlendState, src, dst color.ColorF32) color.ColorF32 {
	return color.ColorF32{
		R: component(state.Color, src.R, dst.R, src, dst, false),
		G: component(state.Color, src.G, dst.G, src, dst, false),
		B: component(state.Color, src.B, dst.B, src, dst, false),
		A: component(state.Alpha, src.A, dst.A, src, dst, true),
	}.Clamp()
}

func component(c gputypes.BlendComponent, s, d float32, src, dst color.ColorF32, alpha bool) float32 {
	sf := factor(c.SrcFactor, s, d, src, dst, alpha)
	df := factor(c.DstFactor, s, d, src, dst, alpha)
	switch c.Operation {
	case gputypes.BlendOperationSubtract:
		return s*sf - d*df
	case gputypes.BlendOperationReverseSubtract:
		return d*df - s*sf
	case gputypes.BlendOperationMin:
		return min(s, d)
	case gputypes.BlendOperationMax:
		return max(s, d)
	default:
		return s*sf + d*df
	}
}

// factor resolves f for one channel; s and d are that channel's source and
// destination values.
func factor(f gputypes.BlendFactor, s, d float32, src, dst color.ColorF32, alpha bool) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorOne:
		return 1
	case gputypes.BlendFactorSrc:
		return s
	case gputypes.BlendFactorOneMinusSrc:
		return 1 - s
	case gputypes.BlendFactorSrcAlpha:
		return src.A
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - src.A
	case gputypes.BlendFactorDst:
		return d
	case gputypes.BlendFactorOneMinusDst:
		return 1 - d
	case gputypes.BlendFactorDstAlpha:
		return dst.A
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - dst.A
	case gputypes.BlendFactorSrcAlphaSaturated:
		if alpha {
			return 1
		}
		return min(src.A, 1-dst.A)
	default:
		// Constant factors use the default blend constant of zero.
		if f == gputypes.BlendFactorOneMinusConstant {
			return 1
		}
		return 0
	}
}
