package quad

import (
	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/overlay"
)

// TextureID names a texture created by Renderer.CreateTexture. The zero
// value selects a 1×1 white texture, so untextured quads draw their color.
type TextureID = overlay.TextureID

// UVRect is a sub-rectangle of a texture in normalized coordinates.
// V grows downward.
type UVRect struct {
	U0, V0, U1, V1 float32
}

// Quad is one axis-aligned rectangle in world space.
type Quad struct {
	// Position is the center. Z is passed through to clip space.
	Position [3]float32
	// Size is the half extent on each axis.
	Size  [2]float32
	Color Color
	// UV selects part of Texture; nil means the whole texture.
	UV      *UVRect
	Texture TextureID
}

func (q Quad) toBatch() batch.Quad {
	b := batch.Quad{
		Position: q.Position,
		Size:     q.Size,
		Color:    q.Color.array(),
		Texture:  uint32(q.Texture),
	}
	if q.UV != nil {
		b.UV = &batch.UVRect{U0: q.UV.U0, V0: q.UV.V0, U1: q.UV.U1, V1: q.UV.V1}
	}
	return b
}
