package composite

import (
	"image"
	"math"

	"github.com/gogpu/quad/internal/color"
)

// Textures maps texture ids to their RGBA8 contents. Id 0 and unknown ids
// sample as opaque white.
type Textures map[uint32]*image.RGBA

var white = color.ColorF32{R: 1, G: 1, B: 1, A: 1}

// Sample filters id at (u, v) bilinearly with clamp-to-edge addressing.
func (t Textures) Sample(id uint32, u, v float32) color.ColorF32 {
	img, ok := t[id]
	if id == 0 || !ok || img == nil || img.Bounds().Empty() {
		return white
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	x := float64(u)*float64(w) - 0.5
	y := float64(v)*float64(h) - 0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := float32(x-x0), float32(y-y0)

	at := func(ix, iy int) color.ColorF32 {
		ix = min(max(ix, 0), w-1)
		iy = min(max(iy, 0), h-1)
		p := img.RGBAAt(b.Min.X+ix, b.Min.Y+iy)
		return color.Load(color.ColorU8{R: p.R, G: p.G, B: p.B, A: p.A}, color.SpaceLinear)
	}
	ix, iy := int(x0), int(y0)
	top := color.Lerp(at(ix, iy), at(ix+1, iy), fx)
	bottom := color.Lerp(at(ix, iy+1), at(ix+1, iy+1), fx)
	return color.Lerp(top, bottom, fy)
}
