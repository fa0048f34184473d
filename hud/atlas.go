// Package hud draws debug text into overlay draw lists from a bitmap font
// atlas. Text is folded to the atlas' character set, wrapped at Unicode
// line break opportunities and emitted as one textured quad per glyph.
package hud

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// atlasColumns is the number of glyph cells per atlas row.
const atlasColumns = 16

// Replacement is drawn for runes the atlas lacks.
const Replacement = '\ufffd'

// Atlas is a white-on-transparent glyph texture for a fixed-advance face.
// Color comes from the overlay vertex; the texture only supplies coverage.
type Atlas struct {
	// Image holds straight-alpha RGBA glyph cells.
	Image *image.RGBA

	cellW, cellH int // unscaled
	ascent       int
	scale        int
	cells        map[rune]int
	solid        int
}

// NewAtlas rasterizes printable ASCII and U+FFFD from face, magnified
// scale times with nearest-neighbor sampling. A nil face means
// basicfont.Face7x13.
func NewAtlas(face font.Face, scale int) (*Atlas, error) {
	if face == nil {
		face = basicfont.Face7x13
	}
	if scale < 1 {
		scale = 1
	}
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	adv, ok := face.GlyphAdvance('M')
	if !ok {
		return nil, errors.New("hud: face has no glyph for 'M'")
	}
	a := &Atlas{
		cellW:  adv.Ceil(),
		cellH:  ascent + descent,
		ascent: ascent,
		scale:  scale,
		cells:  make(map[rune]int),
	}
	if a.cellW <= 0 || a.cellH <= 0 {
		return nil, fmt.Errorf("hud: degenerate glyph cell %dx%d", a.cellW, a.cellH)
	}

	runes := make([]rune, 0, 96)
	for r := rune(0x20); r < 0x7f; r++ {
		runes = append(runes, r)
	}
	runes = append(runes, Replacement)
	n := len(runes) + 1
	rows := (n + atlasColumns - 1) / atlasColumns
	cov := image.NewAlpha(image.Rect(0, 0, atlasColumns*a.cellW, rows*a.cellH))

	for i, r := range runes {
		cell := a.cellRect(i, 1)
		dot := fixed.P(cell.Min.X, cell.Min.Y+ascent)
		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if !ok {
			continue
		}
		draw.DrawMask(cov, dr.Intersect(cell), image.Opaque, image.Point{}, mask, maskp.Add(dr.Intersect(cell).Min.Sub(dr.Min)), draw.Over)
		a.cells[r] = i
	}
	a.solid = len(runes)
	draw.Draw(cov, a.cellRect(a.solid, 1), image.Opaque, image.Point{}, draw.Src)

	scaled := image.NewAlpha(image.Rect(0, 0, cov.Rect.Dx()*scale, cov.Rect.Dy()*scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Rect, cov, cov.Rect, xdraw.Src, nil)

	a.Image = image.NewRGBA(scaled.Rect)
	for i, c := range scaled.Pix {
		copy(a.Image.Pix[i*4:], []byte{0xff, 0xff, 0xff, c})
	}
	return a, nil
}

func (a *Atlas) cellRect(i, scale int) image.Rectangle {
	w, h := a.cellW*scale, a.cellH*scale
	x, y := (i%atlasColumns)*w, (i/atlasColumns)*h
	return image.Rect(x, y, x+w, y+h)
}

// CellSize returns the on-screen size of one glyph cell in pixels.
func (a *Atlas) CellSize() (width, height int) {
	return a.cellW * a.scale, a.cellH * a.scale
}

// Has reports whether r has its own glyph.
func (a *Atlas) Has(r rune) bool {
	_, ok := a.cells[r]
	return ok
}

// UV returns the texture rectangle of r's cell, or of the replacement
// glyph when r is missing.
func (a *Atlas) UV(r rune) (uv0, uv1 [2]float32) {
	i, ok := a.cells[r]
	if !ok {
		i = a.cells[Replacement]
	}
	return a.uvRect(a.cellRect(i, a.scale))
}

// SolidUV returns a texture coordinate inside a fully opaque cell, for
// untextured panels drawn with the atlas bound.
func (a *Atlas) SolidUV() [2]float32 {
	c := a.cellRect(a.solid, a.scale)
	mid := image.Pt((c.Min.X+c.Max.X)/2, (c.Min.Y+c.Max.Y)/2)
	uv, _ := a.uvRect(image.Rectangle{Min: mid, Max: mid})
	return uv
}

func (a *Atlas) uvRect(r image.Rectangle) (uv0, uv1 [2]float32) {
	w, h := float32(a.Image.Rect.Dx()), float32(a.Image.Rect.Dy())
	return [2]float32{float32(r.Min.X) / w, float32(r.Min.Y) / h},
		[2]float32{float32(r.Max.X) / w, float32(r.Max.Y) / h}
}
