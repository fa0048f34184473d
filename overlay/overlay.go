// Package overlay defines the draw lists a GUI front-end hands to the
// renderer. Positions are framebuffer pixels with the origin at the top
// left. Vertex colors are sRGB-encoded; the renderer decodes them to
// linear before blending.
package overlay

import (
	"errors"
	"fmt"
	"math"
)

// MaxVertices is the largest vertex count a draw list can index.
const MaxVertices = math.MaxUint16 + 1

// VertexStride is the size of one Vertex on the wire.
const VertexStride = 32

// ErrTooManyVertices is returned when a draw list outgrows uint16 indices.
var ErrTooManyVertices = errors.New("overlay: draw list exceeds 65536 vertices")

// TextureID names a texture created by the renderer. Zero means a 1×1
// white texture.
type TextureID uint32

// Vertex is one overlay vertex: pos @location(0), uv @location(1),
// color @location(2).
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// Rect is an axis-aligned rectangle in framebuffer pixels.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// Unclipped covers any framebuffer.
var Unclipped = Rect{0, 0, math.MaxFloat32, math.MaxFloat32}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		MinX: max(r.MinX, o.MinX),
		MinY: max(r.MinY, o.MinY),
		MaxX: min(r.MaxX, o.MaxX),
		MaxY: min(r.MaxY, o.MaxY),
	}
}

// Scissor clamps r to a width×height framebuffer and returns it as whole
// pixels. ok is false when nothing remains.
func (r Rect) Scissor(width, height uint32) (x, y, w, h uint32, ok bool) {
	c := r.Intersect(Rect{0, 0, float32(width), float32(height)})
	if c.Empty() {
		return 0, 0, 0, 0, false
	}
	x0 := uint32(math.Floor(float64(c.MinX)))
	y0 := uint32(math.Floor(float64(c.MinY)))
	x1 := uint32(math.Ceil(float64(c.MaxX)))
	y1 := uint32(math.Ceil(float64(c.MaxY)))
	if x1 <= x0 || y1 <= y0 {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1 - x0, y1 - y0, true
}

// DrawList is one textured, clipped batch of overlay triangles.
type DrawList struct {
	Vertices []Vertex
	Indices  []uint16
	Texture  TextureID
	Clip     Rect
}

// Validate checks that every index addresses a vertex.
func (d *DrawList) Validate() error {
	if len(d.Vertices) > MaxVertices {
		return ErrTooManyVertices
	}
	if len(d.Indices)%3 != 0 {
		return fmt.Errorf("overlay: %d indices is not a whole number of triangles", len(d.Indices))
	}
	for i, idx := range d.Indices {
		if int(idx) >= len(d.Vertices) {
			return fmt.Errorf("overlay: index %d = %d out of range (%d vertices)", i, idx, len(d.Vertices))
		}
	}
	return nil
}

// AddRect appends an axis-aligned rectangle from min to max, mapping uv0
// to the top-left corner and uv1 to the bottom-right.
func (d *DrawList) AddRect(minPt, maxPt, uv0, uv1 [2]float32, color [4]float32) error {
	base := len(d.Vertices)
	if base+4 > MaxVertices {
		return ErrTooManyVertices
	}
	d.Vertices = append(d.Vertices,
		Vertex{Pos: [2]float32{minPt[0], minPt[1]}, UV: [2]float32{uv0[0], uv0[1]}, Color: color},
		Vertex{Pos: [2]float32{maxPt[0], minPt[1]}, UV: [2]float32{uv1[0], uv0[1]}, Color: color},
		Vertex{Pos: [2]float32{maxPt[0], maxPt[1]}, UV: [2]float32{uv1[0], uv1[1]}, Color: color},
		Vertex{Pos: [2]float32{minPt[0], maxPt[1]}, UV: [2]float32{uv0[0], uv1[1]}, Color: color},
	)
	b := uint16(base)
	d.Indices = append(d.Indices, b, b+1, b+2, b+2, b+3, b)
	return nil
}

// Reset empties the list, keeping its storage, texture and clip.
func (d *DrawList) Reset() {
	d.Vertices = d.Vertices[:0]
	d.Indices = d.Indices[:0]
}
