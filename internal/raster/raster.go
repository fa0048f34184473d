// Package raster scan-converts triangles at pixel centers, the way a GPU
// rasterizer samples a single-sample render target.
package raster

import (
	"image"
	"math"
)

// Point is a position in framebuffer pixels, origin top-left.
type Point struct {
	X, Y float64
}

// Edge is the line from A to B, evaluated as a signed area against a
// third point.
type Edge struct {
	A, B Point
}

// Eval returns twice the signed area of (A, B, p).
func (e Edge) Eval(p Point) float64 {
	return (e.B.X-e.A.X)*(p.Y-e.A.Y) - (e.B.Y-e.A.Y)*(p.X-e.A.X)
}

// topLeft reports whether the edge owns samples lying exactly on it, for a
// triangle with positive area in y-down coordinates.
func (e Edge) topLeft() bool {
	dx, dy := e.B.X-e.A.X, e.B.Y-e.A.Y
	return (dy == 0 && dx < 0) || dy > 0
}

// Sample is called once per covered pixel with the barycentric weights of
// the triangle's vertices at the pixel center.
type Sample func(x, y int, w [3]float64)

// Triangle calls fn for every pixel of clip whose center the triangle
// covers. Both windings are rasterized. Degenerate triangles cover nothing.
func Triangle(v [3]Point, clip image.Rectangle, fn Sample) int {
	area := Edge{v[0], v[1]}.Eval(v[2])
	if area == 0 || math.IsNaN(area) {
		return 0
	}
	if area < 0 {
		v[1], v[2] = v[2], v[1]
		area = -area
	}
	edges := [3]Edge{{v[1], v[2]}, {v[2], v[0]}, {v[0], v[1]}}

	minX := math.Min(v[0].X, math.Min(v[1].X, v[2].X))
	maxX := math.Max(v[0].X, math.Max(v[1].X, v[2].X))
	minY := math.Min(v[0].Y, math.Min(v[1].Y, v[2].Y))
	maxY := math.Max(v[0].Y, math.Max(v[1].Y, v[2].Y))
	bounds := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(clip)

	covered := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := Point{float64(x) + 0.5, float64(y) + 0.5}
			var w [3]float64
			inside := true
			for i, e := range edges {
				d := e.Eval(p)
				if d < 0 || (d == 0 && !e.topLeft()) {
					inside = false
					break
				}
				w[i] = d / area
			}
			if !inside {
				continue
			}
			fn(x, y, w)
			covered++
		}
	}
	return covered
}
