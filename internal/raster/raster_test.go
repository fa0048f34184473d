package raster

import (
	"image"
	"math"
	"testing"
)

func TestTriangleSquareCoverage(t *testing.T) {
	// Two triangles sharing a diagonal must cover every pixel of the
	// square exactly once.
	quad := [4]Point{{2, 2}, {6, 2}, {6, 6}, {2, 6}}
	hits := map[image.Point]int{}
	clip := image.Rect(0, 0, 10, 10)
	for _, tri := range [][3]int{{0, 1, 2}, {2, 3, 0}} {
		Triangle([3]Point{quad[tri[0]], quad[tri[1]], quad[tri[2]]}, clip, func(x, y int, _ [3]float64) {
			hits[image.Pt(x, y)]++
		})
	}
	if len(hits) != 16 {
		t.Fatalf("covered %d pixels, want 16", len(hits))
	}
	for p, n := range hits {
		if n != 1 {
			t.Errorf("pixel %v covered %d times", p, n)
		}
		if p.X < 2 || p.X >= 6 || p.Y < 2 || p.Y >= 6 {
			t.Errorf("pixel %v outside the square", p)
		}
	}
}

func TestTriangleBarycentric(t *testing.T) {
	v := [3]Point{{0, 0}, {8, 0}, {0, 8}}
	Triangle(v, image.Rect(0, 0, 8, 8), func(x, y int, w [3]float64) {
		sum := w[0] + w[1] + w[2]
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("weights at (%d,%d) sum to %v", x, y, sum)
		}
		px := w[0]*v[0].X + w[1]*v[1].X + w[2]*v[2].X
		py := w[0]*v[0].Y + w[1]*v[1].Y + w[2]*v[2].Y
		if math.Abs(px-(float64(x)+0.5)) > 1e-9 || math.Abs(py-(float64(y)+0.5)) > 1e-9 {
			t.Fatalf("weights at (%d,%d) reconstruct (%v,%v)", x, y, px, py)
		}
	})
}

func TestTriangleWindingAndClip(t *testing.T) {
	ccw := [3]Point{{0, 0}, {0, 4}, {4, 4}}
	cw := [3]Point{{0, 0}, {4, 4}, {0, 4}}
	full := image.Rect(0, 0, 4, 4)
	nop := func(int, int, [3]float64) {}
	a, b := Triangle(ccw, full, nop), Triangle(cw, full, nop)
	if a != b || a == 0 {
		t.Errorf("windings cover %d and %d pixels", a, b)
	}
	if n := Triangle(ccw, image.Rect(0, 0, 1, 4), nop); n != 4 {
		t.Errorf("clipped coverage = %d, want 4", n)
	}
	if n := Triangle([3]Point{{0, 0}, {1, 1}, {2, 2}}, full, nop); n != 0 {
		t.Errorf("degenerate triangle covered %d pixels", n)
	}
}
