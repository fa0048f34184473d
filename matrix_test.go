package quad

import (
	"math"
	"testing"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-6 }

func nearVec(a, b [4]float32) bool {
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestMat4Identity(t *testing.T) {
	m := Identity()
	if !m.IsIdentity() {
		t.Error("Identity is not identity")
	}
	if got := m.Transform(1, 2, 3); got != [4]float32{1, 2, 3, 1} {
		t.Errorf("Transform = %v", got)
	}
	tr := Translate(1, 2, 3)
	if got := tr.Mul(Identity()); got != tr {
		t.Errorf("T*I = %v", got)
	}
}

func TestMat4Mul(t *testing.T) {
	// Scale first, then translate.
	m := Translate(10, 0, 0).Mul(Scale(2, 3, 1))
	if got := m.Transform(1, 1, 0); !nearVec(got, [4]float32{12, 3, 0, 1}) {
		t.Errorf("Transform = %v, want [12 3 0 1]", got)
	}
	// Column-major: translation lives in the last column.
	if m[12] != 10 || m[0] != 2 || m[5] != 3 {
		t.Errorf("layout = %v", m)
	}
}

func TestOrtho(t *testing.T) {
	m := Ortho(0, 100, 0, 50, -1, 1)
	tests := []struct {
		x, y, z float32
		want    [4]float32
	}{
		{0, 0, 1, [4]float32{-1, -1, 0, 1}},
		{100, 50, -1, [4]float32{1, 1, 1, 1}},
		{50, 25, 0, [4]float32{0, 0, 0.5, 1}},
	}
	for _, tt := range tests {
		if got := m.Transform(tt.x, tt.y, tt.z); !nearVec(got, tt.want) {
			t.Errorf("Ortho(%v,%v,%v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
}

func TestOrthoCamera(t *testing.T) {
	c := NewOrthoCamera(2)
	vp := c.ViewProjection()
	if got := vp.Transform(2, 1, 0); !nearVec(got, [4]float32{1, 1, 0.5, 1}) {
		t.Errorf("corner = %v", got)
	}

	c.Position = [2]float32{1, 1}
	c.Zoom = 2
	vp = c.ViewProjection()
	if got := vp.Transform(1, 1, 0); !nearVec(got, [4]float32{0, 0, 0.5, 1}) {
		t.Errorf("camera center = %v", got)
	}
	if got := vp.Transform(5, 3, 0); !nearVec(got, [4]float32{1, 1, 0.5, 1}) {
		t.Errorf("zoomed corner = %v", got)
	}

	c.SetAspect(800, 400)
	if c.Aspect != 2 {
		t.Errorf("Aspect = %v", c.Aspect)
	}
	c.SetAspect(0, 400)
	if c.Aspect != 2 {
		t.Error("zero width changed the aspect")
	}

	var zero OrthoCamera
	if got := zero.ViewProjection().Transform(1, 1, 0); !nearVec(got, [4]float32{1, 1, 0.5, 1}) {
		t.Errorf("zero camera = %v", got)
	}
}
