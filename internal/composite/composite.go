// Package composite is a CPU reference for the two render passes. It
// consumes the exact bytes uploaded to the GPU and applies the same
// vertex math, sampling, blending and store quantization, so its output
// can be compared against a GPU readback.
package composite

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/blend"
	"github.com/gogpu/quad/internal/color"
	"github.com/gogpu/quad/internal/parallel"
	"github.com/gogpu/quad/internal/raster"
	"github.com/gogpu/quad/internal/render"
)

// Canvas is a single-sample RGBA8 render target.
type Canvas struct {
	width, height int
	space         color.Space
	pix           []color.ColorU8
	pool          *parallel.WorkerPool
}

// New returns a canvas cleared to clear, a linear color stored the way a
// target of the given encoding stores it.
func New(width, height int, space color.Space, clear color.ColorF32) *Canvas {
	c := &Canvas{width: width, height: height, space: space, pix: make([]color.ColorU8, width*height)}
	stored := color.Store(clear.Clamp(), space)
	for i := range c.pix {
		c.pix[i] = stored
	}
	return c
}

// SetPool rasterizes later draws in horizontal bands on pool. Nil draws
// on the calling goroutine.
func (c *Canvas) SetPool(pool *parallel.WorkerPool) { c.pool = pool }

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.width, c.height) }

// At returns the stored pixel at (x, y).
func (c *Canvas) At(x, y int) color.ColorU8 { return c.pix[y*c.width+x] }

// Image returns the stored bytes as an RGBA image.
func (c *Canvas) Image() *image.RGBA {
	img := image.NewRGBA(c.Bounds())
	for i, p := range c.pix {
		copy(img.Pix[i*4:], []byte{p.R, p.G, p.B, p.A})
	}
	return img
}

// Vertex is a vertex stage output.
type Vertex struct {
	Clip  [4]float32
	Color color.ColorF32
	UV    [2]float32
}

// Triangle rasterizes one triangle with texture tex, blending each
// fragment into the canvas.
func (c *Canvas) Triangle(v [3]Vertex, tex uint32, textures Textures, state gputypes.BlendState, clip image.Rectangle) {
	var pts [3]raster.Point
	for i := range v {
		w := v[i].Clip[3]
		if w <= 0 {
			return
		}
		pts[i] = raster.Point{
			X: (float64(v[i].Clip[0]/w) + 1) * 0.5 * float64(c.width),
			Y: (1 - float64(v[i].Clip[1]/w)) * 0.5 * float64(c.height),
		}
	}
	raster.Triangle(pts, clip.Intersect(c.Bounds()), func(x, y int, b [3]float64) {
		// Perspective-correct weights.
		var pw [3]float64
		var sum float64
		for i := range v {
			pw[i] = b[i] / float64(v[i].Clip[3])
			sum += pw[i]
		}
		var depth, r, g, bl, a, u, vv float64
		for i := range v {
			k := pw[i] / sum
			depth += k * float64(v[i].Clip[2]/v[i].Clip[3])
			r += k * float64(v[i].Color.R)
			g += k * float64(v[i].Color.G)
			bl += k * float64(v[i].Color.B)
			a += k * float64(v[i].Color.A)
			u += k * float64(v[i].UV[0])
			vv += k * float64(v[i].UV[1])
		}
		if depth < 0 || depth > 1 {
			return
		}
		src := textures.Sample(tex, float32(u), float32(vv)).Mul(color.ColorF32{
			R: float32(r), G: float32(g), B: float32(bl), A: float32(a),
		})
		c.store(x, y, src, state)
	})
}

type triangle struct {
	v       [3]Vertex
	tex     uint32
	state   gputypes.BlendState
	scissor image.Rectangle
}

// draw rasterizes tris in order. With a pool each band task replays the
// whole list clipped to its band, so every pixel still sees the
// triangles in submission order.
func (c *Canvas) draw(tris []triangle, textures Textures) {
	if len(tris) == 0 {
		return
	}
	var bands []image.Rectangle
	if c.pool != nil {
		bands = parallel.Bands(c.Bounds(), c.pool.Workers())
	}
	if len(bands) < 2 {
		for _, t := range tris {
			c.Triangle(t.v, t.tex, textures, t.state, t.scissor)
		}
		return
	}
	work := make([]func(), len(bands))
	for i, band := range bands {
		work[i] = func() {
			for _, t := range tris {
				c.Triangle(t.v, t.tex, textures, t.state, t.scissor.Intersect(band))
			}
		}
	}
	c.pool.ExecuteAll(work)
}

func (c *Canvas) store(x, y int, src color.ColorF32, state gputypes.BlendState) {
	i := y*c.width + x
	dst := color.Load(c.pix[i], c.space)
	c.pix[i] = color.Store(blend.Apply(state, src, dst), c.space)
}

// DrawQuads replays the quad pass from the bytes uploaded by the batcher.
func (c *Canvas) DrawQuads(viewProj [16]float32, data []byte, segments []batch.Segment, textures Textures, state gputypes.BlendState) error {
	if len(data) == 0 {
		return nil
	}
	dec, err := batch.Decode(data)
	if err != nil {
		return err
	}
	out := make([]Vertex, len(dec.Vertices))
	for i, v := range dec.Vertices {
		out[i] = Vertex{
			Clip:  MulVec(viewProj, v.Pos),
			Color: color.ColorF32{R: v.Color[0], G: v.Color[1], B: v.Color[2], A: v.Color[3]},
			UV:    dec.UVs[i],
		}
	}
	var tris []triangle
	for _, seg := range segments {
		end := seg.FirstIndex + seg.IndexCount
		if int(end) > len(dec.Indices) {
			return fmt.Errorf("composite: segment [%d, %d) past %d indices", seg.FirstIndex, end, len(dec.Indices))
		}
		for i := seg.FirstIndex; i+2 < end; i += 3 {
			tris = append(tris, triangle{
				v:       [3]Vertex{out[dec.Indices[i]], out[dec.Indices[i+1]], out[dec.Indices[i+2]]},
				tex:     seg.Texture,
				state:   state,
				scissor: c.Bounds(),
			})
		}
	}
	c.draw(tris, textures)
	return nil
}

// DrawOverlay replays the overlay pass from an upload.
func (c *Canvas) DrawOverlay(ortho [16]float32, d render.OverlayDraw, textures Textures) error {
	verts := render.DecodeOverlayVertices(d.VertexBytes)
	indices := render.DecodeOverlayIndices(d.IndexBytes)
	state := gputypes.BlendStateAlpha()
	var tris []triangle
	for _, l := range d.Lists {
		x, y, w, h, ok := l.Clip.Scissor(uint32(c.width), uint32(c.height))
		if !ok {
			continue
		}
		scissor := image.Rect(int(x), int(y), int(x+w), int(y+h))
		end := l.FirstIndex + l.IndexCount
		if int(end) > len(indices) {
			return fmt.Errorf("composite: overlay list [%d, %d) past %d indices", l.FirstIndex, end, len(indices))
		}
		for i := l.FirstIndex; i+2 < end; i += 3 {
			var tri [3]Vertex
			for k := range tri {
				vi := int(l.BaseVertex) + int(indices[i+uint32(k)])
				if vi >= len(verts) {
					return fmt.Errorf("composite: overlay vertex %d out of range", vi)
				}
				v := verts[vi]
				tri[k] = Vertex{
					Clip: MulVec(ortho, [4]float32{v.Pos[0], v.Pos[1], 0, 1}),
					Color: color.ToLinear(color.ColorF32{
						R: v.Color[0], G: v.Color[1], B: v.Color[2], A: v.Color[3],
					}),
					UV: v.UV,
				}
			}
			tris = append(tris, triangle{v: tri, tex: uint32(l.Texture), state: state, scissor: scissor})
		}
	}
	c.draw(tris, textures)
	return nil
}

// MulVec returns m·v for a column-major m.
func MulVec(m [16]float32, v [4]float32) [4]float32 {
	var out [4]float32
	for r := range 4 {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}
