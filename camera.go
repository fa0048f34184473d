package quad

// OrthoCamera is a 2D camera looking down -Z. The visible region is
// 2×Zoom world units tall, centered on Position, and Aspect times as
// wide.
type OrthoCamera struct {
	Position [2]float32
	Zoom     float32
	Aspect   float32
	Near     float32
	Far      float32
}

// NewOrthoCamera returns a camera covering [-aspect, aspect]×[-1, 1] with
// depth range [-1, 1].
func NewOrthoCamera(aspect float32) OrthoCamera {
	return OrthoCamera{Zoom: 1, Aspect: aspect, Near: -1, Far: 1}
}

// ViewProjection returns the matrix to pass to Renderer.SetViewProjection.
func (c OrthoCamera) ViewProjection() Mat4 {
	zoom, aspect := c.Zoom, c.Aspect
	if zoom <= 0 {
		zoom = 1
	}
	if aspect <= 0 {
		aspect = 1
	}
	near, far := c.Near, c.Far
	if near == far {
		near, far = -1, 1
	}
	proj := Ortho(-aspect*zoom, aspect*zoom, -zoom, zoom, near, far)
	view := Translate(-c.Position[0], -c.Position[1], 0)
	return proj.Mul(view)
}

// SetAspect updates the aspect ratio from a framebuffer size.
func (c *OrthoCamera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}
