package parallel

import "image"

// MinBandHeight is the smallest band Bands produces, except for the last.
const MinBandHeight = 16

// Bands splits r into at most n horizontal strips of near-equal height.
// Strips are never shorter than MinBandHeight unless r itself is.
func Bands(r image.Rectangle, n int) []image.Rectangle {
	h := r.Dy()
	if r.Empty() {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if most := (h + MinBandHeight - 1) / MinBandHeight; n > most {
		n = most
	}
	out := make([]image.Rectangle, 0, n)
	y := r.Min.Y
	for i := range n {
		next := r.Min.Y + h*(i+1)/n
		out = append(out, image.Rect(r.Min.X, y, r.Max.X, next))
		y = next
	}
	return out
}
