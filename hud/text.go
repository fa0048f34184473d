package hud

import (
	"math"
	"strings"
	"unicode"

	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/width"

	"github.com/gogpu/quad/overlay"
)

// Text lays out strings with an atlas.
type Text struct {
	Atlas *Atlas
	// Texture is the renderer texture created from Atlas.Image.
	Texture overlay.TextureID
	// MaxWidth wraps lines at this many pixels. Zero disables wrapping.
	MaxWidth float32
	// Color is the sRGB text color.
	Color [4]float32
	// Background fills the text's bounding box when its alpha is non-zero.
	Background [4]float32
	// Padding surrounds the text inside the background.
	Padding float32
	// LineSpacing is added between lines, in pixels.
	LineSpacing float32
}

// Fold maps s onto the atlas' character set: full-width forms become
// their ASCII counterparts, tabs become spaces and other control runes
// are dropped. Runes still missing from the atlas are kept and drawn as
// the replacement glyph.
func Fold(s string) string {
	s = width.Fold.String(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r == '\n':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// Lines folds s and breaks it into lines. Explicit newlines always break;
// with MaxWidth set, lines also break at the last line break opportunity
// that fits, or mid-word when a single word is too long.
func (t *Text) Lines(s string) []string {
	s = Fold(s)
	cols := math.MaxInt
	if t.MaxWidth > 0 {
		cw, _ := t.Atlas.CellSize()
		cols = max(1, int(t.MaxWidth)/cw)
	}

	var (
		seg   segmenter.Segmenter
		lines []string
		cur   []rune
	)
	flush := func() {
		lines = append(lines, strings.TrimRightFunc(string(cur), unicode.IsSpace))
		cur = cur[:0]
	}
	seg.InitWithString(s)
	it := seg.LineIterator()
	for it.Next() {
		l := it.Line()
		text := l.Text
		if l.IsMandatoryBreak {
			text = trimNewline(text)
		}
		if len(cur) > 0 && len(cur)+visible(text) > cols {
			flush()
		}
		for visible(text) > cols {
			room := cols - len(cur)
			cur = append(cur, text[:room]...)
			text = text[room:]
			flush()
		}
		cur = append(cur, text...)
		if l.IsMandatoryBreak {
			flush()
		}
	}
	if len(cur) > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

func trimNewline(r []rune) []rune {
	for len(r) > 0 && (r[len(r)-1] == '\n' || r[len(r)-1] == '\r') {
		r = r[:len(r)-1]
	}
	return r
}

// visible is the rune count without trailing spaces.
func visible(r []rune) int {
	n := len(r)
	for n > 0 && unicode.IsSpace(r[n-1]) {
		n--
	}
	return n
}

// Measure returns the size of the laid out lines, padding included.
func (t *Text) Measure(lines []string) (w, h float32) {
	cw, ch := t.Atlas.CellSize()
	cols := 0
	for _, l := range lines {
		cols = max(cols, len([]rune(l)))
	}
	w = float32(cols*cw) + 2*t.Padding
	h = float32(len(lines)*ch) + float32(max(len(lines)-1, 0))*t.LineSpacing + 2*t.Padding
	return w, h
}

// Append lays out s with its top-left corner at (x, y) and appends the
// background and glyph quads to list. Positions are rounded to whole
// pixels so glyph texels map one to one. It returns the drawn size.
func (t *Text) Append(list *overlay.DrawList, x, y float32, s string) (w, h float32, err error) {
	x, y = float32(math.Round(float64(x))), float32(math.Round(float64(y)))
	lines := t.Lines(s)
	w, h = t.Measure(lines)
	if t.Background[3] > 0 {
		uv := t.Atlas.SolidUV()
		if err := list.AddRect([2]float32{x, y}, [2]float32{x + w, y + h}, uv, uv, t.Background); err != nil {
			return 0, 0, err
		}
	}
	cw, ch := t.Atlas.CellSize()
	top := y + t.Padding
	for _, line := range lines {
		left := x + t.Padding
		for i, r := range []rune(line) {
			if r == ' ' {
				continue
			}
			gx := left + float32(i*cw)
			uv0, uv1 := t.Atlas.UV(r)
			if err := list.AddRect([2]float32{gx, top}, [2]float32{gx + float32(cw), top + float32(ch)}, uv0, uv1, t.Color); err != nil {
				return 0, 0, err
			}
		}
		top += float32(ch) + t.LineSpacing
	}
	return w, h, nil
}

// DrawList returns a new list holding s at (x, y), bound to the atlas
// texture and clipped to clip.
func (t *Text) DrawList(x, y float32, s string, clip overlay.Rect) (overlay.DrawList, error) {
	list := overlay.DrawList{Texture: t.Texture, Clip: clip}
	_, _, err := t.Append(&list, x, y, s)
	return list, err
}
