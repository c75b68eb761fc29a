package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.RGBA{A: 255}
)

const labelPadding = 3

// ConfidenceColor blends from red at 0 to green at 1.
func ConfidenceColor(confidence float64) color.RGBA {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return color.RGBA{
		R: uint8(255 * (1 - confidence)),
		G: uint8(255 * confidence),
		A: 255,
	}
}

// DrawRect outlines r on dst with the given line thickness.
func DrawRect(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	for i := 0; i < thickness; i++ {
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y+i, r.Max.X, r.Min.Y+i+1),
			image.Rect(r.Min.X, r.Max.Y-i-1, r.Max.X, r.Max.Y-i),
			image.Rect(r.Min.X+i, r.Min.Y, r.Min.X+i+1, r.Max.Y),
			image.Rect(r.Max.X-i-1, r.Min.Y, r.Max.X-i, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
		}
	}
}

// TextWidth returns the rendered width of s in pixels.
func TextWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// DrawLabel writes text with its baseline-left corner at (x, y), on a filled
// background box when bg is not nil.
func DrawLabel(dst draw.Image, x, y int, text string, fg color.Color, bg color.Color) {
	face := basicfont.Face7x13
	if bg != nil {
		metrics := face.Metrics()
		box := image.Rect(
			x-labelPadding,
			y-metrics.Ascent.Ceil()-labelPadding,
			x+TextWidth(text)+labelPadding,
			y+metrics.Descent.Ceil()+labelPadding,
		)
		draw.Draw(dst, box.Intersect(dst.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Placeholder returns a black w x h frame with text centred on it.
func Placeholder(w, h int, text string) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)
	x := (w - TextWidth(text)) / 2
	y := h / 2
	DrawLabel(dst, x, y, text, White, nil)
	return dst
}
