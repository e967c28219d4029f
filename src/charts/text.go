package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// newFace builds a Go font face for the given point size at dpi.
func newFace(ttf []byte, points float64, dpi int) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: points, DPI: float64(dpi), Hinting: font.HintingFull})
}

func boldFace(points float64, dpi int) (font.Face, error) { return newFace(gobold.TTF, points, dpi) }
func regularFace(points float64, dpi int) (font.Face, error) {
	return newFace(goregular.TTF, points, dpi)
}

// drawCentered draws text horizontally centred on cx with its baseline at y.
func drawCentered(dst draw.Image, face font.Face, text string, cx, y int, col color.Color) {
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	w := dr.MeasureString(text).Ceil()
	dr.Dot = fixed.Point26_6{X: fixed.I(cx - w/2), Y: fixed.I(y)}
	dr.DrawString(text)
}

// lineHeight is the ascent plus descent of face in pixels.
func lineHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// drawHeader draws the figure title and subtitle centred in the top band of dst
// and returns the y coordinate just below them.
func drawHeader(dst draw.Image, title, subtitle string, dpi int) (int, error) {
	tf, err := boldFace(16, dpi)
	if err != nil {
		return 0, err
	}
	defer tf.Close()
	sf, err := regularFace(12, dpi)
	if err != nil {
		return 0, err
	}
	defer sf.Close()
	b := dst.Bounds()
	cx := b.Min.X + b.Dx()/2
	y := b.Min.Y + dpi/6 + tf.Metrics().Ascent.Ceil()
	drawCentered(dst, tf, title, cx, y, color.Black)
	y += tf.Metrics().Descent.Ceil() + sf.Metrics().Ascent.Ceil() + dpi/20
	drawCentered(dst, sf, subtitle, cx, y, color.Black)
	return y + sf.Metrics().Descent.Ceil() + dpi/8, nil
}

// headerHeight reports the band drawHeader needs for the given dpi.
func headerHeight(dpi int) (int, error) {
	tf, err := boldFace(16, dpi)
	if err != nil {
		return 0, err
	}
	defer tf.Close()
	sf, err := regularFace(12, dpi)
	if err != nil {
		return 0, err
	}
	defer sf.Close()
	return dpi/6 + lineHeight(tf) + dpi/20 + lineHeight(sf) + dpi/8, nil
}
