// Package render turns extracted channel frames into a flattened raster.
// It wraps a gg drawing context: an opaque background fill, then one
// alpha-blended colorized layer per channel, then a PNG write.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/easylens/easylens/pkg/lif"
	"github.com/easylens/easylens/pkg/lut"
)

// Canvas accumulates layers for one composite image. Sized so one canvas
// pixel corresponds to one source sample.
type Canvas struct {
	dc   *gg.Context
	w, h int
}

func NewCanvas(w, h int) *Canvas {
	return &Canvas{dc: gg.NewContext(w, h), w: w, h: h}
}

// Fill paints the whole canvas with the ramp color for a single constant
// value. Used for the background: value 0 through the bf ramp at [0,1]
// bounds is opaque black.
func (c *Canvas) Fill(m lut.Map, v, low, high float64) {
	c.dc.SetColor(m.At(v, low, high))
	c.dc.Clear()
}

// PaintLayer colorizes one frame through its ramp and draws it over
// whatever is already on the canvas. The ramp is precomputed into a
// lookup table sized to the frame's bit depth, so the per-pixel work is
// an array index.
func (c *Canvas) PaintLayer(f *lif.Frame, m lut.Map, low, high, alpha float64) error {
	if f.W != c.w || f.H != c.h {
		return fmt.Errorf("layer is %dx%d, canvas is %dx%d", f.W, f.H, c.w, c.h)
	}

	a := uint8(alpha*255 + 0.5)
	depth := f.BitDepth
	if depth < 1 {
		depth = 8
	} else if depth > 16 {
		depth = 16
	}
	table := make([]color.NRGBA, 1<<depth)
	for v := range table {
		r, g, b := m.At(float64(v), low, high).RGB255()
		table[v] = color.NRGBA{R: r, G: g, B: b, A: a}
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			v := int(f.At(x, y))
			if v >= len(table) {
				v = len(table) - 1
			}
			img.SetNRGBA(x, y, table[v])
		}
	}

	c.dc.DrawImage(img, 0, 0)
	return nil
}

// Image returns the composite as rendered so far.
func (c *Canvas) Image() image.Image { return c.dc.Image() }

// WritePNG encodes the composite to disk, resampling first when scale is
// not 1.
func (c *Canvas) WritePNG(path string, scale float64) error {
	img := c.Image()
	if scale != 1 {
		w := int(float64(c.w)*scale + 0.5)
		h := int(float64(c.h)*scale + 0.5)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Rect, img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("open+w '%s': %v", path, err)
	}
	return nil
}
