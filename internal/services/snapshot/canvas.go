package snapshot

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// circleSegments is the polygon resolution used for circles and arcs
const circleSegments = 96

// canvas draws dial-space shapes onto an image scaled by a constant factor
type canvas struct {
	dst   *image.RGBA
	scale float64
}

func newCanvas(size int, scale float64, bg color.Color) *canvas {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &canvas{dst: dst, scale: scale}
}

func (c *canvas) pt(x, y float64) (float32, float32) {
	return float32(x * c.scale), float32(y * c.scale)
}

// fill rasterizes the path built by build and composites it in col
func (c *canvas) fill(col color.Color, build func(z *vector.Rasterizer)) {
	b := c.dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	build(z)
	z.Draw(c.dst, b, image.NewUniform(col), image.Point{})
}

// arc adds a polyline around (cx, cy) from angle a0 to a1 in radians
func (c *canvas) arc(z *vector.Rasterizer, cx, cy, r, a0, a1 float64, start bool) {
	steps := max(2, int(math.Ceil(math.Abs(a1-a0)/(2*math.Pi)*circleSegments)))
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		x, y := c.pt(cx+r*math.Cos(a), cy+r*math.Sin(a))
		if i == 0 && start {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
}

// circlePath adds a closed circle; opposite windings cancel, which cuts holes
func (c *canvas) circlePath(z *vector.Rasterizer, cx, cy, r float64, clockwise bool) {
	if clockwise {
		c.arc(z, cx, cy, r, 0, 2*math.Pi, true)
	} else {
		c.arc(z, cx, cy, r, 2*math.Pi, 0, true)
	}
	z.ClosePath()
}

func (c *canvas) disc(col color.Color, cx, cy, r float64) {
	c.fill(col, func(z *vector.Rasterizer) {
		c.circlePath(z, cx, cy, r, true)
	})
}

func (c *canvas) ring(col color.Color, cx, cy, r, width float64) {
	c.fill(col, func(z *vector.Rasterizer) {
		c.circlePath(z, cx, cy, r+width/2, true)
		c.circlePath(z, cx, cy, r-width/2, false)
	})
}

// line strokes a segment with round caps
func (c *canvas) line(col color.Color, x1, y1, x2, y2, width float64) {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		c.disc(col, x1, y1, width/2)
		return
	}
	// Unit normal scaled to half the stroke
	nx, ny := -dy/length*width/2, dx/length*width/2

	c.fill(col, func(z *vector.Rasterizer) {
		z.MoveTo(c.pt(x1+nx, y1+ny))
		z.LineTo(c.pt(x2+nx, y2+ny))
		z.LineTo(c.pt(x2-nx, y2-ny))
		z.LineTo(c.pt(x1-nx, y1-ny))
		z.ClosePath()
		c.circlePath(z, x1, y1, width/2, true)
		c.circlePath(z, x2, y2, width/2, true)
	})
}

// roundedRectPath adds a rectangle with corner radius r
func (c *canvas) roundedRectPath(z *vector.Rasterizer, x, y, w, h, r float64) {
	r = min(r, w/2, h/2)
	c.arc(z, x+w-r, y+r, r, -math.Pi/2, 0, true)
	c.arc(z, x+w-r, y+h-r, r, 0, math.Pi/2, false)
	c.arc(z, x+r, y+h-r, r, math.Pi/2, math.Pi, false)
	c.arc(z, x+r, y+r, r, math.Pi, 3*math.Pi/2, false)
	z.ClosePath()
}

// pill draws a filled rounded rectangle with a border
func (c *canvas) pill(fill, border color.Color, x, y, w, h, r, borderWidth float64) {
	c.fill(border, func(z *vector.Rasterizer) {
		c.roundedRectPath(z, x, y, w, h, r)
	})
	c.fill(fill, func(z *vector.Rasterizer) {
		c.roundedRectPath(z, x+borderWidth, y+borderWidth, w-2*borderWidth, h-2*borderWidth, r-borderWidth)
	})
}

// text draws s centered on (cx, cy)
func (c *canvas) text(face font.Face, col color.Color, s string, cx, cy float64) {
	d := &font.Drawer{
		Dst:  c.dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	m := face.Metrics()
	half := m.CapHeight / 2
	if half == 0 {
		half = (m.Ascent - m.Descent) / 2
	}
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(cx*c.scale*64) - d.MeasureString(s)/2,
		Y: fixed.Int26_6(cy*c.scale*64) + half,
	}
	d.DrawString(s)
}
