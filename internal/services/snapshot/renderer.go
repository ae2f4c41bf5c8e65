package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"

	"golang.org/x/image/font"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/fonts"
)

// DefaultSize is the side of the rendered PNG in pixels
const DefaultSize = 800

// Palette of the clock page
var (
	colorBackground = color.RGBA{0xfa, 0xfa, 0xfa, 0xff}
	colorFace       = color.White
	colorInk        = color.Black
	colorGrey       = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorMuted      = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorPillBorder = color.RGBA{0xb3, 0xb3, 0xb3, 0xff}
	colorSecondTip  = color.RGBA{0xdc, 0x26, 0x26, 0xff}
)

// Text sizes in dial pixels
const (
	markerTextSize = 16.0
	labelTextSize  = 12.0
)

// Options controls a rendering
type Options struct {
	Size      int    // output side in pixels; DefaultSize if zero
	Caption   string // caption shown in the pill; omitted if empty
	PillWidth int    // dial pixels; measured from Caption if zero
}

// Renderer draws the clock dial to a raster image
type Renderer struct {
	dial   *dial.Service
	fonts  *fonts.Loader
	logger *slog.Logger
}

// New creates a new Renderer
func New(dialSvc *dial.Service, loader *fonts.Loader, logger *slog.Logger) *Renderer {
	return &Renderer{
		dial:   dialSvc,
		fonts:  loader,
		logger: logger.With(slog.String("component", "snapshot")),
	}
}

// Render draws the dial with hands at the given angles.
// Text is left out if the typeface is unavailable.
func (r *Renderer) Render(angles model.HandAngles, opts Options) (*image.RGBA, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Size > 4096 {
		return nil, fmt.Errorf("snapshot size %d too large", opts.Size)
	}

	layout := r.dial.Layout()
	g := layout.Geometry
	c := newCanvas(opts.Size, float64(opts.Size)/g.Size, colorBackground)

	// Face
	c.disc(colorFace, g.Center, g.Center, g.FaceRadius)
	c.ring(colorInk, g.Center, g.Center, g.FaceRadius, 3)

	for _, t := range layout.Ticks {
		c.line(colorInk, t.X1, t.Y1, t.X2, t.Y2, t.StrokeWidth)
	}

	r.drawText(c, layout, opts)

	// Hands
	hx, hy := dial.HandEnd(g, angles.Hour, g.HourHandLength)
	c.line(colorInk, g.Center, g.Center, hx, hy, 6)
	mx, my := dial.HandEnd(g, angles.Minute, g.MinuteHandLength)
	c.line(colorInk, g.Center, g.Center, mx, my, 3)

	c.disc(colorInk, g.Center, g.Center, 6)
	c.disc(colorGrey, g.Center, g.Center, 2.5)

	sx, sy := dial.HandEnd(g, angles.Second, g.SecondHandLength-g.SecondTipLength)
	c.line(colorGrey, g.Center, g.Center, sx, sy, 1.5)
	tx, ty := dial.HandEnd(g, angles.Second, g.SecondHandLength)
	c.line(colorSecondTip, sx, sy, tx, ty, 1.5)

	return c.dst, nil
}

// WritePNG renders the dial and encodes it as PNG
func (r *Renderer) WritePNG(w io.Writer, angles model.HandAngles, opts Options) error {
	img, err := r.Render(angles, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func (r *Renderer) drawText(c *canvas, layout model.Layout, opts Options) {
	markerFace, err := r.fonts.FaceAt(markerTextSize * c.scale)
	if err != nil {
		r.logger.Debug("skipping text", slog.String("error", err.Error()))
		return
	}
	defer markerFace.Close()
	labelFace, err := r.fonts.FaceAt(labelTextSize * c.scale)
	if err != nil {
		r.logger.Debug("skipping text", slog.String("error", err.Error()))
		return
	}
	defer labelFace.Close()

	for _, m := range layout.Markers {
		c.text(markerFace, colorInk, "CALL", m.X, m.Y)
	}

	g := layout.Geometry
	top := g.Center - g.Radius*0.5 - 10
	c.text(labelFace, colorMuted, "Stop", g.Center, top+7)
	if opts.Caption != "" {
		r.drawPill(c, labelFace, g, top+16, opts)
	}
	c.text(labelFace, colorMuted, "Start dialing.", g.Center, g.Center+g.Radius*0.5-29)
}

func (r *Renderer) drawPill(c *canvas, face font.Face, g model.Geometry, top float64, opts Options) {
	width := float64(opts.PillWidth)
	if width <= 0 {
		w, err := r.fonts.Measure(opts.Caption)
		if err != nil {
			return
		}
		width = float64(w + 2*fonts.PillPadding)
	}
	const height = 33.0
	c.pill(colorFace, colorPillBorder, g.Center-width/2, top, width, height, 20, 1.5)
	c.text(face, colorInk, opts.Caption, g.Center, top+height/2)
}
