package fonts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"

	"github.com/mcoot/callclock/internal/model"
)

// Caption typography
const (
	CaptionSize = 12.0
	DPI         = 72.0
	PillPadding = 10 // horizontal padding on each side of the caption
)

// Measurement is the result of sizing the caption pill
type Measurement struct {
	Caption   string `json:"caption"` // the widest caption
	Width     int    `json:"width"`
	PillWidth int    `json:"pill_width"`
}

// Loader parses the caption typeface once and measures captions with it
type Loader struct {
	src    []byte
	size   float64
	logger *slog.Logger

	once  sync.Once
	ready chan struct{}
	err   error

	// opentype faces are not safe for concurrent use
	mu   sync.Mutex
	font *opentype.Font
	face font.Face
}

// NewLoader creates a Loader for the bundled Go Bold typeface at the caption size
func NewLoader(logger *slog.Logger) *Loader {
	return NewLoaderFrom(gobold.TTF, CaptionSize, logger)
}

// NewLoaderFrom creates a Loader for an arbitrary TrueType/OpenType font
func NewLoaderFrom(src []byte, size float64, logger *slog.Logger) *Loader {
	return &Loader{
		src:    src,
		size:   size,
		logger: logger.With(slog.String("component", "fonts")),
		ready:  make(chan struct{}),
	}
}

// Load parses the font. It runs once; later calls return the first result.
func (l *Loader) Load() error {
	l.once.Do(func() {
		defer close(l.ready)

		f, err := opentype.Parse(l.src)
		if err != nil {
			l.err = fmt.Errorf("parse font: %w", err)
			l.logger.Error("font load failed", slog.String("error", l.err.Error()))
			return
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    l.size,
			DPI:     DPI,
			Hinting: font.HintingFull,
		})
		if err != nil {
			l.err = fmt.Errorf("create face: %w", err)
			l.logger.Error("font load failed", slog.String("error", l.err.Error()))
			return
		}

		l.mu.Lock()
		l.font = f
		l.face = face
		l.mu.Unlock()
		l.logger.Debug("font loaded", slog.Float64("size", l.size))
	})
	return l.err
}

// Ready returns a channel closed once loading has finished, successfully or not
func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// Wait blocks until loading has finished or ctx is done
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.ready:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether the font parsed successfully
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.face != nil
}

// Measure returns the advance width of s in whole pixels
func (l *Loader) Measure(s string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.face == nil {
		return 0, model.ErrFontNotLoaded
	}
	return font.MeasureString(l.face, s).Ceil(), nil
}

// MeasureWidest measures every caption and sizes the pill for the widest.
// Rendered width decides, not character count.
func (l *Loader) MeasureWidest(captions []string) (Measurement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.face == nil {
		return Measurement{}, model.ErrFontNotLoaded
	}

	var m Measurement
	for _, c := range captions {
		if w := font.MeasureString(l.face, c).Ceil(); w > m.Width {
			m.Width = w
			m.Caption = c
		}
	}
	m.PillWidth = m.Width + 2*PillPadding
	return m, nil
}

// EstimateWidest sizes the pill without a font, assuming an average glyph
// advance of 0.6em. Used when the typeface fails to load.
func EstimateWidest(captions []string) Measurement {
	var m Measurement
	for _, c := range captions {
		if w := int(math.Ceil(float64(utf8.RuneCountInString(c)) * CaptionSize * 0.6)); w > m.Width {
			m.Width = w
			m.Caption = c
		}
	}
	m.PillWidth = m.Width + 2*PillPadding
	return m
}

// FaceAt creates a new face of the loaded font at another size.
// The returned face belongs to the caller.
func (l *Loader) FaceAt(size float64) (font.Face, error) {
	l.mu.Lock()
	f := l.font
	l.mu.Unlock()
	if f == nil {
		return nil, model.ErrFontNotLoaded
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     DPI,
		Hinting: font.HintingFull,
	})
}
