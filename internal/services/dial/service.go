package dial

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mcoot/callclock/internal/model"
)

// DefaultSize is the side of the dial's square viewBox in pixels
const DefaultSize = 400

// Marker and tick counts
const (
	MarkerCount = 12
	TickCount   = 60
)

// movementMultipliers perturbs each hour marker's distance from the center.
// The uneven spacing is a hand-tuned watch-face look; it is not derived from geometry.
var movementMultipliers = [MarkerCount]float64{
	1.0, // 12
	0.7, // 1
	0.3, // 2
	0.2, // 3
	0.3, // 4
	0.7, // 5
	1.0, // 6
	0.7, // 7
	0.3, // 8
	0.2, // 9
	0.3, // 10
	0.7, // 11
}

// DefaultGeometry returns the geometry of the standard 400px dial
func DefaultGeometry() model.Geometry {
	return NewGeometry(DefaultSize)
}

// NewGeometry derives dial geometry from the viewBox size
func NewGeometry(size float64) model.Geometry {
	radius := size/2 - 10
	return model.Geometry{
		Size:       size,
		Center:     size / 2,
		Radius:     radius,
		FaceRadius: size/2 - 3,

		MarkerDistance:  0.75,
		MarkerOffset:    14,
		CenterlineNudge: 1,

		TickInset:       5,
		MajorTickLength: 12,
		MinorTickLength: 6,
		MajorTickWidth:  3,
		MinorTickWidth:  1,

		HourHandLength:   radius * 0.5,
		MinuteHandLength: radius * 0.7,
		SecondHandLength: radius * 0.75,
		SecondTipLength:  20.4,
	}
}

// SampleOf decomposes a wall-clock time into a 12-hour dial sample
func SampleOf(t time.Time) model.Sample {
	return model.Sample{
		Hour:        t.Hour() % 12,
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
		Time:        t,
	}
}

// Angles computes the hand rotations for a sample.
// Hour and minute include the contribution of every smaller unit so they never jump;
// the second hand deliberately ignores milliseconds so it ticks.
func Angles(s model.Sample) model.HandAngles {
	h := float64(s.Hour)
	m := float64(s.Minute)
	sec := float64(s.Second)
	ms := float64(s.Millisecond)

	return model.HandAngles{
		Hour:   h*30 + m*0.5 + sec*(0.5/60) + ms*(0.5/60000),
		Minute: m*6 + sec*0.1 + ms*(0.1/1000),
		Second: sec * 6,
	}
}

// MovementMultiplier returns the radial offset multiplier for hour marker i (0 = 12 o'clock)
func MovementMultiplier(i int) float64 {
	if i < 0 || i >= MarkerCount {
		return 0
	}
	return movementMultipliers[i]
}

// Point converts a polar position around the center to canvas coordinates.
// Angles are in degrees with 0 pointing right and -90 pointing up.
func Point(center, radius, angle float64) (x, y float64) {
	rad := angle * math.Pi / 180
	return center + radius*math.Cos(rad), center + radius*math.Sin(rad)
}

// HandEnd returns the end of a hand of the given length rotated clockwise from 12 o'clock
func HandEnd(g model.Geometry, rotation, length float64) (x, y float64) {
	return Point(g.Center, length, rotation-90)
}

// HourMarkers computes the positions of the 12 hour labels
func HourMarkers(g model.Geometry) []model.HourMarker {
	markers := make([]model.HourMarker, MarkerCount)
	for i := range markers {
		angle := float64(i*30 - 90)
		mult := MovementMultiplier(i)
		distance := g.MarkerDistance + g.MarkerOffset*mult/g.Radius
		x, y := Point(g.Center, g.Radius*distance, angle)

		// 3 and 9 o'clock sit on the horizontal centerline
		if i == 3 || i == 9 {
			y = g.Center + g.CenterlineNudge
		}

		markers[i] = model.HourMarker{
			Index:      i,
			Angle:      angle,
			Multiplier: mult,
			X:          x,
			Y:          y,
		}
	}
	return markers
}

// TickMarks computes the 60 tick marks; every fifth one is a longer, bolder hour tick
func TickMarks(g model.Geometry) []model.TickMark {
	ticks := make([]model.TickMark, TickCount)
	outer := g.Radius - g.TickInset
	for i := range ticks {
		angle := float64(i*6 - 90)
		major := i%5 == 0

		length, width := g.MinorTickLength, g.MinorTickWidth
		if major {
			length, width = g.MajorTickLength, g.MajorTickWidth
		}

		x1, y1 := Point(g.Center, outer, angle)
		x2, y2 := Point(g.Center, outer-length, angle)

		ticks[i] = model.TickMark{
			Index:       i,
			Angle:       angle,
			Major:       major,
			StrokeWidth: width,
			X1:          x1,
			Y1:          y1,
			X2:          x2,
			Y2:          y2,
		}
	}
	return ticks
}

// Service provides the dial geometry of a clock view
type Service struct {
	geometry model.Geometry
	logger   *slog.Logger

	once   sync.Once
	layout model.Layout
}

// New creates a new dial Service
func New(geometry model.Geometry, logger *slog.Logger) *Service {
	return &Service{
		geometry: geometry,
		logger:   logger.With(slog.String("component", "dial")),
	}
}

// Geometry returns the dial geometry
func (s *Service) Geometry() model.Geometry {
	return s.geometry
}

// Layout returns the static marker and tick layout, computing it on first use
func (s *Service) Layout() model.Layout {
	s.once.Do(func() {
		s.layout = model.Layout{
			Geometry: s.geometry,
			Markers:  HourMarkers(s.geometry),
			Ticks:    TickMarks(s.geometry),
		}
		s.logger.Debug("dial layout computed",
			slog.Float64("size", s.geometry.Size),
			slog.Int("markers", len(s.layout.Markers)),
			slog.Int("ticks", len(s.layout.Ticks)))
	})
	return s.layout
}

// AnglesAt returns the hand angles for the given wall-clock time
func (s *Service) AnglesAt(t time.Time) model.HandAngles {
	return Angles(SampleOf(t))
}
