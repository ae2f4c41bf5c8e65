package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/dial"
)

// cell is what occupies one character of the dial grid
type cell int

const (
	cellEmpty cell = iota
	cellTick
	cellMajorTick
	cellMarker
	cellSecond
	cellMinute
	cellHour
	cellPivot
)

var cellRunes = map[cell]rune{
	cellEmpty:     ' ',
	cellTick:      '·',
	cellMajorTick: '•',
	cellMarker:    'C',
	cellSecond:    '.',
	cellMinute:    '+',
	cellHour:      '#',
	cellPivot:     'o',
}

// Grid is a character raster of the dial.
// Terminal cells are about twice as tall as wide, so a square dial uses twice the columns.
type Grid struct {
	Cols, Rows int
	cells      [][]cell
}

// NewGrid rasterizes the layout with hands at angles onto a grid of the given height
func NewGrid(layout model.Layout, angles model.HandAngles, rows int) *Grid {
	rows = max(rows, 9)
	if rows%2 == 0 {
		rows++
	}
	g := &Grid{Cols: 2*rows - 1, Rows: rows}
	g.cells = make([][]cell, rows)
	for r := range g.cells {
		g.cells[r] = make([]cell, g.Cols)
	}

	geo := layout.Geometry
	for _, t := range layout.Ticks {
		kind := cellTick
		if t.Major {
			kind = cellMajorTick
		}
		g.plot(geo, t.X1, t.Y1, kind)
	}
	for _, m := range layout.Markers {
		g.plot(geo, m.X, m.Y, cellMarker)
	}

	g.hand(geo, angles.Second, geo.SecondHandLength, cellSecond)
	g.hand(geo, angles.Minute, geo.MinuteHandLength, cellMinute)
	g.hand(geo, angles.Hour, geo.HourHandLength, cellHour)
	g.plot(geo, geo.Center, geo.Center, cellPivot)
	return g
}

// At returns the rune drawn at column c, row r
func (g *Grid) At(c, r int) rune {
	return cellRunes[g.cells[r][c]]
}

// String renders the grid without styling
func (g *Grid) String() string {
	var sb strings.Builder
	for r := range g.cells {
		for c := range g.cells[r] {
			sb.WriteRune(g.At(c, r))
		}
		if r < g.Rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Render draws the grid with styles, grouping runs of equal cells
func (g *Grid) Render(st Styles) string {
	styleOf := map[cell]lipgloss.Style{
		cellEmpty:     st.Face,
		cellTick:      st.Tick,
		cellMajorTick: st.MajorTick,
		cellMarker:    st.Marker,
		cellSecond:    st.SecHand,
		cellMinute:    st.MinHand,
		cellHour:      st.HourHand,
		cellPivot:     st.Pivot,
	}

	lines := make([]string, g.Rows)
	for r, row := range g.cells {
		var sb strings.Builder
		start := 0
		for c := 1; c <= len(row); c++ {
			if c < len(row) && row[c] == row[start] {
				continue
			}
			run := strings.Repeat(string(cellRunes[row[start]]), c-start)
			if row[start] == cellEmpty {
				sb.WriteString(run)
			} else {
				sb.WriteString(styleOf[row[start]].Render(run))
			}
			start = c
		}
		lines[r] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// plot marks the dial-space point (x, y); hands and pivot win over static marks
func (g *Grid) plot(geo model.Geometry, x, y float64, kind cell) {
	c := int(math.Round(x / geo.Size * float64(g.Cols-1)))
	r := int(math.Round(y / geo.Size * float64(g.Rows-1)))
	if c < 0 || c >= g.Cols || r < 0 || r >= g.Rows {
		return
	}
	if kind > g.cells[r][c] {
		g.cells[r][c] = kind
	}
}

func (g *Grid) hand(geo model.Geometry, rotation, length float64, kind cell) {
	// Half a row per step leaves no gaps on steep hands
	step := geo.Size / float64(g.Rows-1) / 2
	for d := step; d <= length; d += step {
		x, y := dial.HandEnd(geo, rotation, d)
		g.plot(geo, x, y, kind)
	}
}
