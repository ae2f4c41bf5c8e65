package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w, or stdout if w is nil
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case ClockResult:
		o.printClock(v)
	case Geometry:
		o.printGeometry(v)
	case Schedule:
		o.printSchedule(v)
	case Captions:
		o.printCaptions(v)
	case PageList:
		o.printPageList(v)
	case View:
		o.printView(v)
	case ViewList:
		o.printViewList(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status      string    `json:"status"`
	Time        time.Time `json:"time"`
	Views       int       `json:"views"`
	FontsLoaded bool      `json:"fonts_loaded"`
}

// Angles response type
type Angles struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// ClockResult response type
type ClockResult struct {
	Time        time.Time `json:"time"`
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	Second      int       `json:"second"`
	Millisecond int       `json:"millisecond"`
	Fixed       string    `json:"fixed,omitempty"`
	Angles      Angles    `json:"angles"`
}

// Geometry response type
type Geometry struct {
	Geometry struct {
		Size       float64 `json:"size"`
		Center     float64 `json:"center"`
		Radius     float64 `json:"radius"`
		FaceRadius float64 `json:"face_radius"`
	} `json:"geometry"`
	Markers []Marker `json:"markers"`
	Ticks   []Tick   `json:"ticks"`
}

// Marker response type
type Marker struct {
	Index      int     `json:"index"`
	Angle      float64 `json:"angle"`
	Multiplier float64 `json:"multiplier"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Tick response type
type Tick struct {
	Index int     `json:"index"`
	Angle float64 `json:"angle"`
	Major bool    `json:"major"`
}

// Schedule response type
type Schedule struct {
	Now        time.Time `json:"now"`
	NextChange time.Time `json:"next_change"`
	SlideOutAt time.Time `json:"slide_out_at"`
	DelayMS    int64     `json:"delay_ms"`
	PeriodMS   int64     `json:"period_ms"`
	LeadMS     int64     `json:"lead_ms"`
}

// Captions response type
type Captions struct {
	Page      string    `json:"page"`
	Captions  []string  `json:"captions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageList response type
type PageList struct {
	Pages []string `json:"pages"`
}

// View response type
type View struct {
	ID        string    `json:"id"`
	Page      string    `json:"page"`
	MountedAt time.Time `json:"mounted_at"`
	Ready     bool      `json:"ready"`
	Pending   []string  `json:"pending,omitempty"`
	Caption   string    `json:"caption"`
	Phase     string    `json:"phase"`
	Frames    uint64    `json:"frames"`
	PillWidth int       `json:"pill_width"`
}

// ViewList response type
type ViewList struct {
	Count int    `json:"count"`
	Views []View `json:"views"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Server time: %s\n", h.Time.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Mounted views: %d\n", h.Views)
	fmt.Fprintf(o.w, "Fonts loaded: %s\n", yesNo(h.FontsLoaded))
}

func (o *Output) printClock(c ClockResult) {
	hour := c.Hour
	if hour == 0 {
		hour = 12
	}
	fmt.Fprintf(o.w, "Time: %d:%02d:%02d", hour, c.Minute, c.Second)
	if c.Fixed != "" {
		fmt.Fprintf(o.w, " (fixed at %s)", c.Fixed)
	}
	fmt.Fprintln(o.w)
	fmt.Fprintf(o.w, "Hour hand:   %7.3f°\n", c.Angles.Hour)
	fmt.Fprintf(o.w, "Minute hand: %7.3f°\n", c.Angles.Minute)
	fmt.Fprintf(o.w, "Second hand: %7.3f°\n", c.Angles.Second)
}

func (o *Output) printGeometry(g Geometry) {
	fmt.Fprintf(o.w, "Dial: %gpx, center %g, radius %g\n", g.Geometry.Size, g.Geometry.Center, g.Geometry.Radius)
	fmt.Fprintf(o.w, "Markers (%d):\n", len(g.Markers))
	for _, m := range g.Markers {
		fmt.Fprintf(o.w, "  %2d  angle %6.1f  x %7.2f  y %7.2f  multiplier %g\n", m.Index, m.Angle, m.X, m.Y, m.Multiplier)
	}
	major := 0
	for _, t := range g.Ticks {
		if t.Major {
			major++
		}
	}
	fmt.Fprintf(o.w, "Ticks: %d (%d major)\n", len(g.Ticks), major)
}

func (o *Output) printSchedule(s Schedule) {
	fmt.Fprintf(o.w, "Now: %s\n", s.Now.Format("15:04:05.000"))
	fmt.Fprintf(o.w, "Next caption change: %s\n", s.NextChange.Format("15:04:05.000"))
	fmt.Fprintf(o.w, "Slide out starts in: %dms\n", s.DelayMS)
	fmt.Fprintf(o.w, "Period: %dms, lead: %dms\n", s.PeriodMS, s.LeadMS)
}

func (o *Output) printCaptions(c Captions) {
	fmt.Fprintf(o.w, "Page: %s (%d captions, updated %s)\n", c.Page, len(c.Captions), c.UpdatedAt.Format(time.RFC3339))
	for i, caption := range c.Captions {
		fmt.Fprintf(o.w, "  %d. Stop %s\n", i+1, caption)
	}
}

func (o *Output) printPageList(p PageList) {
	if len(p.Pages) == 0 {
		fmt.Fprintln(o.w, "No pages have captions")
		return
	}
	fmt.Fprintln(o.w, strings.Join(p.Pages, "\n"))
}

func (o *Output) printView(v View) {
	fmt.Fprintf(o.w, "View: %s\n", v.ID)
	fmt.Fprintf(o.w, "Page: %s\n", v.Page)
	fmt.Fprintf(o.w, "Mounted: %s\n", v.MountedAt.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Ready: %s", yesNo(v.Ready))
	if len(v.Pending) > 0 {
		fmt.Fprintf(o.w, " (waiting for %s)", strings.Join(v.Pending, ", "))
	}
	fmt.Fprintln(o.w)
	fmt.Fprintf(o.w, "Caption: %s [%s]\n", v.Caption, v.Phase)
	fmt.Fprintf(o.w, "Frames: %d\n", v.Frames)
	if v.PillWidth > 0 {
		fmt.Fprintf(o.w, "Pill width: %dpx\n", v.PillWidth)
	}
}

func (o *Output) printViewList(l ViewList) {
	fmt.Fprintf(o.w, "Mounted views (%d):\n", l.Count)
	for _, v := range l.Views {
		fmt.Fprintf(o.w, "  %s  %-8s  ready=%-3s  frames=%-6d  %s\n", v.ID, v.Page, yesNo(v.Ready), v.Frames, v.Caption)
	}
}
