package response

import (
	"time"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/view"
)

// Health is the response of the health endpoint
type Health struct {
	Status      string    `json:"status"`
	Time        time.Time `json:"time"`
	Views       int       `json:"views"`
	FontsLoaded bool      `json:"fonts_loaded"`
}

// Angles represents hand rotations in degrees clockwise from 12 o'clock
type Angles struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// AnglesFromModel converts model.HandAngles
func AnglesFromModel(a model.HandAngles) Angles {
	return Angles{Hour: a.Hour, Minute: a.Minute, Second: a.Second}
}

// Clock is the current time as the dial shows it
type Clock struct {
	Time        time.Time `json:"time"`
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	Second      int       `json:"second"`
	Millisecond int       `json:"millisecond"`
	Fixed       string    `json:"fixed,omitempty"`
	Angles      Angles    `json:"angles"`
}

// ClockFromSample converts a sample and its angles
func ClockFromSample(s model.Sample, a model.HandAngles, fixed string) Clock {
	return Clock{
		Time:        s.Time,
		Hour:        s.Hour,
		Minute:      s.Minute,
		Second:      s.Second,
		Millisecond: s.Millisecond,
		Fixed:       fixed,
		Angles:      AnglesFromModel(a),
	}
}

// Geometry is the static dial layout
type Geometry = model.Layout

// Schedule describes the next caption change
type Schedule struct {
	Now        time.Time `json:"now"`
	NextChange time.Time `json:"next_change"`
	SlideOutAt time.Time `json:"slide_out_at"`
	DelayMS    int64     `json:"delay_ms"` // until the slide out starts
	PeriodMS   int64     `json:"period_ms"`
	LeadMS     int64     `json:"lead_ms"`
}

// Captions is a page's caption list
type Captions struct {
	Page      string    `json:"page"`
	Captions  []string  `json:"captions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaptionsFromModel converts model.CaptionSet
func CaptionsFromModel(set *model.CaptionSet) Captions {
	return Captions{
		Page:      string(set.Page),
		Captions:  set.Captions,
		UpdatedAt: set.UpdatedAt,
	}
}

// View represents a mounted view
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

// ViewFromInfo converts view.Info
func ViewFromInfo(info view.Info) View {
	v := View{
		ID:        string(info.ID),
		Page:      string(info.Page),
		MountedAt: info.MountedAt,
		Ready:     info.Ready,
		Caption:   info.Caption.Caption,
		Phase:     string(info.Caption.Phase),
		Frames:    info.Frames,
		PillWidth: info.PillWidth,
	}
	for _, sig := range info.Pending {
		v.Pending = append(v.Pending, string(sig))
	}
	return v
}

// ViewList is the list of mounted views
type ViewList struct {
	Count int    `json:"count"`
	Views []View `json:"views"`
}
