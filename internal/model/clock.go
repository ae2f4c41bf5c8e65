package model

import "time"

// Sample is an instantaneous reading of wall-clock time on a 12-hour dial
type Sample struct {
	Hour        int // 0-11
	Minute      int // 0-59
	Second      int // 0-59
	Millisecond int // 0-999
	Time        time.Time
}

// HandAngles holds the rotation in degrees of each hand from the 12 o'clock position.
// Hour and minute move continuously; the second hand steps once per second.
type HandAngles struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// Frame is one redraw of a mounted view
type Frame struct {
	Seq    uint64
	Sample Sample
	Angles HandAngles
}

// Geometry holds the dial-size constants everything else is derived from
type Geometry struct {
	Size       float64 `json:"size"`
	Center     float64 `json:"center"`
	Radius     float64 `json:"radius"`      // base radius for ticks, labels and hands
	FaceRadius float64 `json:"face_radius"` // outer stroke of the face

	MarkerDistance  float64 `json:"marker_distance"` // fraction of Radius
	MarkerOffset    float64 `json:"marker_offset"`   // pixels scaled by the marker multiplier
	CenterlineNudge float64 `json:"centerline_nudge"`

	TickInset       float64 `json:"tick_inset"`
	MajorTickLength float64 `json:"major_tick_length"`
	MinorTickLength float64 `json:"minor_tick_length"`
	MajorTickWidth  float64 `json:"major_tick_width"`
	MinorTickWidth  float64 `json:"minor_tick_width"`

	HourHandLength   float64 `json:"hour_hand_length"`
	MinuteHandLength float64 `json:"minute_hand_length"`
	SecondHandLength float64 `json:"second_hand_length"`
	SecondTipLength  float64 `json:"second_tip_length"`
}

// HourMarker is one of the 12 "CALL" labels around the dial
type HourMarker struct {
	Index      int     `json:"index"`
	Angle      float64 `json:"angle"` // degrees, 0 = 3 o'clock, -90 = 12 o'clock
	Multiplier float64 `json:"multiplier"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// TickMark is one of the 60 radial marks on the dial face
type TickMark struct {
	Index       int     `json:"index"`
	Angle       float64 `json:"angle"`
	Major       bool    `json:"major"`
	StrokeWidth float64 `json:"stroke_width"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
}

// Layout is the static geometry of a dial, computed once per mount
type Layout struct {
	Geometry Geometry     `json:"geometry"`
	Markers  []HourMarker `json:"markers"`
	Ticks    []TickMark   `json:"ticks"`
}
